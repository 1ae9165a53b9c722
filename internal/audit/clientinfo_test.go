package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientMetadata(t *testing.T) {
	t.Run("empty user agent yields nil", func(t *testing.T) {
		assert.Nil(t, ClientMetadata(""))
	})

	t.Run("desktop chrome", func(t *testing.T) {
		ua := "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
		meta := ClientMetadata(ua)
		assert.Equal(t, "chrome", meta["client_browser"])
		assert.Equal(t, "desktop", meta["client_platform"])
		assert.NotEmpty(t, meta["client_os"])
	})

	t.Run("garbage input still parses", func(t *testing.T) {
		meta := ClientMetadata("not-a-real-agent")
		assert.Equal(t, "desktop", meta["client_platform"])
	})
}
