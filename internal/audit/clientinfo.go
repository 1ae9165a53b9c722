package audit

import (
	"context"
	"strings"

	"github.com/mssola/useragent"
)

type uaKey struct{}

// WithUserAgent returns a context carrying the caller's user-agent string.
// The Recorder folds the parsed client facts into every entry it writes.
func WithUserAgent(ctx context.Context, userAgentString string) context.Context {
	if userAgentString == "" {
		return ctx
	}
	return context.WithValue(ctx, uaKey{}, userAgentString)
}

func userAgentFrom(ctx context.Context) string {
	ua, _ := ctx.Value(uaKey{}).(string)
	return ua
}

// ClientMetadata normalizes a caller-supplied user-agent string into the
// metadata keys view/download/share entries carry. The raw string is not
// stored; only the parsed facts are.
func ClientMetadata(userAgentString string) map[string]string {
	if userAgentString == "" {
		return nil
	}

	ua := useragent.New(userAgentString)
	browser, _ := ua.Browser()

	browser = strings.ToLower(strings.TrimSpace(browser))
	if browser == "" {
		browser = "unknown"
	}
	os := strings.ToLower(strings.TrimSpace(ua.OS()))
	if os == "" {
		os = "unknown"
	}
	platform := "desktop"
	if ua.Mobile() {
		platform = "mobile"
	}

	return map[string]string{
		"client_browser":  browser,
		"client_os":       os,
		"client_platform": platform,
	}
}
