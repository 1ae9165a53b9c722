package domain

// BatchResult reports the per-item outcome of a batch operation. Items
// succeed or fail independently; a failure never aborts the remaining items.
type BatchResult struct {
	Successful     []string
	Failed         []BatchFailure
	TotalProcessed int
}

// BatchFailure pairs a failed item with the reason it failed.
type BatchFailure struct {
	ID    string
	Error string
}

// RecordSuccess appends a successful item id.
func (r *BatchResult) RecordSuccess(id string) {
	r.Successful = append(r.Successful, id)
	r.TotalProcessed++
}

// RecordFailure appends a failed item with its error.
func (r *BatchResult) RecordFailure(id string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	r.Failed = append(r.Failed, BatchFailure{ID: id, Error: msg})
	r.TotalProcessed++
}
