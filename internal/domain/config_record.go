package domain

// ConfigRecord is the backend-persisted configuration of an installed page.
// A page without a record is not installed.
type ConfigRecord struct {
	PageID string `json:"page_id"`
	PageFields
}

// Draft holds uncommitted edits for one page.
// Revision increases with every accepted edit.
type Draft struct {
	PageID   string `json:"page_id"`
	Revision uint64 `json:"revision"`
	PageFields
}

// IsEmpty reports whether the draft carries no edits
func (d Draft) IsEmpty() bool {
	return !d.AnySet()
}
