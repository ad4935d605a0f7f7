package domain

// Candidate is an untyped record proposed for admission, as produced by the
// issue-form intake or an API client. Fields uses the persisted snake_case
// names. A non-empty ID marks a modification of an existing record.
type Candidate struct {
	Kind   EntityKind     `json:"kind"`
	ID     string         `json:"id,omitempty"`
	Fields map[string]any `json:"fields"`
}
