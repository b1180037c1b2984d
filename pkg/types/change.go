package types

// FieldChange is one before/after pair inside an audit diff. Values are the
// string-normalized cell forms, so history reads exactly what the document held.
type FieldChange struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// ChangeSet maps logical field names to their recorded change.
type ChangeSet map[string]FieldChange
