package model

import "time"

// Paper represents one ingested question paper: the bibliographic metadata
// recovered by the extraction pipeline plus a public reference to the stored
// original file. This is a pure domain model with no database-specific
// dependencies or tags.
//
// Department and Subject are stored lower-cased; an empty string means the
// field could not be recovered. Year is nil when absent. FileURL is never
// empty: a record is only persisted after a successful upload.
type Paper struct {
	ID         string    `json:"id"`
	Department string    `json:"department"`
	Subject    string    `json:"subject"`
	Year       *int      `json:"year"`
	Filename   string    `json:"filename"`
	FileURL    string    `json:"file_url"`
	StorageKey string    `json:"storage_key"`
	CreatedAt  time.Time `json:"created_at"`
}
