package fr

// DocumentStore persists named documents. Each write replaces the whole
// document; there is no append.
type DocumentStore interface {
	// ReadDocument returns the stored bytes for name. ok is false when the
	// document has never been written or was deleted.
	ReadDocument(name string) (data []byte, ok bool, err error)

	// WriteDocument replaces the document. A reader never observes a
	// partially written document.
	WriteDocument(name string, data []byte) error

	// DeleteDocument removes the document. Deleting a missing document is not an error.
	DeleteDocument(name string) error

	// Location describes where name is kept, for operator logs only.
	Location(name string) string

	Close() error
}
