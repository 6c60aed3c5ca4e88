package fr

import "io"

// Vault stores backup snapshots of the data documents.
// All operations use io.Reader/io.Writer for streaming.
type Vault interface {
	// PutSnapshot stores a snapshot under id.
	// size is the number of bytes that will be read from r.
	PutSnapshot(id string, r io.Reader, size int64) error

	// GetSnapshot retrieves a snapshot by id and writes it to w.
	GetSnapshot(id string, w io.Writer) error

	// ListSnapshots returns the stored snapshot ids in ascending order.
	ListSnapshots() ([]string, error)

	// ValidateSetup verifies that the vault is accessible and properly configured.
	ValidateSetup() error
}
