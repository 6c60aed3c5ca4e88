package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"flightres/internal/fr"
	"flightres/internal/store"
)

// SnapshotIDFormat names snapshots by their UTC creation time to the
// millisecond. The width is fixed, so lexical order is chronological.
const SnapshotIDFormat = "20060102T150405.000Z"

// SnapshotDocuments are the documents a snapshot captures.
var SnapshotDocuments = []string{store.FlightsDocument, store.ReservationsDocument, store.OrphansDocument}

// Bundle is the plaintext form of a snapshot.
type Bundle struct {
	CreatedAt time.Time                  `json:"createdAt"`
	Documents map[string]json.RawMessage `json:"documents"`
}

// Snapshotter copies the data documents to and from a vault.
// Restore writes straight to the document store, so it must only run while
// no stores are loaded on top of it.
type Snapshotter struct {
	docs   fr.DocumentStore
	vault  fr.Vault
	enc    fr.Encryptor
	clock  fr.Clock
	logger fr.Logger
}

// NewSnapshotter creates a Snapshotter.
func NewSnapshotter(docs fr.DocumentStore, vault fr.Vault, enc fr.Encryptor, clock fr.Clock, logger fr.Logger) *Snapshotter {
	return &Snapshotter{docs: docs, vault: vault, enc: enc, clock: clock, logger: logger}
}

// Backup encrypts the current documents into a new snapshot and returns its id.
func (s *Snapshotter) Backup() (string, error) {
	if !s.enc.IsConfigured() {
		return "", fmt.Errorf("encryption keys not configured: run 'flightres keys init'")
	}

	bundle := Bundle{
		CreatedAt: s.clock.Now().UTC(),
		Documents: make(map[string]json.RawMessage),
	}
	for _, name := range SnapshotDocuments {
		data, ok, err := s.docs.ReadDocument(name)
		if err != nil {
			return "", &fr.PersistenceError{Op: "load", Document: name, Err: err}
		}
		if !ok {
			continue
		}
		if !json.Valid(data) {
			s.logger.Warn("skipping unreadable document in snapshot", "document", name, "location", s.docs.Location(name))
			continue
		}
		bundle.Documents[name] = json.RawMessage(data)
	}

	plain, err := json.Marshal(bundle)
	if err != nil {
		return "", fmt.Errorf("encoding snapshot: %w", err)
	}

	var sealed bytes.Buffer
	if err := s.enc.Encrypt(bytes.NewReader(plain), &sealed); err != nil {
		return "", fmt.Errorf("encrypting snapshot: %w", err)
	}

	id := bundle.CreatedAt.Format(SnapshotIDFormat)
	existing, err := s.vault.ListSnapshots()
	if err != nil {
		return "", fmt.Errorf("listing snapshots: %w", err)
	}
	if slices.Contains(existing, id) {
		return "", fmt.Errorf("snapshot %s already exists: %w", id, fr.ErrInvalidArgument)
	}
	if err := s.vault.PutSnapshot(id, &sealed, int64(sealed.Len())); err != nil {
		return "", fmt.Errorf("storing snapshot: %w", err)
	}

	s.logger.Info("snapshot stored", "snapshot", id, "documents", len(bundle.Documents), "size", len(plain))
	return id, nil
}

// List returns snapshot ids, oldest first.
func (s *Snapshotter) List() ([]string, error) {
	return s.vault.ListSnapshots()
}

// Restore replaces the documents with those in snapshot id, or in the newest
// snapshot when id is empty. It returns the id restored.
//
// The snapshot is decoded and checked in full before anything is written: the
// flights and reservations must decode and every reservation must reference a
// flight in the same snapshot.
func (s *Snapshotter) Restore(id string, dc fr.DecryptionContext) (string, error) {
	if id == "" {
		ids, err := s.vault.ListSnapshots()
		if err != nil {
			return "", fmt.Errorf("listing snapshots: %w", err)
		}
		if len(ids) == 0 {
			return "", fmt.Errorf("no snapshots in vault: %w", fr.ErrNotFound)
		}
		id = ids[len(ids)-1]
	}

	var sealed bytes.Buffer
	if err := s.vault.GetSnapshot(id, &sealed); err != nil {
		return "", err
	}
	var plain bytes.Buffer
	if err := dc.Decrypt(&sealed, &plain); err != nil {
		return "", fmt.Errorf("decrypting snapshot %s: %w", id, err)
	}

	var bundle Bundle
	if err := json.Unmarshal(plain.Bytes(), &bundle); err != nil {
		return "", fmt.Errorf("decoding snapshot %s: %w", id, err)
	}
	if err := checkBundle(bundle); err != nil {
		return "", fmt.Errorf("snapshot %s: %w", id, err)
	}

	for _, name := range SnapshotDocuments {
		data, ok := bundle.Documents[name]
		if !ok {
			if err := s.docs.DeleteDocument(name); err != nil {
				return "", &fr.PersistenceError{Op: "delete", Document: name, Err: err}
			}
			continue
		}
		if err := s.docs.WriteDocument(name, data); err != nil {
			return "", &fr.PersistenceError{Op: "save", Document: name, Err: err}
		}
	}

	s.logger.Info("snapshot restored", "snapshot", id, "created_at", bundle.CreatedAt)
	return id, nil
}

func checkBundle(b Bundle) error {
	var flights []*fr.Flight
	if data, ok := b.Documents[store.FlightsDocument]; ok {
		if err := json.Unmarshal(data, &flights); err != nil {
			return fmt.Errorf("decoding flights: %w", err)
		}
	}
	var reservations []*fr.Reservation
	if data, ok := b.Documents[store.ReservationsDocument]; ok {
		if err := json.Unmarshal(data, &reservations); err != nil {
			return fmt.Errorf("decoding reservations: %w", err)
		}
	}

	ids := make(map[string]bool, len(flights))
	for _, f := range flights {
		if f != nil {
			ids[f.ID] = true
		}
	}
	for _, r := range reservations {
		if r != nil && !ids[r.FlightID] {
			return fmt.Errorf("reservation %s references flight %q: %w", r.ID, r.FlightID, fr.ErrOrphanedReservation)
		}
	}
	return nil
}
