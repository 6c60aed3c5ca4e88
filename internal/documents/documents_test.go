package documents

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"flightres/internal/config"
	"flightres/internal/fr"
)

func backends(t *testing.T) map[string]fr.DocumentStore {
	t.Helper()

	fsDocs, err := NewFileSystemDocuments(filepath.Join(t.TempDir(), "data"))
	if err != nil {
		t.Fatalf("NewFileSystemDocuments() error = %v", err)
	}
	return map[string]fr.DocumentStore{
		"memory":     NewMemoryDocuments(),
		"filesystem": fsDocs,
	}
}

func TestDocumentStore_ReadWriteDelete(t *testing.T) {
	for name, docs := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := docs.ReadDocument("flights"); err != nil || ok {
				t.Fatalf("ReadDocument() on empty store = ok %v, err %v; want absent", ok, err)
			}

			if err := docs.WriteDocument("flights", []byte(`[{"id":"1"}]`)); err != nil {
				t.Fatalf("WriteDocument() error = %v", err)
			}
			if err := docs.WriteDocument("flights", []byte(`[]`)); err != nil {
				t.Fatalf("second WriteDocument() error = %v", err)
			}

			data, ok, err := docs.ReadDocument("flights")
			if err != nil || !ok {
				t.Fatalf("ReadDocument() = ok %v, err %v", ok, err)
			}
			if string(data) != "[]" {
				t.Errorf("ReadDocument() = %q, want the last write", data)
			}

			if err := docs.DeleteDocument("flights"); err != nil {
				t.Fatalf("DeleteDocument() error = %v", err)
			}
			if _, ok, _ := docs.ReadDocument("flights"); ok {
				t.Error("document still present after DeleteDocument()")
			}
			if err := docs.DeleteDocument("flights"); err != nil {
				t.Errorf("DeleteDocument() on missing document error = %v", err)
			}
		})
	}
}

func TestFileSystemDocuments_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	docs, err := NewFileSystemDocuments(dir)
	if err != nil {
		t.Fatalf("NewFileSystemDocuments() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := docs.WriteDocument("reservations", []byte(`[]`)); err != nil {
			t.Fatalf("WriteDocument() error = %v", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "reservations.json" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("directory contents = %v, want [reservations.json]", names)
	}
	if got := docs.Location("reservations"); got != filepath.Join(dir, "reservations.json") {
		t.Errorf("Location() = %q", got)
	}
}

func TestMemoryDocuments_FailWrites(t *testing.T) {
	docs := NewMemoryDocuments()
	boom := errors.New("disk full")
	docs.FailWrites = boom

	if err := docs.WriteDocument("flights", []byte(`[]`)); !errors.Is(err, boom) {
		t.Errorf("WriteDocument() error = %v, want %v", err, boom)
	}
	if _, ok, _ := docs.ReadDocument("flights"); ok {
		t.Error("failed write left a document behind")
	}
}

func TestNewDocumentStoreFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.StorageConfig
		wantErr bool
	}{
		{name: "memory", cfg: config.StorageConfig{Type: "memory"}},
		{name: "filesystem", cfg: config.StorageConfig{Type: "filesystem", DataDir: t.TempDir()}},
		{name: "filesystem without data_dir", cfg: config.StorageConfig{Type: "filesystem"}, wantErr: true},
		{name: "sqlite", cfg: config.StorageConfig{Type: "sqlite", DataDir: t.TempDir()}},
		{name: "sqlite without data_dir", cfg: config.StorageConfig{Type: "sqlite"}, wantErr: true},
		{name: "unknown", cfg: config.StorageConfig{Type: "postgres"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewDocumentStoreFromConfig(tt.cfg, fr.NewNopLogger())
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewDocumentStoreFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				defer got.Close()
				if got == nil {
					t.Fatal("NewDocumentStoreFromConfig() returned nil store")
				}
			}
		})
	}
}
