package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"flightres/internal/config"
	"flightres/internal/fr"
	"flightres/internal/store"
	"flightres/internal/testutil"
)

func testConfig(t *testing.T, storageType string) *config.Config {
	t.Helper()
	cfg := config.NewConfig(t.TempDir())
	cfg.Storage.Type = storageType
	cfg.Encryption.Type = "none"
	cfg.Server.RateLimit = 0
	return cfg
}

func openTestApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	a, err := newApp(cfg, NewSession("test", testutil.FixedClock()), fr.NewNopLogger())
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	return a
}

func TestApp_PersistsAcrossRestarts(t *testing.T) {
	for _, storageType := range []string{"filesystem", "sqlite"} {
		t.Run(storageType, func(t *testing.T) {
			cfg := testConfig(t, storageType)

			a := openTestApp(t, cfg)
			f, err := a.Service().CreateFlight(testutil.NewFlight("LO100", 0))
			if err != nil {
				t.Fatalf("CreateFlight() error = %v", err)
			}
			if _, err := a.Service().CreateReservation(testutil.NewReservation("Jan Kowalski", f.ID)); err != nil {
				t.Fatalf("CreateReservation() error = %v", err)
			}
			if err := a.Close(); err != nil {
				t.Fatalf("Close() error = %v", err)
			}

			b := openTestApp(t, cfg)
			defer b.Close()
			page, err := b.Service().ListFlights(true, nil)
			if err != nil {
				t.Fatal(err)
			}
			if page.TotalCount != 1 || len(page.Items[0].Reservations) != 1 {
				t.Errorf("reopened app has %+v", page)
			}
			if page.Items[0].Flight.ID != f.ID {
				t.Errorf("flight id = %q, want %q", page.Items[0].Flight.ID, f.ID)
			}
		})
	}
}

func TestApp_Handler(t *testing.T) {
	cfg := testConfig(t, "memory")
	cfg.Server.DevEndpoints = true
	a := openTestApp(t, cfg)
	defer a.Close()

	h := a.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("GET /health = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/devdata/generate?flights=3&reservations=10&seed=1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/devdata/generate = %d: %s", rec.Code, rec.Body.String())
	}
	if a.flights.Len() != 3 || a.reservations.Len() != 10 {
		t.Errorf("stores hold %d flights, %d reservations", a.flights.Len(), a.reservations.Len())
	}
}

func TestApp_ConfigErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{name: "unknown storage", mutate: func(c *config.Config) { c.Storage.Type = "mongo" }, want: "unknown storage type"},
		{name: "unknown orphan policy", mutate: func(c *config.Config) { c.Storage.OrphanPolicy = "drop" }, want: "orphan policy"},
		{name: "filesystem without dir", mutate: func(c *config.Config) { c.Storage.DataDir = "" }, want: "data_dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t, "filesystem")
			tt.mutate(cfg)

			_, err := newApp(cfg, NewSession("test", testutil.FixedClock()), fr.NewNopLogger())
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("newApp() error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestApp_OrphanPolicy(t *testing.T) {
	cfg := testConfig(t, "filesystem")
	if err := os.MkdirAll(cfg.Storage.DataDir, 0755); err != nil {
		t.Fatal(err)
	}
	orphans := `[{"id":"r-1","passengerName":"Jan","flightId":"gone","class":"Economy"}]`
	if err := os.WriteFile(filepath.Join(cfg.Storage.DataDir, "reservations.json"), []byte(orphans), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := newApp(cfg, NewSession("test", testutil.FixedClock()), fr.NewNopLogger())
	if err == nil {
		t.Fatal("newApp() with orphans and policy fail succeeded")
	}

	cfg.Storage.OrphanPolicy = string(store.OrphanQuarantine)
	a := openTestApp(t, cfg)
	defer a.Close()
	if a.reservations.Len() != 0 {
		t.Errorf("orphan still live after quarantine")
	}
	if _, err := os.Stat(filepath.Join(cfg.Storage.DataDir, "reservations.orphans.json")); err != nil {
		t.Errorf("orphans document not written: %v", err)
	}
}

func TestNewApp_WritesLogFile(t *testing.T) {
	cfg := testConfig(t, "memory")

	a, err := NewApp(cfg, "serve")
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(cfg.LogDir, LogFileName))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "stores loaded") || !strings.Contains(string(data), "command=serve") {
		t.Errorf("log file = %q", data)
	}
}

func TestSnapshotApp_BackupAndRestore(t *testing.T) {
	cfg := testConfig(t, "filesystem")

	a := openTestApp(t, cfg)
	if _, err := a.Service().CreateFlight(testutil.NewFlight("LO100", 0)); err != nil {
		t.Fatal(err)
	}
	a.Close()

	snaps, err := newSnapshotApp(context.Background(), cfg, NewSession("backup", testutil.FixedClock()), fr.NewNopLogger())
	if err != nil {
		t.Fatalf("newSnapshotApp() error = %v", err)
	}
	if snaps.NeedsPassphrase() {
		t.Error("plain encryption should not need a passphrase")
	}
	id, err := snaps.Backup()
	if err != nil {
		t.Fatalf("Backup() error = %v", err)
	}
	snaps.Close()

	// Lose the data, then restore the newest snapshot.
	if err := os.RemoveAll(cfg.Storage.DataDir); err != nil {
		t.Fatal(err)
	}

	snaps, err = newSnapshotApp(context.Background(), cfg, NewSession("restore", testutil.FixedClock()), fr.NewNopLogger())
	if err != nil {
		t.Fatalf("newSnapshotApp() error = %v", err)
	}
	ids, err := snaps.ListSnapshots()
	if err != nil || len(ids) != 1 || ids[0] != id {
		t.Fatalf("ListSnapshots() = %v, %v; want [%s]", ids, err, id)
	}
	restored, err := snaps.Restore("", "")
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if restored != id {
		t.Errorf("Restore() = %q, want %q", restored, id)
	}
	snaps.Close()

	b := openTestApp(t, cfg)
	defer b.Close()
	if b.flights.Len() != 1 {
		t.Errorf("restored %d flights, want 1", b.flights.Len())
	}
}

func TestSnapshotApp_AgeKeys(t *testing.T) {
	cfg := testConfig(t, "memory")
	cfg.Encryption.Type = "age"
	cfg.Vault.Type = "memory"

	snaps, err := newSnapshotApp(context.Background(), cfg, NewSession("keys", testutil.NewStubClock(time.Now())), fr.NewNopLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer snaps.Close()

	if !snaps.NeedsPassphrase() {
		t.Error("age encryption should need a passphrase")
	}
	if _, err := snaps.Backup(); err == nil {
		t.Error("Backup() before keys init succeeded")
	}
	if err := snaps.InitKeys("correct horse"); err != nil {
		t.Fatalf("InitKeys() error = %v", err)
	}
	id, err := snaps.Backup()
	if err != nil {
		t.Fatalf("Backup() error = %v", err)
	}
	if _, err := snaps.Restore(id, "wrong"); err == nil {
		t.Error("Restore() with wrong passphrase succeeded")
	}
	if _, err := snaps.Restore(id, "correct horse"); err != nil {
		t.Errorf("Restore() error = %v", err)
	}
}
