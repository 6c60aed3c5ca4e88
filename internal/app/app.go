// Package app wires the stores, service, HTTP handler, vault and encryptor
// together from a Config for the CLI.
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"flightres/internal/config"
	"flightres/internal/documents"
	"flightres/internal/encryption"
	"flightres/internal/fr"
	"flightres/internal/httpapi"
	"flightres/internal/service"
	"flightres/internal/store"
	"flightres/internal/vault"
)

// App is the application layer between the CLI and the service.
// It owns the document store and log file and releases them on Close.
type App struct {
	cfg          *config.Config
	session      *Session
	logger       fr.Logger
	logFile      *os.File
	docs         fr.DocumentStore
	flights      *store.FlightStore
	reservations *store.ReservationStore
	service      *service.Service
}

// NewApp creates a fully wired App from cfg: it opens the document store and
// loads both collections. command names the CLI command being run.
// The caller must call Close when done.
func NewApp(cfg *config.Config, command string) (*App, error) {
	session := NewSession(command, fr.RealClock{})
	logger, logFile, err := openLogger(cfg, session)
	if err != nil {
		return nil, err
	}
	a, err := newApp(cfg, session, logger)
	if err != nil {
		if logFile != nil {
			logFile.Close()
		}
		return nil, err
	}
	a.logFile = logFile
	return a, nil
}

func openLogger(cfg *config.Config, session *Session) (fr.Logger, *os.File, error) {
	l, f, err := newLogger(cfg.LogDir, session.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("creating logger: %w", err)
	}
	return &slogAdapter{l: l}, f, nil
}

func newApp(cfg *config.Config, session *Session, logger fr.Logger) (*App, error) {
	policy, err := store.ParseOrphanPolicy(cfg.Storage.OrphanPolicy)
	if err != nil {
		return nil, err
	}

	docs, err := documents.NewDocumentStoreFromConfig(cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("creating document store: %w", err)
	}

	flights, err := store.NewFlightStore(docs, logger, fr.UUIDGenerator{})
	if err != nil {
		docs.Close()
		return nil, fmt.Errorf("loading flights: %w", err)
	}
	reservations, err := store.NewReservationStore(docs, flights, policy, logger, fr.UUIDGenerator{})
	if err != nil {
		docs.Close()
		return nil, fmt.Errorf("loading reservations: %w", err)
	}

	logger.Info("stores loaded",
		"command", session.Command,
		"storage", cfg.Storage.Type,
		"flights", flights.Len(),
		"reservations", reservations.Len())

	return &App{
		cfg:          cfg,
		session:      session,
		logger:       logger,
		docs:         docs,
		flights:      flights,
		reservations: reservations,
		service:      service.NewService(flights, reservations, logger, fr.RealClock{}, fr.UUIDGenerator{}),
	}, nil
}

// Service returns the service over the loaded stores.
func (a *App) Service() *service.Service { return a.service }

// Logger returns the application logger.
func (a *App) Logger() fr.Logger { return a.logger }

// Handler returns the HTTP handler for the API, configured from [server].
func (a *App) Handler() http.Handler {
	s := a.cfg.Server
	h := httpapi.NewHandler(a.service, a.logger)
	return httpapi.NewRouter(h, httpapi.Options{
		CORSOrigins:  s.CORSOrigins,
		RateLimit:    s.RateLimit,
		RateBurst:    s.RateBurst,
		DevEndpoints: s.DevEndpoints,
	}, a.logger)
}

// Close releases the document store and the log file.
func (a *App) Close() error {
	var firstErr error
	if err := a.docs.Close(); err != nil {
		firstErr = fmt.Errorf("closing document store: %w", err)
	}
	a.logger.Info("session finished", "command", a.session.Command, "elapsed", a.session.Elapsed(fr.RealClock{}))
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}

// SnapshotApp backs up and restores the data documents. It opens the
// document store without loading the collections, so a restore never races
// with live stores in the same process.
type SnapshotApp struct {
	session     *Session
	logger      fr.Logger
	logFile     *os.File
	docs        fr.DocumentStore
	enc         fr.Encryptor
	snapshotter *service.Snapshotter
}

// NewSnapshotApp creates a SnapshotApp from cfg. The caller must call Close.
func NewSnapshotApp(ctx context.Context, cfg *config.Config, command string) (*SnapshotApp, error) {
	session := NewSession(command, fr.RealClock{})
	logger, logFile, err := openLogger(cfg, session)
	if err != nil {
		return nil, err
	}
	a, err := newSnapshotApp(ctx, cfg, session, logger)
	if err != nil {
		if logFile != nil {
			logFile.Close()
		}
		return nil, err
	}
	a.logFile = logFile
	return a, nil
}

func newSnapshotApp(ctx context.Context, cfg *config.Config, session *Session, logger fr.Logger) (*SnapshotApp, error) {
	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	v, err := vault.NewVaultFromConfig(ctx, cfg.Vault)
	if err != nil {
		return nil, fmt.Errorf("creating vault: %w", err)
	}
	if err := v.ValidateSetup(); err != nil {
		return nil, fmt.Errorf("vault %s not usable: %w", cfg.Vault.Name, err)
	}

	docs, err := documents.NewDocumentStoreFromConfig(cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("creating document store: %w", err)
	}

	return &SnapshotApp{
		session:     session,
		logger:      logger,
		docs:        docs,
		enc:         enc,
		snapshotter: service.NewSnapshotter(docs, v, enc, fr.RealClock{}, logger),
	}, nil
}

// NeedsPassphrase reports whether Restore and InitKeys require a passphrase.
func (a *SnapshotApp) NeedsPassphrase() bool { return a.enc.NeedsPassphrase() }

// InitKeys generates the encryption key pair protected by passphrase.
func (a *SnapshotApp) InitKeys(passphrase string) error {
	if err := a.enc.Setup(passphrase); err != nil {
		return fmt.Errorf("setting up encryption: %w", err)
	}
	a.logger.Info("encryption keys created")
	return nil
}

// Backup stores a new snapshot and returns its id.
func (a *SnapshotApp) Backup() (string, error) {
	return a.snapshotter.Backup()
}

// ListSnapshots returns snapshot ids, oldest first.
func (a *SnapshotApp) ListSnapshots() ([]string, error) {
	return a.snapshotter.List()
}

// Restore unlocks the private key with passphrase and restores snapshot id,
// or the newest snapshot when id is empty.
func (a *SnapshotApp) Restore(id, passphrase string) (string, error) {
	dc, err := a.enc.Unlock(passphrase)
	if err != nil {
		return "", fmt.Errorf("unlocking encryption key: %w", err)
	}
	return a.snapshotter.Restore(id, dc)
}

// Close releases the document store and the log file.
func (a *SnapshotApp) Close() error {
	var firstErr error
	if err := a.docs.Close(); err != nil {
		firstErr = fmt.Errorf("closing document store: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
