package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"flightres/internal/app"
	"flightres/internal/config"
	"flightres/internal/devdata"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads .env, resolves the defaults and reads the config file.
func loadConfig() (*config.Config, error) {
	if err := app.LoadEnv(); err != nil {
		return nil, err
	}

	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// newApp reads the config and creates an App. The caller must defer a.Close().
func newApp(command string) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewApp(cfg, command)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// newSnapshotApp reads the config and creates a SnapshotApp. The caller must defer a.Close().
func newSnapshotApp(ctx context.Context, command string) (*app.SnapshotApp, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewSnapshotApp(ctx, cfg, command)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

var stdin = bufio.NewReader(os.Stdin)

// readPassphrase prompts on stderr. Without a terminal it reads one line
// from stdin so passphrases can be piped in.
func readPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading passphrase: %w", err)
		}
		return string(b), nil
	}

	line, err := stdin.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

var rootCmd = &cobra.Command{
	Use:          "flightres",
	Short:        "Flight reservation service",
	SilenceUsage: true,
}

// serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}
		if dev, _ := cmd.Flags().GetBool("dev"); dev {
			cfg.Server.DevEndpoints = true
		}

		a, err := app.NewApp(cfg, "serve")
		if err != nil {
			return fmt.Errorf("initializing app: %w", err)
		}
		defer a.Close()

		s := cfg.Server
		srv := &http.Server{
			Addr:         s.Addr,
			Handler:      a.Handler(),
			ReadTimeout:  time.Duration(s.ReadTimeout) * time.Second,
			WriteTimeout: time.Duration(s.WriteTimeout) * time.Second,
			IdleTimeout:  time.Duration(s.IdleTimeout) * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			a.Logger().Info("server listening", "addr", s.Addr, "dev_endpoints", s.DevEndpoints)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		a.Logger().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(s.ShutdownTimeout)*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		a.Logger().Info("server exited")
		return nil
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.LoadEnv(); err != nil {
			return err
		}
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)
		fmt.Printf("Data Dir: %s\n", cfg.Storage.DataDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		m := &config.Manager{}
		return m.Write(os.Stdout, cfg)
	},
}

// devdata command
var devdataCmd = &cobra.Command{
	Use:   "devdata",
	Short: "Manage development fixture data",
}

var devdataGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Add generated flights and reservations",
	RunE: func(cmd *cobra.Command, args []string) error {
		flights, _ := cmd.Flags().GetInt("flights")
		reservations, _ := cmd.Flags().GetInt("reservations")
		seed, _ := cmd.Flags().GetUint64("seed")

		a, err := newApp("devdata generate")
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Service().GenerateDevData(flights, reservations, seed)
		if err != nil {
			return fmt.Errorf("generating dev data: %w", err)
		}

		fmt.Printf("Generated %d flight(s) and %d reservation(s)\n", res.Flights, res.Reservations)
		return nil
	},
}

var devdataClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all flights and reservations",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("devdata clear")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Service().ClearDevData(); err != nil {
			return fmt.Errorf("clearing dev data: %w", err)
		}

		fmt.Println("All flights and reservations deleted.")
		return nil
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage snapshot encryption keys",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the snapshot key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newSnapshotApp(cmd.Context(), "keys init")
		if err != nil {
			return err
		}
		defer a.Close()

		if !a.NeedsPassphrase() {
			fmt.Println("Snapshots are not encrypted; no keys needed.")
			return nil
		}

		pass, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}
		confirm, err := readPassphrase("Confirm passphrase: ")
		if err != nil {
			return err
		}
		if pass != confirm {
			return fmt.Errorf("passphrases do not match")
		}

		if err := a.InitKeys(pass); err != nil {
			return err
		}
		fmt.Println("Encryption keys created.")
		return nil
	},
}

// backup command
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Store an encrypted snapshot of all data",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newSnapshotApp(cmd.Context(), "backup")
		if err != nil {
			return err
		}
		defer a.Close()

		id, err := a.Backup()
		if err != nil {
			return fmt.Errorf("backup failed: %w", err)
		}

		fmt.Printf("Snapshot %s stored\n", id)
		return nil
	},
}

// snapshots command
var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List stored snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newSnapshotApp(cmd.Context(), "snapshots")
		if err != nil {
			return err
		}
		defer a.Close()

		ids, err := a.ListSnapshots()
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			fmt.Println("No snapshots.")
			return nil
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	},
}

// restore command
var restoreCmd = &cobra.Command{
	Use:   "restore [SNAPSHOT]",
	Short: "Replace all data with a snapshot (newest by default)",
	Long: "Replace all data with a snapshot (newest by default).\n" +
		"Stop the server first: a running server keeps its own copy in memory and\n" +
		"overwrites the restored data on its next write.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newSnapshotApp(cmd.Context(), "restore")
		if err != nil {
			return err
		}
		defer a.Close()

		id := ""
		if len(args) > 0 {
			id = args[0]
		}

		pass := ""
		if a.NeedsPassphrase() {
			pass, err = readPassphrase("Passphrase: ")
			if err != nil {
				return err
			}
		}

		restored, err := a.Restore(id, pass)
		if err != nil {
			return fmt.Errorf("restore failed: %w", err)
		}

		fmt.Printf("Restored snapshot %s\n", restored)
		return nil
	},
}

func init() {
	// serve
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
	serveCmd.Flags().Bool("dev", false, "Mount the /api/devdata endpoints")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	rootCmd.AddCommand(configCmd)

	// devdata subcommands
	devdataCmd.AddCommand(devdataGenerateCmd)
	devdataCmd.AddCommand(devdataClearCmd)
	devdataGenerateCmd.Flags().IntP("flights", "f", devdata.DefaultFlights, "Number of flights to generate")
	devdataGenerateCmd.Flags().IntP("reservations", "r", devdata.DefaultReservations, "Number of reservations to generate")
	devdataGenerateCmd.Flags().Uint64("seed", 0, "Random seed (0 picks one)")
	rootCmd.AddCommand(devdataCmd)

	// snapshots
	keysCmd.AddCommand(keysInitCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(snapshotsCmd)
	rootCmd.AddCommand(restoreCmd)
}
