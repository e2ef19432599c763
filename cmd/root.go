package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"library-catalog/config"
	"library-catalog/library"
)

// app carries the resolved configuration from the root pre-run to the
// subcommands.
type app struct {
	configPath string
	dataFile   string
	backend    string
	verbose    bool

	cfg config.Config
}

func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "library",
		Short: "Library catalog manager for books, members and loans",
		Long: `library keeps a catalog of books, a registry of members and a log of
borrow/return transactions, persisted to a single data file between runs.

Run "library shell" for the interactive menu, or use the subcommands for
one-shot changes. Every subcommand loads the data file, applies the change
and saves it again.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			return a.configure(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to YAML config file (default library.yaml if present)")
	cmd.PersistentFlags().StringVar(&a.dataFile, "data", "", "Path to the data file (overrides config)")
	cmd.PersistentFlags().StringVar(&a.backend, "backend", "", "Storage backend: json or sqlite (overrides config)")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Verbose logging")

	cmd.AddCommand(newBookCmd(a))
	cmd.AddCommand(newMemberCmd(a))
	cmd.AddCommand(newIssueCmd(a))
	cmd.AddCommand(newReturnCmd(a))
	cmd.AddCommand(newTransactionsCmd(a))
	cmd.AddCommand(newImportCmd(a))
	cmd.AddCommand(newExportCmd(a))
	cmd.AddCommand(newShellCmd(a))

	return cmd
}

func (a *app) configure(cmd *cobra.Command) error {
	path := a.configPath
	if path == "" {
		path = os.Getenv("LIBRARY_CONFIG")
	}
	cfg, err := config.Load(path, config.Overrides{
		DataFile: a.dataFile,
		Backend:  a.backend,
		Verbose:  a.verbose,
	})
	if err != nil {
		return err
	}
	a.cfg = cfg

	level, _ := cfg.SlogLevel()
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
	return nil
}

// openLibrary builds the configured store and loads the library from it.
// The returned close func releases the store.
func (a *app) openLibrary(ctx context.Context) (*library.Library, func() error, error) {
	var (
		store     library.Store
		closeFunc = func() error { return nil }
	)
	switch a.cfg.Backend {
	case config.BackendSQLite:
		s, err := library.NewSQLiteStore(a.cfg.DataFile)
		if err != nil {
			return nil, nil, err
		}
		store, closeFunc = s, s.Close
	default:
		store = library.NewJSONFileStore(a.cfg.DataFile)
	}

	opts := append(a.cfg.LibraryOptions(), library.WithLogger(slog.Default()))
	lib := library.New(store, opts...)
	if err := lib.Load(ctx); err != nil {
		closeFunc()
		return nil, nil, err
	}
	slog.Debug("Opened library", "backend", a.cfg.Backend, "path", a.cfg.DataFile)
	return lib, closeFunc, nil
}

// withLibrary wraps a subcommand body with load, and with save when the body
// changes state and succeeds.
func (a *app) withLibrary(save bool, fn func(cmd *cobra.Command, args []string, lib *library.Library) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		lib, closeStore, err := a.openLibrary(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		if err := fn(cmd, args, lib); err != nil {
			return err
		}
		if !save {
			return nil
		}
		if err := lib.Save(context.WithoutCancel(ctx)); err != nil {
			return fmt.Errorf("error saving data: %w", err)
		}
		return nil
	}
}
