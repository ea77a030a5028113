// Command catalogctl operates a preserved catalog from the command line:
// creating an empty one, wiping its transaction log, rebuilding it from
// chunk files, and inspecting its current state.
//
// Logging:
//   - Base logger is created here with output format and level
//   - Logger is passed to all components via dependency injection
//   - No global slog configuration (no slog.SetDefault)
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"catalogstore/internal/catalog"
	"catalogstore/internal/catalogpath"
	"catalogstore/internal/catalogstate"
	"catalogstore/internal/chunkwriter"
	"catalogstore/internal/config"
	"catalogstore/internal/logging"
	"catalogstore/internal/objectstore"
	"catalogstore/internal/objectstore/backends"
	"catalogstore/internal/rebuild"
)

var version = "dev"

func main() {
	baseHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	filterHandler := logging.NewComponentFilterHandler(baseHandler, slog.LevelInfo)
	logger := slog.New(filterHandler)

	rootCmd := &cobra.Command{
		Use:   "catalogctl",
		Short: "Operate a preserved catalog",
	}
	rootCmd.PersistentFlags().String("config", "", "path to config file (default: none, env/defaults only)")

	rootCmd.AddCommand(
		newNewEmptyCmd(logger),
		newWipeCmd(logger),
		newRebuildCmd(logger),
		newListCmd(logger),
		newInspectCmd(logger),
		newVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openStore resolves configuration and constructs the store and scheme a
// subcommand operates against.
func openStore(cmd *cobra.Command) (objectstore.Store, catalogpath.Scheme, config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, catalogpath.Scheme{}, config.Config{}, fmt.Errorf("load config: %w", err)
	}

	factory := backends.NewRegistry().Factory()
	params := make(map[string]string, len(cfg.ObjectStore.Params)+1)
	for k, v := range cfg.ObjectStore.Params {
		params[k] = v
	}
	params[objectstore.ParamKind] = cfg.ObjectStore.Kind

	store, err := factory(cmd.Context(), params, nil)
	if err != nil {
		return nil, catalogpath.Scheme{}, config.Config{}, fmt.Errorf("open object store: %w", err)
	}

	scheme := catalogpath.New(cfg.ServerID, cfg.Database)
	return store, scheme, cfg, nil
}

func newNewEmptyCmd(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "new-empty",
		Short: "Create an empty catalog at revision 0",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, scheme, _, err := openStore(cmd)
			if err != nil {
				return err
			}
			_, err = catalog.NewEmpty(cmd.Context(), store, scheme, catalogstate.NewMemoryStateFactory, nil, logger)
			if err != nil {
				return fmt.Errorf("new-empty: %w", err)
			}
			fmt.Println("created empty catalog")
			return nil
		},
	}
}

func newWipeCmd(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "wipe",
		Short: "Delete every transaction record, leaving chunk data untouched",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, scheme, _, err := openStore(cmd)
			if err != nil {
				return err
			}
			if err := catalog.Wipe(cmd.Context(), store, scheme); err != nil {
				return fmt.Errorf("wipe: %w", err)
			}
			fmt.Println("wiped transaction log")
			return nil
		},
	}
}

func newRebuildCmd(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Reconstruct the transaction log by scanning chunk files",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, scheme, cfg, err := openStore(cmd)
			if err != nil {
				return err
			}
			tableGlob, _ := cmd.Flags().GetString("table")
			opts := rebuild.Options{
				IgnoreMetadataReadFailure: cfg.IgnoreMetadataReadFailure,
				TableGlob:                 tableGlob,
			}
			cat, err := rebuild.Rebuild(cmd.Context(), store, scheme, catalogstate.NewMemoryStateFactory, nil, opts, logger)
			if err != nil {
				return fmt.Errorf("rebuild: %w", err)
			}
			fmt.Printf("rebuilt catalog at revision %d with %d live files\n", cat.RevisionCounter(), len(cat.State().Keys()))
			return nil
		},
	}
	cmd.Flags().String("table", "", "restrict rebuild to tables matching this glob")
	return cmd
}

func newListCmd(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every live chunk key in the current catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, scheme, _, err := openStore(cmd)
			if err != nil {
				return err
			}
			cat, found, err := catalog.Load(cmd.Context(), store, scheme, catalogstate.NewMemoryStateFactory, nil, logger)
			if err != nil {
				return fmt.Errorf("list: %w", err)
			}
			if !found {
				fmt.Println("no catalog found")
				return nil
			}
			for _, key := range cat.State().Keys() {
				fmt.Println(key.String())
			}
			return nil
		},
	}
}

func newInspectCmd(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <key>",
		Short: "Print the catalog metadata embedded in one chunk file's footer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, scheme, _, err := openStore(cmd)
			if err != nil {
				return err
			}
			key := objectstore.Path(strings.Split(args[0], "/"))
			writer := chunkwriter.New(store, scheme, logger)
			meta, err := writer.ReadMetadata(cmd.Context(), key)
			if err != nil {
				return fmt.Errorf("inspect: %w", err)
			}
			fmt.Printf("revision=%d uuid=%s\n", meta.TransactionRevisionCounter, meta.TransactionUUID)
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}
}
