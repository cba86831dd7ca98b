package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/narwhalmedia/medialibrary/pkg/config"
	"github.com/narwhalmedia/medialibrary/pkg/interfaces"
	"github.com/narwhalmedia/medialibrary/pkg/logger"
)

var (
	configPath  string
	storageRoot string

	cfg *config.MediaLibraryConfig
	log *logger.ZapLogger
)

var rootCmd = &cobra.Command{
	Use:   "medialibrary",
	Short: "Index media folders into a queryable library",
	Long: `medialibrary discovers audio and video files under entry point folders,
extracts their metadata and keeps a persistent catalog of media, albums,
artists and genres in sync with the filesystem.

Examples:
  medialibrary serve --root /var/lib/medialibrary
  medialibrary scan --root ~/.medialibrary ~/Music
  medialibrary list albums`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (yaml or json)")
	rootCmd.PersistentFlags().StringVar(&storageRoot, "root", "", "Storage root, overrides library.storage_root")

	rootCmd.AddCommand(serveCmd, scanCmd, listCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup(*cobra.Command, []string) error {
	cfg = config.GetDefaults()
	manager := config.NewManager(config.ServiceName)
	if configPath != "" {
		manager = manager.WithConfigPaths(configPath)
	}
	if err := manager.LoadConfig(cfg); err != nil {
		return err
	}
	if storageRoot != "" {
		cfg.Library.StorageRoot = storageRoot
	}
	if cfg.Library.StorageRoot == "" {
		return fmt.Errorf("no storage root: set --root or library.storage_root")
	}

	var err error
	log, err = cfg.Logger.ToLoggerConfig().Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	log.Debug("Configuration loaded",
		interfaces.String("storage_root", cfg.Library.StorageRoot),
		interfaces.String("database", cfg.Database.Driver))
	return nil
}
