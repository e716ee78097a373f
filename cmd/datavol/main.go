package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cuemby/datavol/pkg/config"
	"github.com/cuemby/datavol/pkg/engine"
	"github.com/cuemby/datavol/pkg/log"
	"github.com/cuemby/datavol/pkg/manager"
	"github.com/cuemby/datavol/pkg/platform"
	"github.com/cuemby/datavol/pkg/storage"
	"github.com/cuemby/datavol/pkg/types"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "datavol",
	Short: "datavol - find, choose and move application data between storage volumes",
	Long: `datavol discovers every usable storage location on this host, the
internal data directory plus one directory on each external mount, tracks
which one holds the application data and moves the data between them.`,
	Version:           Version,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

// cfg is loaded once before any subcommand runs
var cfg *config.Config

func init() {
	// Set version template
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"datavol version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("config", defaultConfigPath(), "Path to the YAML configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Emit logs as JSON")

	// Add subcommands
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(locateCmd)
	rootCmd.AddCommand(moveCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("datavol version %s\n", Version)
		fmt.Printf("  Commit: %s\n", Commit)
		fmt.Printf("  Built: %s\n", BuildTime)
	},
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, config.DefaultAppDir, "config.yaml")
}

func initConfig(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")
	levelFlag, _ := cmd.Flags().GetString("log-level")
	jsonFlag, _ := cmd.Flags().GetBool("log-json")

	loaded, err := config.Load(path)
	if err != nil {
		return err
	}
	cfg = loaded

	if levelFlag != "" {
		cfg.Log.Level = levelFlag
	}
	if cmd.Flags().Changed("log-json") {
		cfg.Log.JSON = jsonFlag
	}

	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	log.Init(log.Config{Level: level, JSONOutput: cfg.Log.JSON})
	return nil
}

// app holds the objects a command works with
type app struct {
	store  *storage.BoltStore
	engine *engine.StoreEngine
	host   *platform.Host
	mgr    *manager.Manager
}

func newApp() (*app, error) {
	store, err := storage.NewBoltStore(cfg.StatePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open state: %w", err)
	}

	eng, err := engine.NewStoreEngine(store, cfg.MovableExtensions)
	if err != nil {
		store.Close()
		return nil, err
	}

	host := platform.NewHost(platform.HostConfig{
		InternalDir:  cfg.InternalDir,
		AppDir:       cfg.AppDir,
		MountRoots:   cfg.MountRoots,
		ExternalDirs: cfg.ExternalDirs,
	})
	mgr, err := manager.NewManager(&manager.Config{
		Platform: host,
		Engine:   eng,
		Notifier: platform.NewMountNotifier(cfg.MountRoots, platform.DefaultPollInterval),
		History:  store,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create manager: %w", err)
	}

	return &app{store: store, engine: eng, host: host, mgr: mgr}, nil
}

func (a *app) Close() {
	a.mgr.Shutdown()
	if err := a.store.Close(); err != nil {
		log.Errorf("Failed to close state", err)
	}
}

// scan rebuilds the registry and terminates the process when there is no
// usable storage at all
func (a *app) scan() (types.Snapshot, error) {
	snapshot, err := a.mgr.Scan()
	if errors.Is(err, types.ErrNoStorage) {
		a.Close()
		log.Fatal("No usable storage volume found, cannot continue")
	}
	return snapshot, err
}
