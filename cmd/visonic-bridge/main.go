// Package main provides the entry point for the visonic-bridge daemon.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/zorak1103/visonic-bridge/configs"
	"github.com/zorak1103/visonic-bridge/internal/config"
	"github.com/zorak1103/visonic-bridge/internal/definition"
	"github.com/zorak1103/visonic-bridge/internal/dispatch"
	"github.com/zorak1103/visonic-bridge/internal/engine"
	"github.com/zorak1103/visonic-bridge/internal/logging"
	"github.com/zorak1103/visonic-bridge/internal/platform"
	"github.com/zorak1103/visonic-bridge/internal/registry"
	"github.com/zorak1103/visonic-bridge/internal/transport"
)

// App holds the CLI application state and dependencies.
type App struct {
	cfgFile string
	host    string
	port    int
	dbPath  string
	rootCmd *cobra.Command
}

// NewApp creates a new CLI application instance with all dependencies.
func NewApp() *App {
	app := &App{}
	app.rootCmd = app.buildRootCmd()
	app.setupFlags()
	app.addCommands()
	return app
}

// buildRootCmd creates the root cobra command.
func (a *App) buildRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "visonic-bridge",
		Short: "Entity bridge for Visonic alarm panels",
		Long: `visonic-bridge connects to the Visonic Proxy add-on over websocket
and maintains a live entity model of the alarm panel: partitions as
alarm panels, zones as sensors, bypass and PGM outputs as switches.

Entity state is persisted to SQLite so known entities are available
again immediately after a restart, before the panel reports in.`,
		RunE: a.run,
	}
}

// setupFlags configures CLI flags and binds them to viper.
func (a *App) setupFlags() {
	a.rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: ./config.yaml)")
	a.rootCmd.PersistentFlags().StringVar(&a.host, "panel-host", "", "Visonic Proxy host")
	a.rootCmd.PersistentFlags().IntVar(&a.port, "panel-port", 0, "Visonic Proxy websocket port")
	a.rootCmd.PersistentFlags().StringVar(&a.dbPath, "db", "", "entity store path")

	bindPFlag("panel.host", a.rootCmd.PersistentFlags().Lookup("panel-host"))
	bindPFlag("panel.port", a.rootCmd.PersistentFlags().Lookup("panel-port"))
	bindPFlag("database.path", a.rootCmd.PersistentFlags().Lookup("db"))
}

// addCommands adds subcommands to the root command.
func (a *App) addCommands() {
	a.rootCmd.AddCommand(a.buildConfigCmd())
	a.rootCmd.AddCommand(a.buildInitCmd())
}

// buildConfigCmd creates the config subcommand that displays the effective configuration.
func (a *App) buildConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Display the effective configuration",
		Long: `Display the effective configuration.

This command shows the configuration that would be used if the bridge
were started, including values from the config file, environment
variables, and CLI flags.`,
		RunE: a.runConfig,
	}
}

// buildInitCmd creates the init subcommand that creates configuration files.
func (a *App) buildInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration files",
		Long: `Create configuration files in the current directory.

This command creates:
  - config.yaml: YAML configuration file
  - .env: Environment variables file

Existing files are left untouched.`,
		RunE: a.runInit,
	}
}

// runInit creates configuration files from embedded templates.
func (a *App) runInit(_ *cobra.Command, _ []string) error {
	created := 0

	wasCreated, err := a.writeConfigFile("config.yaml", configs.ConfigYAML)
	if err != nil {
		return err
	}
	if wasCreated {
		created++
	}

	wasCreated, err = a.writeConfigFile(".env", configs.EnvExample)
	if err != nil {
		return err
	}
	if wasCreated {
		created++
	}

	if created == 0 {
		fmt.Println("All configuration files already exist. Nothing to do.")
		return nil
	}

	fmt.Printf("Created %d configuration file(s) in current directory.\n", created)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit config.yaml or .env with your panel settings")
	fmt.Println("  2. Run 'visonic-bridge config' to verify your configuration")
	fmt.Println("  3. Run 'visonic-bridge' to start the bridge")

	return nil
}

// writeConfigFile writes content to a file if it doesn't already exist.
// Returns true if the file was created, false if it was skipped.
func (a *App) writeConfigFile(filename string, content []byte) (bool, error) {
	if _, err := os.Stat(filename); err == nil {
		fmt.Printf("Skipping %s (already exists)\n", filename)
		return false, nil
	}

	if err := os.WriteFile(filename, content, 0600); err != nil {
		return false, fmt.Errorf("writing %s: %w", filename, err)
	}

	fmt.Printf("Created %s\n", filename)
	return true, nil
}

// runConfig loads and displays the effective configuration.
func (a *App) runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := config.LoadForDisplay(a.cfgFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	fmt.Println("Effective Configuration")
	fmt.Println("=======================")
	fmt.Println()
	fmt.Println("Panel:")
	fmt.Printf("  Host:         %s\n", cfg.Panel.Host)
	fmt.Printf("  Port:         %d\n", cfg.Panel.Port)
	fmt.Printf("  PIN required: %t\n", cfg.Panel.PinRequired)
	fmt.Println()
	fmt.Println("Bridge:")
	fmt.Printf("  Restore entities:   %t\n", cfg.Bridge.RestoreEntities)
	fmt.Printf("  Optimistic switches: %t\n", cfg.Bridge.OptimisticSwitches)
	fmt.Println()
	fmt.Println("Database:")
	fmt.Printf("  Path:  %s\n", cfg.Database.Path)
	fmt.Println()
	fmt.Println("Logging:")
	fmt.Printf("  Level: %s\n", cfg.Logging.Level)

	return nil
}

// Execute runs the CLI application.
func (a *App) Execute() error {
	return a.rootCmd.Execute()
}

// bindPFlag binds a flag to viper and logs an error if binding fails.
func bindPFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		log.Printf("warning: failed to bind flag %s: %v", key, err)
	}
}

func main() {
	app := NewApp()
	if err := app.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run executes the main bridge logic.
func (a *App) run(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logLevel, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		log.Printf("Warning: invalid log level %q, using INFO", cfg.Logging.Level)
		logLevel = logging.LevelInfo
	}
	logger := logging.New(logLevel)
	logging.SetDefault(logger)

	logger.Info("Starting visonic-bridge", "host", cfg.Panel.Host, "port", cfg.Panel.Port)
	logger.Info("Log level", "level", logging.LevelString(logLevel))

	store, err := registry.OpenStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening entity store: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.Error("Error closing entity store", "error", closeErr)
		}
	}()

	reg, err := registry.New(store)
	if err != nil {
		return fmt.Errorf("loading entity registry: %w", err)
	}
	logger.Info("Entity store opened", "path", store.Path(),
		"devices", len(reg.Devices()), "entities", len(reg.Entities()))

	dispatcher := dispatch.New()
	groups := definition.Catalog()

	// The engine sends commands through the client; the client feeds panel
	// messages back to the engine. Callbacks only fire once Run starts, so
	// binding them through closures before the engine exists is safe.
	var eng *engine.Manager
	client := transport.New(cfg.Panel.Host, cfg.Panel.Port,
		func(message map[string]any) { eng.HandleMessage(message) },
		func(connected bool) { eng.HandleConnectionState(connected) })
	eng = engine.New(client, cfg, reg, dispatcher, groups)
	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			logger.Error("Error closing panel connection", "error", closeErr)
		}
	}()

	entities := platform.NewManager(client, eng, dispatcher, groups, cfg.Bridge.OptimisticSwitches)
	defer entities.Close()

	if cfg.Bridge.RestoreEntities {
		entities.Restore(reg)
		logger.Info("Restored entities from store", "count", entities.Count())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	diagChan := make(chan os.Signal, 1)
	signal.Notify(diagChan, syscall.SIGUSR1)
	go func() {
		for range diagChan {
			logger.Info("Bridge diagnostics", "state", eng.Diagnostics())
		}
	}()

	go func() {
		sig := <-sigChan
		logger.Info("Received signal, shutting down...", "signal", sig)
		cancel()
	}()

	eng.Start()
	defer eng.Shutdown()

	logger.Info("Connecting to panel proxy", "url", client.URL())
	err = client.Run(ctx)

	switch {
	case errors.Is(err, context.Canceled):
		logger.Info("Shutdown complete")
		return nil
	case errors.Is(err, transport.ErrHostUnresolvable):
		return fmt.Errorf("panel proxy unreachable: %w", err)
	default:
		return err
	}
}
