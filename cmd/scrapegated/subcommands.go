package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/listingwire/scrapegate/pkg/config"
	"github.com/listingwire/scrapegate/pkg/daemon"
	"github.com/listingwire/scrapegate/pkg/gate"
	"github.com/listingwire/scrapegate/pkg/source"
	"github.com/listingwire/scrapegate/pkg/timegate"
	"github.com/listingwire/scrapegate/pkg/ui"
)

// loadConfig resolves the config file from the flag, the working directory,
// or defaults.
func loadConfig() (*config.Config, error) {
	path := configFile
	if path == "" {
		if wd, err := os.Getwd(); err == nil {
			path = config.FindConfigFile(wd)
		}
	}
	if path == "" {
		return config.LoadWithDefaults()
	}
	return config.LoadFromFile(path)
}

// buildEngine constructs the registry, time gate and engine from config.
func buildEngine(cfg *config.Config) (*gate.Engine, error) {
	registry, err := source.NewRegistry(cfg.Profiles())
	if err != nil {
		return nil, fmt.Errorf("invalid source profiles: %w", err)
	}
	tg := timegate.New(cfg.HolidayProvider())
	return gate.New(registry, tg, cfg.EngineConfig()), nil
}

// createServeCommand creates the serve subcommand
func createServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the compliance gate daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			engine, err := buildEngine(cfg)
			if err != nil {
				return err
			}

			dcfg := &daemon.Config{
				HTTPPort:         cfg.Daemon.HTTPPort,
				PidFile:          cfg.Daemon.PidFile,
				JournalPath:      cfg.Daemon.JournalPath,
				JournalRetention: cfg.Daemon.JournalRetention,
				SweepInterval:    cfg.Global.SweepInterval,
				LogLevel:         cfg.Daemon.LogLevel,
				EnableHTTP:       cfg.Daemon.EnableHTTP,
			}

			if running, pid, _ := daemon.IsRunning(dcfg.PidFile); running {
				return fmt.Errorf("daemon is already running with PID %d", pid)
			}

			d, err := daemon.New(engine, dcfg)
			if err != nil {
				return err
			}
			if err := d.Start(); err != nil {
				return err
			}
			d.Wait()
			return d.Stop()
		},
	}
}

// createCheckCommand creates the check subcommand
func createCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check SOURCE",
		Short: "One-shot admission check against the local configuration",
		Long: `Builds a fresh engine from the configuration and asks whether SOURCE
would be admissible right now. Counters start empty, so this reflects the
time gate and configuration, not a running daemon's state.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			engine, err := buildEngine(cfg)
			if err != nil {
				return err
			}

			decision, err := engine.CanMakeRequest(args[0])
			if err != nil {
				return err
			}

			ui.NewReporter(cmd.OutOrStdout()).Decision(args[0], decision)
			return nil
		},
	}
}

// createStatusCommand creates the status subcommand
func createStatusCommand() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Query a running daemon's status",
		RunE: func(cmd *cobra.Command, args []string) error {
			url := fmt.Sprintf("http://localhost:%d/api/status", port)
			client := &http.Client{Timeout: 5 * time.Second}

			resp, err := client.Get(url)
			if err != nil {
				return fmt.Errorf("failed to reach daemon at %s: %w", url, err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("daemon returned status %d", resp.StatusCode)
			}

			var snap gate.StatusSnapshot
			if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
				return fmt.Errorf("failed to decode status: %w", err)
			}

			ui.NewReporter(cmd.OutOrStdout()).Snapshot(snap)
			return nil
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 8787, "Daemon HTTP port")
	return cmd
}
