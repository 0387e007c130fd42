// Package daemon runs the compliance gate as a long-lived process: the
// scraping jobs consult it over a small HTTP API, a background loop sweeps
// stale cooldowns, and decisions are journaled for the admin dashboard.
package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/listingwire/scrapegate/pkg/gate"
	"github.com/listingwire/scrapegate/pkg/journal"
	"github.com/listingwire/scrapegate/pkg/metrics"
)

// Config holds daemon configuration
type Config struct {
	HTTPPort         int           `json:"http_port"`
	PidFile          string        `json:"pid_file"`
	JournalPath      string        `json:"journal_path"`
	JournalRetention time.Duration `json:"journal_retention"`
	SweepInterval    time.Duration `json:"sweep_interval"`
	LogLevel         string        `json:"log_level"`
	EnableHTTP       bool          `json:"enable_http"`
}

// DefaultConfig returns a default daemon configuration
func DefaultConfig() *Config {
	return &Config{
		HTTPPort:         8787,
		PidFile:          "/tmp/scrapegated.pid",
		JournalPath:      "",
		JournalRetention: 7 * 24 * time.Hour,
		SweepInterval:    time.Minute,
		LogLevel:         "info",
		EnableHTTP:       true,
	}
}

// Daemon wires the engine to its operational surroundings.
type Daemon struct {
	config  *Config
	engine  *gate.Engine
	journal *journal.Journal
	metrics *metrics.Metrics
	promReg *prometheus.Registry
	server  *Server
	logger  *Logger
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a daemon around an engine. The journal is optional: an empty
// JournalPath disables it.
func New(engine *gate.Engine, config *Config) (*Daemon, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = time.Minute
	}
	if config.JournalRetention <= 0 {
		config.JournalRetention = 7 * 24 * time.Hour
	}

	ctx, cancel := context.WithCancel(context.Background())
	logger := NewLogger("daemon", LogLevel(config.LogLevel))

	promReg := prometheus.NewRegistry()

	d := &Daemon{
		config:  config,
		engine:  engine,
		metrics: metrics.New(promReg),
		promReg: promReg,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}

	if config.JournalPath != "" {
		jnl, err := journal.Open(config.JournalPath)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to open journal: %w", err)
		}
		d.journal = jnl
	}

	return d, nil
}

// Start starts the daemon.
func (d *Daemon) Start() error {
	d.logger.Info("daemon starting", "pid", os.Getpid(), "http_port", d.config.HTTPPort)

	if err := d.writePidFile(); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	if d.config.EnableHTTP {
		d.server = NewServer(d, d.config.HTTPPort, d.logger.WithComponent("http"))
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			if err := d.server.Start(d.ctx); err != nil {
				d.logger.LogError("http server", err)
			}
		}()
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.sweepLoop()
	}()

	d.setupSignalHandling()

	d.logger.Info("daemon started")
	return nil
}

// Stop stops the daemon gracefully.
func (d *Daemon) Stop() error {
	d.logger.Info("daemon stopping")
	d.cancel()

	if d.server != nil {
		d.server.Stop()
	}
	d.wg.Wait()

	if d.journal != nil {
		d.journal.Close()
	}
	d.removePidFile()

	d.logger.Info("daemon stopped")
	return nil
}

// Wait blocks until all daemon goroutines have finished.
func (d *Daemon) Wait() {
	d.wg.Wait()
}

// Admit runs an admission check and records it in the journal and metrics.
func (d *Daemon) Admit(sourceID string) (gate.Decision, error) {
	decision, err := d.engine.CanMakeRequest(sourceID)
	if err != nil {
		return gate.Decision{}, err
	}

	d.metrics.ObserveDecision(sourceID, decision)
	if d.journal != nil {
		if jerr := d.journal.RecordDecision(sourceID, decision, time.Now()); jerr != nil {
			d.logger.LogError("journal decision", jerr, "source", sourceID)
		}
	}
	d.logger.LogDecision(sourceID, decision)
	return decision, nil
}

// Report records a request outcome against the engine, journal and metrics.
func (d *Daemon) Report(sourceID string, success bool, errMsg string) error {
	var err error
	if success {
		err = d.engine.RecordRequest(sourceID)
	} else {
		err = d.engine.RecordError(sourceID, fmt.Errorf("%s", errMsg))
	}
	if err != nil {
		return err
	}

	d.metrics.ObserveOutcome(sourceID, success)
	if d.journal != nil {
		if jerr := d.journal.RecordOutcome(sourceID, success, errMsg, time.Now()); jerr != nil {
			d.logger.LogError("journal outcome", jerr, "source", sourceID)
		}
	}
	d.logger.LogOutcome(sourceID, success, errMsg)
	return nil
}

// Status returns the engine's diagnostic snapshot.
func (d *Daemon) Status() gate.StatusSnapshot {
	return d.engine.Status()
}

// RecentDecisions returns journaled decisions, newest first. Returns nil
// when the journal is disabled.
func (d *Daemon) RecentDecisions(limit int) ([]journal.DecisionEntry, error) {
	if d.journal == nil {
		return nil, nil
	}
	return d.journal.RecentDecisions(limit)
}

// sweepLoop periodically clears stale cooldowns, refreshes the gauges and
// prunes the journal.
func (d *Daemon) sweepLoop() {
	ticker := time.NewTicker(d.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			cleared := d.engine.SweepStale()
			d.logger.LogSweep(cleared)
			d.metrics.UpdateFromSnapshot(d.engine.Status())

			if d.journal != nil {
				cutoff := time.Now().Add(-d.config.JournalRetention)
				if _, err := d.journal.Prune(cutoff); err != nil {
					d.logger.LogError("journal prune", err)
				}
			}
		}
	}
}

// setupSignalHandling sets up graceful shutdown on signals.
func (d *Daemon) setupSignalHandling() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		select {
		case sig := <-sigChan:
			d.logger.Info("signal received", "signal", sig.String())
			d.cancel()
		case <-d.ctx.Done():
		}
	}()
}

// writePidFile writes the process ID to a file.
func (d *Daemon) writePidFile() error {
	if d.config.PidFile == "" {
		return nil
	}
	dir := filepath.Dir(d.config.PidFile)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(d.config.PidFile, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644)
}

// removePidFile removes the PID file.
func (d *Daemon) removePidFile() {
	if d.config.PidFile != "" {
		os.Remove(d.config.PidFile)
	}
}

// IsRunning checks if a daemon is running by checking the PID file.
func IsRunning(pidFile string) (bool, int, error) {
	if pidFile == "" {
		return false, 0, nil
	}

	data, err := os.ReadFile(pidFile)
	if err != nil {
		if os.IsNotExist(err) {
			return false, 0, nil
		}
		return false, 0, err
	}

	var pid int
	if _, err := fmt.Sscanf(string(data), "%d", &pid); err != nil {
		return false, 0, fmt.Errorf("invalid PID file format: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false, pid, nil
	}
	if err := process.Signal(syscall.Signal(0)); err != nil {
		return false, pid, nil
	}
	return true, pid, nil
}
