package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/filewarden/filewarden/internal/logger"
	"github.com/filewarden/filewarden/pkg/baseline"
	"github.com/filewarden/filewarden/pkg/config"
	"github.com/filewarden/filewarden/pkg/control"
	"github.com/filewarden/filewarden/pkg/events"
	"github.com/filewarden/filewarden/pkg/integrity"
	"github.com/filewarden/filewarden/pkg/metrics"
	"github.com/filewarden/filewarden/pkg/modemgr"
	"github.com/filewarden/filewarden/pkg/orchestrator"
	"github.com/filewarden/filewarden/pkg/recovery"
	"github.com/filewarden/filewarden/pkg/watcher"
)

var (
	foreground bool
	pidFile    string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the filewardend daemon",
	Long: `Start the integrity-protection daemon: load the baseline store, begin
watching the configured protected paths, and open the metrics and control
endpoints.

By default the daemon runs in the background. Use --foreground to run in
the foreground, e.g. under a process supervisor.

Examples:
  filewardend start
  filewardend start --foreground
  filewardend start --config /etc/filewarden/config.yaml`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "Run in foreground (default: background/daemon mode)")
	startCmd.Flags().StringVar(&pidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/filewarden/filewardend.pid)")
}

func runStart(cmd *cobra.Command, args []string) error {
	if !foreground {
		return startDaemon()
	}

	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}
	if err := InitLogger(cfg); err != nil {
		return err
	}

	if pidFile != "" {
		if err := os.WriteFile(pidFile, []byte(fmt.Sprintf("%d", os.Getpid())), 0644); err != nil {
			return fmt.Errorf("failed to write PID file: %w", err)
		}
		defer func() { _ = os.Remove(pidFile) }()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	daemon, err := buildDaemon(cfg)
	if err != nil {
		return fmt.Errorf("failed to build daemon: %w", err)
	}
	defer daemon.Close()

	daemon.Start(ctx)
	defer daemon.Stop()

	logger.Info("filewardend is running", "protected_paths", len(cfg.Protect.Paths), "control_socket", cfg.ControlSocket.Path)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	signal.Stop(sigCh)
	logger.Info("shutdown signal received, stopping")

	return nil
}

// daemon bundles every long-running component buildDaemon wires together,
// so runStart has one place to start/stop
// everything in the right order.
type daemon struct {
	cfg     *config.Config
	store   *baseline.Store
	mode    *modemgr.Manager
	watch   *watcher.Watcher
	rec     *recovery.Engine
	orch    *orchestrator.Orchestrator
	logs    *events.Ring
	ctrl    *control.Server
	metrics *http.Server
	collect *metrics.Collector
}

func buildDaemon(cfg *config.Config) (*daemon, error) {
	if err := os.MkdirAll(cfg.Storage.Root, 0700); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}

	store, err := baseline.Open(cfg.Storage.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("open baseline store: %w", err)
	}

	logRing := events.NewRing(0)
	emitter := events.MultiEmitter{events.NewLoggerEmitter(), logRing}

	mode := modemgr.New(modemgr.Config{
		AllowedAdmins: cfg.Mode.AllowedAdmins,
		Emitter:       emitter,
	})

	rec, err := recovery.New(recovery.Config{
		BackupDir:     cfg.Storage.BackupRoot(),
		QuarantineDir: cfg.Storage.QuarantineRoot(),
		BlockSize:     int64(cfg.Protect.BlockSize),
		Ledger:        store,
		Emitter:       emitter,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("build recovery engine: %w", err)
	}

	detector := integrity.NewDetector(integrity.Thresholds{
		BlockChangePercent: cfg.Ransomware.BlockChangePercent,
		EntropyThreshold:   cfg.Ransomware.EntropyThreshold,
	})

	orch := orchestrator.New(orchestrator.Config{
		Store:                         store,
		ModeMgr:                       mode,
		Detector:                      detector,
		Recovery:                      rec,
		Emitter:                       emitter,
		Thresholds:                    integrity.Thresholds{BlockChangePercent: cfg.Ransomware.BlockChangePercent, EntropyThreshold: cfg.Ransomware.EntropyThreshold},
		RansomwareFilesCountThreshold: cfg.Ransomware.FilesCountThreshold,
		RansomwareTimeWindowSeconds:   cfg.Ransomware.TimeWindowSeconds,
	})

	watch, err := watcher.New(watcher.Config{
		Paths:                  cfg.Protect.Paths,
		FallbackInterval:       time.Duration(cfg.Monitoring.FallbackIntervalSeconds) * time.Second,
		UseKernelNotifications: cfg.Monitoring.UseKernelNotifications,
	}, orch.Handle)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("build watcher: %w", err)
	}

	ctrlHandler := &control.Handler{
		Mode:      mode,
		Store:     store,
		Recovery:  rec,
		Watcher:   watch,
		Logs:      logRing,
		BlockSize: int64(cfg.Protect.BlockSize),
		Emitter:   emitter,
	}
	ctrl := control.NewServer(cfg.ControlSocket.Path, ctrlHandler)

	var metricsServer *http.Server
	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(orch, mode, watch, store)
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsServer = &http.Server{Addr: fmt.Sprintf(":%d", cfg.Metrics.Port), Handler: mux}
	}

	return &daemon{
		cfg:     cfg,
		store:   store,
		mode:    mode,
		watch:   watch,
		rec:     rec,
		orch:    orch,
		logs:    logRing,
		ctrl:    ctrl,
		metrics: metricsServer,
		collect: collector,
	}, nil
}

// Start brings up the watcher, control socket, metrics collector, and
// metrics HTTP server. Errors starting the control socket or the metrics
// server are logged, not fatal: a daemon that can watch and protect files
// but can't be administered remotely is still better than no daemon.
func (d *daemon) Start(ctx context.Context) {
	d.watch.Start()

	if err := d.ctrl.Start(); err != nil {
		logger.Error("control socket failed to start", "error", err)
	}

	if d.collect != nil {
		d.collect.Start(15 * time.Second)
	}
	if d.metrics != nil {
		go func() {
			if err := d.metrics.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server error", "error", err)
			}
		}()
	}
}

// Stop shuts the daemon's components down in the reverse order Start
// brought them up.
func (d *daemon) Stop() {
	if d.metrics != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), d.cfg.ShutdownTimeout)
		defer cancel()
		_ = d.metrics.Shutdown(shutdownCtx)
	}
	if d.collect != nil {
		d.collect.Stop()
	}
	d.ctrl.Stop()
	d.watch.Stop()
}

// Close releases resources that don't participate in Start/Stop, namely
// the baseline database handle.
func (d *daemon) Close() {
	_ = d.store.Close()
}

// startDaemon re-execs the current binary with --foreground, detached
// from the controlling terminal, and records its PID.
func startDaemon() error {
	stateDir := GetDefaultStateDir()
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	pidPath := pidFile
	if pidPath == "" {
		pidPath = GetDefaultPidFile()
	}

	if data, err := os.ReadFile(pidPath); err == nil {
		var pid int
		if _, err := fmt.Sscanf(string(data), "%d", &pid); err == nil {
			if process, err := os.FindProcess(pid); err == nil {
				if err := process.Signal(syscall.Signal(0)); err == nil {
					return fmt.Errorf("filewardend is already running (PID %d)", pid)
				}
			}
		}
		_ = os.Remove(pidPath)
	}

	logPath := filepath.Join(stateDir, "filewardend.log")

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	daemonArgs := []string{"start", "--foreground", "--pid-file", pidPath}
	if GetConfigFile() != "" {
		daemonArgs = append(daemonArgs, "--config", GetConfigFile())
	}

	cmd := exec.Command(executable, daemonArgs...)

	logFileHandle, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = logFileHandle.Close() }()

	cmd.Stdout = logFileHandle
	cmd.Stderr = logFileHandle
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	fmt.Printf("filewardend started in background (PID %d)\n", cmd.Process.Pid)
	fmt.Printf("  PID file: %s\n", pidPath)
	fmt.Printf("  Log file: %s\n", logPath)
	fmt.Println("\nUse 'filewardend status' to check daemon status")

	return nil
}
