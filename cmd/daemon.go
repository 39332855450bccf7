package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/config"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/daemon"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/logging"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/pipeline"
	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/store"
)

type daemonRuntimeState struct {
	PID       int       `json:"pid"`
	Addr      string    `json:"addr"`
	StartedAt time.Time `json:"started_at"`
	Inputs    []string  `json:"inputs"`
}

var (
	flagDaemonAddr      string
	flagDaemonInterval  time.Duration
	flagDaemonThrottle  time.Duration
	flagDaemonDetach    bool
	flagDaemonPIDFile   string
	flagDaemonLogFile   string
	flagDaemonNoHistory bool
	flagDaemonChild     bool
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Re-price on every input or settings change and serve the result over HTTP",
	RunE:  runDaemon,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon process and API status",
	RunE:  runDaemonStatus,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	RunE:  runDaemonStop,
}

func init() {
	defaultPID := filepath.Join(config.Dir(), "knackcostd.pid")
	defaultLog := filepath.Join(config.Dir(), "knackcostd.log")
	d := config.DefaultConfig().Daemon

	daemonCmd.PersistentFlags().StringVar(&flagDaemonAddr, "addr", d.Addr, "HTTP listen address")
	daemonCmd.PersistentFlags().DurationVar(&flagDaemonInterval, "interval",
		time.Duration(d.IntervalSec)*time.Second, "Polling interval")
	daemonCmd.PersistentFlags().DurationVar(&flagDaemonThrottle, "throttle",
		time.Duration(d.ThrottleMs)*time.Millisecond, "Minimum gap between passes")
	daemonCmd.PersistentFlags().StringVar(&flagDaemonPIDFile, "pid-file", defaultPID, "PID file path")
	daemonCmd.PersistentFlags().StringVar(&flagDaemonLogFile, "log-file", defaultLog, "Log file path for detached mode")

	daemonCmd.Flags().BoolVar(&flagDaemonNoHistory, "no-history", false, "Do not record passes")
	daemonCmd.Flags().BoolVar(&flagDaemonDetach, "detach", false, "Run daemon as a background process")
	daemonCmd.Flags().BoolVar(&flagDaemonChild, "child", false, "Internal: mark detached child process")
	_ = daemonCmd.Flags().MarkHidden("child")

	daemonCmd.AddCommand(daemonStatusCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	if flagDaemonDetach && flagDaemonChild {
		return eris.New("invalid daemon launch mode")
	}

	if flagDaemonDetach {
		return startDaemonDetached()
	}

	return runDaemonForeground(cmd)
}

func startDaemonDetached() error {
	if _, err := openSources(); err != nil {
		return err
	}
	if err := ensureDaemonNotRunning(flagDaemonPIDFile); err != nil {
		return err
	}

	exe, err := os.Executable()
	if err != nil {
		return eris.Wrap(err, "resolve executable")
	}

	args := filterDetachArg(os.Args[1:])
	args = append(args, "--child")

	if err := os.MkdirAll(filepath.Dir(flagDaemonPIDFile), 0o750); err != nil {
		return eris.Wrap(err, "create daemon directory")
	}
	if err := os.MkdirAll(filepath.Dir(flagDaemonLogFile), 0o750); err != nil {
		return eris.Wrap(err, "create daemon log directory")
	}

	//nolint:gosec // daemon log path is configured by the local user
	logf, err := os.OpenFile(flagDaemonLogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return eris.Wrap(err, "open daemon log file")
	}
	defer func() { _ = logf.Close() }()

	child := exec.Command(exe, args...) //nolint:gosec // exe/args come from current process invocation
	child.Stdout = logf
	child.Stderr = logf
	child.Stdin = nil
	child.Env = os.Environ()

	if err := child.Start(); err != nil {
		return eris.Wrap(err, "start detached daemon")
	}

	fmt.Printf("  Started daemon (pid %d)\n", child.Process.Pid)
	fmt.Printf("  PID file: %s\n", flagDaemonPIDFile)
	fmt.Printf("  API: http://%s/v1/status\n", flagDaemonAddr)
	fmt.Printf("  Log: %s\n", flagDaemonLogFile)
	return nil
}

// daemonConfig merges the [daemon] config section with explicit flags.
func daemonConfig(cmd *cobra.Command) daemon.Config {
	cfg, _ := config.Load(flagConfig)
	d := cfg.Daemon

	out := daemon.Config{
		WatchPaths:   append(append([]string{}, flagInputs...), configPath()),
		Interval:     time.Duration(d.IntervalSec) * time.Second,
		Throttle:     time.Duration(d.ThrottleMs) * time.Millisecond,
		Addr:         d.Addr,
		EventsBuffer: d.EventsBuffer,

		AllowedOrigins: d.AllowedOrigins,
	}
	flags := cmd.Flags()
	if flags.Changed("addr") {
		out.Addr = flagDaemonAddr
	}
	if flags.Changed("interval") {
		out.Interval = flagDaemonInterval
	}
	if flags.Changed("throttle") {
		out.Throttle = flagDaemonThrottle
	}
	return out
}

func runDaemonForeground(cmd *cobra.Command) error {
	sources, err := openSources()
	if err != nil {
		return err
	}
	if err := ensureDaemonNotRunning(flagDaemonPIDFile); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(flagDaemonPIDFile), 0o750); err != nil {
		return eris.Wrap(err, "create daemon directory")
	}

	pid := os.Getpid()
	if err := writePID(flagDaemonPIDFile, pid); err != nil {
		return err
	}
	defer func() { _ = os.Remove(flagDaemonPIDFile) }()

	cfg := daemonConfig(cmd)

	state := daemonRuntimeState{
		PID:       pid,
		Addr:      cfg.Addr,
		StartedAt: time.Now(),
		Inputs:    flagInputs,
	}
	if err := writeState(statePath(flagDaemonPIDFile), state); err != nil {
		logging.Warn("write daemon state", zap.Error(err))
	}
	defer func() { _ = os.Remove(statePath(flagDaemonPIDFile)) }()

	var history *store.History
	if !flagDaemonNoHistory {
		history, err = store.Open(historyPath())
		if err != nil {
			return err
		}
		defer func() { _ = history.Close() }()
	}

	svc := daemon.New(cfg,
		config.FileSettings{Path: flagConfig},
		pipeline.MultiSource{Sources: sources},
		history,
	)

	fmt.Printf("  knackcost daemon listening on http://%s\n", cfg.Addr)
	fmt.Printf("  Watching %s (poll every %s)\n", strings.Join(cfg.WatchPaths, ", "), cfg.Interval)
	fmt.Printf("  Stop with: knackcost daemon stop --pid-file %s\n", flagDaemonPIDFile)

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runDaemonStatus(_ *cobra.Command, _ []string) error {
	pid, err := readPID(flagDaemonPIDFile)
	if err != nil {
		fmt.Printf("  Daemon: not running (pid file not found)\n")
		return nil
	}

	if !processAlive(pid) {
		fmt.Printf("  Daemon: stale pid file (pid %d not alive)\n", pid)
		return nil
	}

	addr := flagDaemonAddr
	if st, err := readState(statePath(flagDaemonPIDFile)); err == nil && st.Addr != "" {
		addr = st.Addr
	}

	fmt.Printf("  Daemon PID: %d\n", pid)
	fmt.Printf("  Address: http://%s\n", addr)

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + addr + "/v1/status") //nolint:noctx // short status check
	if err != nil {
		fmt.Printf("  API status: unreachable (%v)\n", err)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("  API status: HTTP %d\n", resp.StatusCode)
		return nil
	}

	var st daemon.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		fmt.Printf("  API status: malformed response (%v)\n", err)
		return nil
	}

	if st.LastPassAt.IsZero() {
		fmt.Printf("  Last pass: pending\n")
	} else {
		fmt.Printf("  Last pass: %s\n", st.LastPassAt.Local().Format(time.RFC3339))
	}
	fmt.Printf("  Pass count: %d\n", st.PassCount)
	fmt.Printf("  Apps: %d\n", st.Summary.Rows)
	fmt.Printf("  Records: %d\n", st.Summary.Records)
	fmt.Printf("  Cost: %s\n", st.Summary.CostText)
	if st.LastError != "" {
		fmt.Printf("  Last error: %s\n", st.LastError)
	}
	return nil
}

func runDaemonStop(_ *cobra.Command, _ []string) error {
	pid, err := readPID(flagDaemonPIDFile)
	if err != nil {
		return eris.New("daemon is not running")
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return eris.Wrap(err, "find daemon process")
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return eris.Wrap(err, "signal daemon process")
	}

	deadline := time.Now().Add(8 * time.Second)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			_ = os.Remove(flagDaemonPIDFile)
			_ = os.Remove(statePath(flagDaemonPIDFile))
			fmt.Printf("  Stopped daemon (pid %d)\n", pid)
			return nil
		}
		time.Sleep(150 * time.Millisecond)
	}

	return eris.Errorf("daemon (pid %d) did not exit in time", pid)
}

func filterDetachArg(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a == "--detach" || strings.HasPrefix(a, "--detach=") {
			continue
		}
		out = append(out, a)
	}
	return out
}

func ensureDaemonNotRunning(pidFile string) error {
	pid, err := readPID(pidFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if processAlive(pid) {
		return eris.Errorf("daemon already running (pid %d)", pid)
	}
	_ = os.Remove(pidFile)
	_ = os.Remove(statePath(pidFile))
	return nil
}

func writePID(path string, pid int) error {
	return os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0o600)
}

func readPID(path string) (int, error) {
	//nolint:gosec // daemon pid path is configured by the local user
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, eris.Errorf("invalid pid in %s", path)
	}
	return pid, nil
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

func statePath(pidFile string) string {
	return pidFile + ".json"
}

func writeState(path string, st daemonRuntimeState) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

func readState(path string) (daemonRuntimeState, error) {
	var st daemonRuntimeState
	//nolint:gosec // daemon state path is configured by the local user
	data, err := os.ReadFile(path)
	if err != nil {
		return st, err
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return st, err
	}
	return st, nil
}
