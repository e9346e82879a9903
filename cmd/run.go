package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	auditagent "github.com/netaudit/AuditAgent"
	"github.com/netaudit/AuditAgent/internal/config"
	"github.com/netaudit/AuditAgent/internal/inventory"
	"github.com/netaudit/AuditAgent/internal/progress"
	"github.com/netaudit/AuditAgent/internal/providers/cisco"
	"github.com/netaudit/AuditAgent/internal/report"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	outputTimeLayout = "2006-01-02_15-04-05"
	shutdownGrace    = 10 * time.Second
)

func newRunCmd() *cobra.Command {
	var (
		flagDevices   string
		flagDevice    []string
		flagWorkers   int
		flagTimeout   time.Duration
		flagOutput    string
		flagCSV       string
		flagJSONL     string
		flagNoHistory bool
		flagNoLogFile bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Audit the device inventory and write the CSV report",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := RunConfig{
				InventoryPath: flagDevices,
				Devices:       flagDevice,
				Workers:       flagWorkers,
				Timeout:       flagTimeout,
				OutputDir:     flagOutput,
				CSVPath:       flagCSV,
				JSONLPath:     flagJSONL,
				NoHistory:     flagNoHistory,
				NoLogFile:     flagNoLogFile,
				Username:      rootUsername,
			}
			res, err := RunAudit(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			fmt.Printf("\nAudit complete. Results saved to %s\n", res.CSVPath)
			if res.LogPath != "" {
				fmt.Printf("Log saved to %s\n", res.LogPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flagDevices, "devices", "devices.txt", "device inventory: plain list or .yaml run description")
	cmd.Flags().StringSliceVar(&flagDevice, "device", nil, "audit these devices instead of the inventory file")
	cmd.Flags().IntVar(&flagWorkers, "workers", 0, "concurrent device sessions (default 10)")
	cmd.Flags().DurationVar(&flagTimeout, "timeout", 0, "per-device session timeout (default 30s)")
	cmd.Flags().StringVar(&flagOutput, "output", "", "directory for timestamped report files (default current dir)")
	cmd.Flags().StringVar(&flagCSV, "csv", "", "explicit CSV report path, overrides --output naming")
	cmd.Flags().StringVar(&flagJSONL, "jsonl", "", "also mirror rows to this JSONL file")
	cmd.Flags().BoolVar(&flagNoHistory, "no-history", false, "skip the SQLite history mirror")
	cmd.Flags().BoolVar(&flagNoLogFile, "no-log-file", false, "log to console only")

	return cmd
}

// RunConfig carries everything the run subcommand resolved from flags.
type RunConfig struct {
	InventoryPath string
	Devices       []string
	Workers       int
	Timeout       time.Duration
	OutputDir     string
	CSVPath       string
	JSONLPath     string
	NoHistory     bool
	NoLogFile     bool
	Username      string
}

// RunResult reports where the audit landed and how it went.
type RunResult struct {
	RunID   string
	CSVPath string
	LogPath string
	Total   int
	OK      int
	Failed  int
	Elapsed time.Duration
}

// RunAudit resolves the inventory and credentials, then drives the worker
// pool to completion. Flag values win over inventory overrides, which win
// over environment defaults.
func RunAudit(ctx context.Context, cfg RunConfig) (*RunResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	devices, inv, err := resolveDevices(cfg)
	if err != nil {
		return nil, err
	}
	if len(devices) == 0 {
		return nil, errors.Errorf("no devices found in %s", cfg.InventoryPath)
	}

	workers := cfg.Workers
	if workers <= 0 && inv != nil {
		workers = inv.Workers
	}
	if workers <= 0 {
		workers = config.Int(auditagent.EnvWorkers, 0)
	}
	timeout := cfg.Timeout
	if timeout <= 0 && inv != nil {
		timeout = inv.Timeout()
	}
	if timeout <= 0 {
		timeout = config.Duration(auditagent.EnvConnectTimeout, 0)
	}
	outputDir := cfg.OutputDir
	if outputDir == "" && inv != nil {
		outputDir = inv.Output
	}
	if outputDir == "" {
		outputDir = config.String(auditagent.EnvOutputDir, ".")
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create output dir %s", outputDir)
	}

	started := time.Now()
	stamp := started.Format(outputTimeLayout)
	csvPath := cfg.CSVPath
	if csvPath == "" {
		csvPath = filepath.Join(outputDir, fmt.Sprintf("network_audit_%s.csv", stamp))
	}

	logPath := ""
	if !cfg.NoLogFile {
		logPath = filepath.Join(outputDir, fmt.Sprintf("network_audit_%s.log", stamp))
		logFile, err := os.Create(logPath)
		if err != nil {
			return nil, errors.Wrap(err, "create log file")
		}
		defer logFile.Close()
		console := zerolog.ConsoleWriter{Out: os.Stderr}
		log.Logger = zerolog.New(zerolog.MultiLevelWriter(console, logFile)).With().Timestamp().Logger()
	}

	creds, err := resolveCredentials(cfg.Username)
	if err != nil {
		return nil, err
	}

	manager, err := report.NewManager(report.Config{
		CSVPath:        csvPath,
		JSONLPath:      cfg.JSONLPath,
		DisableHistory: cfg.NoHistory,
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := manager.Close(); err != nil {
			log.Error().Err(err).Msg("close report sinks failed")
		}
	}()

	pool, err := auditagent.NewAuditPool(auditagent.Config{
		Workers:     workers,
		Timeout:     timeout,
		Credentials: creds,
		Provider:    cisco.NewDefault(),
		Sink:        manager,
		Progress:    progress.NewBar(len(devices)),
		Runs:        manager.Runs(),
		Logger:      &log.Logger,
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("devices", len(devices)).
		Str("report", csvPath).
		Str("sinks", manager.Name()).
		Msg("starting network audit")

	summaryCh := make(chan *auditagent.RunSummary, 1)
	sg := auditagent.NewSafeGroup(ctx)
	sg.GoSafe("audit run", func(ctx context.Context) error {
		summary, err := pool.Run(ctx, devices)
		summaryCh <- summary
		return err
	})
	waitErr := sg.WaitOrInterrupt(shutdownGrace)

	var summary *auditagent.RunSummary
	select {
	case summary = <-summaryCh:
	default:
	}
	if summary == nil {
		if waitErr == nil {
			waitErr = errors.New("audit run did not complete")
		}
		return nil, waitErr
	}
	if waitErr != nil {
		log.Warn().Err(waitErr).Msg("audit interrupted")
	}

	res := &RunResult{
		RunID:   summary.RunID,
		CSVPath: csvPath,
		LogPath: logPath,
		Total:   summary.Total,
		OK:      summary.OK,
		Failed:  summary.Failed,
		Elapsed: summary.Elapsed,
	}
	log.Info().
		Str("run_id", res.RunID).
		Int("ok", res.OK).
		Int("failed", res.Failed).
		Dur("elapsed", res.Elapsed).
		Msg("network audit finished")
	return res, nil
}

func resolveDevices(cfg RunConfig) ([]string, *inventory.Inventory, error) {
	if len(cfg.Devices) > 0 {
		devices := make([]string, 0, len(cfg.Devices))
		for _, d := range cfg.Devices {
			if trimmed := strings.TrimSpace(d); trimmed != "" {
				devices = append(devices, trimmed)
			}
		}
		if len(devices) == 0 {
			return nil, nil, errors.New("no devices supplied via --device")
		}
		return devices, nil, nil
	}
	inv, err := inventory.Load(cfg.InventoryPath)
	if err != nil {
		return nil, nil, err
	}
	return inv.Devices, inv, nil
}

// resolveCredentials gathers SSH credentials from flags, environment, and
// finally an interactive prompt. Secrets never reach the logs.
func resolveCredentials(usernameFlag string) (auditagent.Credentials, error) {
	creds := auditagent.Credentials{
		Username:     strings.TrimSpace(usernameFlag),
		Password:     os.Getenv(auditagent.EnvSSHPassword),
		EnableSecret: os.Getenv(auditagent.EnvEnableSecret),
	}
	if creds.Username == "" {
		creds.Username = config.String(auditagent.EnvSSHUsername, "")
	}

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	if creds.Username == "" {
		if !interactive {
			return creds, errors.Errorf("ssh username required: set --username or %s", auditagent.EnvSSHUsername)
		}
		username, err := promptLine("Enter SSH username: ")
		if err != nil {
			return creds, err
		}
		creds.Username = username
	}
	if creds.Username == "" {
		return creds, errors.New("ssh username cannot be empty")
	}
	if creds.Password == "" {
		if !interactive {
			return creds, errors.Errorf("ssh password required: set %s", auditagent.EnvSSHPassword)
		}
		password, err := promptSecret("Enter SSH password: ")
		if err != nil {
			return creds, err
		}
		creds.Password = password
	}
	if creds.EnableSecret == "" && interactive {
		secret, err := promptSecret("Enter enable secret (blank to skip): ")
		if err != nil {
			return creds, err
		}
		creds.EnableSecret = secret
	}
	return creds, nil
}

func promptLine(promptText string) (string, error) {
	fmt.Fprint(os.Stderr, promptText)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", errors.Wrap(err, "read prompt input")
	}
	return strings.TrimSpace(line), nil
}

func promptSecret(promptText string) (string, error) {
	fmt.Fprint(os.Stderr, promptText)
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", errors.Wrap(err, "read secret input")
	}
	return strings.TrimSpace(string(secret)), nil
}
