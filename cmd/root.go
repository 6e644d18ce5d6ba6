package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	nagios "github.com/atc0005/go-nagios"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/m-erhardt/check-vcenter/internal/config"
	"github.com/m-erhardt/check-vcenter/internal/telemetry"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var flags = struct {
	mode       string
	user       string
	password   string
	url        string
	timeout    int
	cacert     string
	insecure   bool
	debug      bool
	diskWarn   float64
	diskCrit   float64
	configFile string
	authFile   string
}{}

var rootCmd = &cobra.Command{
	Use:   "check_vcenter",
	Short: "Icinga/Nagios plugin that checks a VMware vCenter",
	Long: `check_vcenter queries a VMware vCenter via the vSphere Automation
API and reports the state of virtual machines, ESXi hosts or datastores
in monitoring plugin format (exit codes 0/1/2/3, summary line plus
per-object detail lines and performance data).`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(config.Flags{
			Mode:       flags.mode,
			User:       flags.user,
			Password:   flags.password,
			URL:        flags.url,
			Timeout:    flags.timeout,
			CACert:     flags.cacert,
			Insecure:   flags.insecure,
			Debug:      flags.debug,
			DiskWarn:   flags.diskWarn,
			DiskCrit:   flags.diskCrit,
			ConfigFile: flags.configFile,
			AuthFile:   flags.authFile,
			Changed:    cmd.Flags().Changed,
		})
		if err != nil {
			return err
		}

		log := newLogger(cfg.Debug)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		otelShutdown, err := telemetry.Init(ctx, &cfg.Telemetry, cfg.Debug)
		if err != nil {
			return fmt.Errorf("failed to init telemetry: %w", err)
		}

		runner, err := initRunner(cfg, log)
		if err != nil {
			return err
		}

		result := runner.Run(ctx)

		_ = log.Sync()
		_ = otelShutdown(context.Background())

		p := nagios.NewPlugin()
		result.ApplyToPlugin(p)
		p.ReturnCheckResults()
		return nil
	},
}

// Execute runs the plugin. Argument and startup errors terminate with
// UNKNOWN before any network call, keeping the one-line output guarantee.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Printf("UNKNOWN - %v\n", err)
		os.Exit(3)
	}
}

func init() {
	rootCmd.Flags().StringVarP(&flags.mode, "mode", "m", "", "query mode (vms|hosts|datastores)")
	rootCmd.Flags().StringVarP(&flags.user, "user", "u", "", "username for vCenter")
	rootCmd.Flags().StringVarP(&flags.password, "pass", "p", "", "password for vCenter")
	rootCmd.Flags().StringVar(&flags.url, "url", "", "base URL of vCenter")
	rootCmd.Flags().IntVarP(&flags.timeout, "timeout", "t", 10, "API timeout in seconds")
	rootCmd.Flags().StringVar(&flags.cacert, "cacert", config.DefaultCACert, "path to CA certificate bundle")
	rootCmd.Flags().BoolVar(&flags.insecure, "insecure", false, "skip TLS certificate verification")
	rootCmd.Flags().BoolVar(&flags.debug, "debug", false, "print debug information")
	rootCmd.Flags().Float64Var(&flags.diskWarn, "diskwarn", 80, "datastore usage warning threshold in percent")
	rootCmd.Flags().Float64Var(&flags.diskCrit, "diskcrit", 90, "datastore usage critical threshold in percent")
	rootCmd.Flags().StringVarP(&flags.configFile, "config", "c", "", "optional YAML config file")
	rootCmd.Flags().StringVar(&flags.authFile, "authfile", "", "optional INI file with user/password keys")
}

// newLogger builds the plugin logger. All log output goes to stderr:
// stdout is reserved for the plugin output line parsed by the scheduler.
func newLogger(debug bool) *zap.Logger {
	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}
	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Encoding:         "console",
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "T",
			LevelKey:       "L",
			MessageKey:     "M",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
		},
	}
	logger, _ := cfg.Build()
	return logger
}
