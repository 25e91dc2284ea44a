// Command generator sends impression or click stream to the streaming join.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	streamgen "github.com/ozonru/streamjoin-generator"
)

var (
	configPath string
	profileURL string
	flagCfg    = streamgen.DefaultConfig()
)

var rootCmd = &cobra.Command{
	Use:           "generator <destination-host> <source-port> <impression|click>",
	Short:         "Send synthetic impression or click stream over UDP",
	Args:          validateArgs,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&configPath, "config", "", "YAML profile file")
	f.StringVar(&profileURL, "profile-url", "", "fetch YAML profile from this url")
	f.IntVar(&flagCfg.UniverseSize, "universe", flagCfg.UniverseSize, "number of ad ids")
	f.IntVar(&flagCfg.SampleSize, "samples", flagCfg.SampleSize, "records to send, 0 means whole universe")
	f.DurationVar(&flagCfg.PacingDelay, "pacing", flagCfg.PacingDelay, "delay after every send")
	f.StringVar(&flagCfg.Interface, "iface", flagCfg.Interface, "interface name must contain this substring")
	f.StringVar(&flagCfg.OnSendError, "on-error", flagCfg.OnSendError, "send error policy: continue or abort")
	f.Int64Var(&flagCfg.Seed, "seed", flagCfg.Seed, "random seed, 0 means time based")
	f.IntVar(&flagCfg.MetricsPort, "metrics-port", flagCfg.MetricsPort, "port for /metrics and /status, 0 disables")
	f.StringVar(&flagCfg.Environment, "env", flagCfg.Environment, "logger environment")
}

func validateArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.ExactArgs(3)(cmd, args); err != nil {
		return err
	}
	if _, err := parsePort(args[1]); err != nil {
		return err
	}
	_, err := streamgen.ParseKind(args[2])

	return err
}

func parsePort(s string) (int, error) {
	p, err := strconv.Atoi(s)
	if err != nil || p < 0 || p > 0xFFFF {
		return 0, errors.Errorf("invalid source port %q", s)
	}

	return p, nil
}

// loadConfig applies profile file, remote profile and explicitly set flags, in that order.
func loadConfig(ctx context.Context, cmd *cobra.Command) (streamgen.Config, error) {
	cfg := streamgen.DefaultConfig()

	var err error
	if configPath != "" {
		if cfg, err = streamgen.LoadConfig(configPath); err != nil {
			return cfg, err
		}
	}

	if profileURL != "" {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		if cfg, err = streamgen.NewRemoteProfile(profileURL).Fetch(ctx, cfg); err != nil {
			return cfg, err
		}
	}

	f := cmd.Flags()
	if f.Changed("universe") {
		cfg.UniverseSize = flagCfg.UniverseSize
	}
	if f.Changed("samples") {
		cfg.SampleSize = flagCfg.SampleSize
	}
	if f.Changed("pacing") {
		cfg.PacingDelay = flagCfg.PacingDelay
	}
	if f.Changed("iface") {
		cfg.Interface = flagCfg.Interface
	}
	if f.Changed("on-error") {
		cfg.OnSendError = flagCfg.OnSendError
	}
	if f.Changed("seed") {
		cfg.Seed = flagCfg.Seed
	}
	if f.Changed("metrics-port") {
		cfg.MetricsPort = flagCfg.MetricsPort
	}
	if f.Changed("env") {
		cfg.Environment = flagCfg.Environment
	}

	return cfg, nil
}

func run(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig(ctx, cmd)
	if err != nil {
		return err
	}

	log, err := streamgen.NewLogger(cfg.Environment)
	if err != nil {
		return errors.Wrap(err, "failed to initialize logger")
	}
	defer log.Sync()

	srcPort, _ := parsePort(args[1])
	kind, _ := streamgen.ParseKind(args[2])

	var opts []streamgen.Option
	if cfg.MetricsPort != 0 {
		m := streamgen.NewMetrics(cfg.PacingDelay, 10)
		m.RunHTTPHandlers(cfg.MetricsPort, log)
		defer func() {
			if err := m.Close(); err != nil {
				log.Error("failed to stop metrics handler", zap.Error(err))
			}
		}()
		opts = append(opts, streamgen.WithMetrics(m))
	}

	g, err := streamgen.NewGenerator(cfg, log, opts...)
	if err != nil {
		return err
	}

	report, err := g.Run(ctx, streamgen.Request{Host: args[0], SourcePort: srcPort, Kind: kind})
	if err != nil {
		log.Error("run failed", zap.Error(err))
		return err
	}
	fmt.Printf("attempted=%d sent=%d failed=%d\n", report.Attempted, report.Sent, report.Failed)

	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
