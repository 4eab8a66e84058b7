package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"goft8/internal/app"
	"goft8/internal/window"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand(os.Stdout, os.Stderr)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCommand builds the command tree. Decode lines go to out, logs to logOut.
func newRootCommand(out, logOut io.Writer) *cobra.Command {
	config := app.DefaultConfig()
	var configFile string
	var selfTestSNR float64
	var selfTestSeed int64

	newApp := func() *app.Application {
		application := app.NewApplication(config)
		application.SetOutput(out)
		application.SetLogOutput(logOut)
		return application
	}

	rootCmd := &cobra.Command{
		Use:   "goft8",
		Short: "FT8 weak-signal decoder",
		Long: `FT8 weak-signal decoder.

Decodes 15 second FT8 slots from 12 kHz WAV recordings: spectrogram, Costas
sync search, soft demodulation, LDPC (174,91) decoding with CRC-14 check and
77-bit message unpacking. Output follows the WSJT-X band activity format.

Example usage:
  goft8 decode --locator FN42 240601_120000.wav
  goft8 level capture.wav
  goft8 selftest --snr -15`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configFile == "" {
				return nil
			}
			return applyConfigFile(cmd.Flags(), configFile, &config)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if config.ShowVersion {
				app.ShowVersion(out)
				return nil
			}
			return cmd.Help()
		},
	}

	decodeCmd := &cobra.Command{
		Use:   "decode FILE...",
		Short: "Decode FT8 messages from WAV recordings",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := newApp().Run(cmd.Context(), args)
			return err
		},
	}

	levelCmd := &cobra.Command{
		Use:   "level FILE...",
		Short: "Check recording levels for decoding",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			levels, err := newApp().CheckLevels(args)
			if err != nil {
				return err
			}
			for _, l := range levels {
				if l.Status != window.LevelOK {
					return fmt.Errorf("%d of %d files outside the usable level range", countBad(levels), len(levels))
				}
			}
			return nil
		},
	}

	selfTestCmd := &cobra.Command{
		Use:   "selftest",
		Short: "Decode a synthetic slot of known messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application := newApp()
			if err := application.Start(cmd.Context()); err != nil {
				return err
			}
			defer application.Shutdown()

			_, err := application.SelfTest(cmd.Context(), selfTestSNR, selfTestSeed)
			return err
		},
	}
	selfTestCmd.Flags().Float64Var(&selfTestSNR, "snr", app.DefaultSelfTestSNR, "SNR of the synthetic signals (dB in 2500 Hz)")
	selfTestCmd.Flags().Int64Var(&selfTestSeed, "seed", 1, "Noise seed")

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "YAML configuration file (flags override it)")
	flags.BoolVarP(&config.Verbose, "verbose", "v", config.Verbose, "Verbose logging")
	flags.Float64Var(&config.Threshold, "threshold", config.Threshold, "Sync detection threshold (dB)")
	flags.IntVar(&config.MaxCandidates, "max-candidates", config.MaxCandidates, "Maximum sync candidates per slot")
	flags.IntVar(&config.Iterations, "iterations", config.Iterations, "LDPC iteration cap")
	flags.Float64Var(&config.MinFreq, "min-freq", config.MinFreq, "Lowest base tone searched (Hz)")
	flags.Float64Var(&config.MaxFreq, "max-freq", config.MaxFreq, "Highest base tone searched (Hz)")
	flags.DurationVar(&config.Deadline, "deadline", config.Deadline, "Decode deadline per slot")
	flags.IntVarP(&config.Workers, "workers", "w", config.Workers, "Parallel candidate workers")
	flags.StringVarP(&config.LogDir, "log-dir", "l", config.LogDir, "Decode log directory (empty disables)")
	flags.BoolVarP(&config.LogRotateUTC, "utc", "u", config.LogRotateUTC, "Use UTC for log rotation")
	flags.IntVar(&config.LogKeepDays, "log-keep-days", config.LogKeepDays, "Delete decode logs older than this many days (0 keeps all)")
	flags.StringVar(&config.Format, "format", config.Format, "Output format: wsjtx or alltxt")
	flags.Float64Var(&config.DialMHz, "dial", config.DialMHz, "Dial frequency written to the decode log (MHz)")
	flags.StringVar(&config.Locator, "locator", config.Locator, "Home Maidenhead locator for distance and bearing")
	flags.StringVar(&config.MetricsAddr, "metrics-addr", config.MetricsAddr, "Serve Prometheus metrics on this address")
	flags.StringVar(&config.MQTT.Broker, "mqtt-broker", config.MQTT.Broker, "MQTT broker URL for spot publishing")
	flags.StringVar(&config.MQTT.Topic, "mqtt-topic", config.MQTT.Topic, "MQTT topic for spots")
	flags.Float64Var(&config.SniperFreq, "sniper-freq", config.SniperFreq, "Band-pass around this frequency before decoding (Hz)")
	flags.Float64Var(&config.SniperWidth, "sniper-width", window.DefaultBandwidth, "Sniper band-pass width (Hz)")
	rootCmd.Flags().BoolVar(&config.ShowVersion, "version", false, "Show version information")

	rootCmd.AddCommand(decodeCmd, levelCmd, selfTestCmd)
	return rootCmd
}

// applyConfigFile loads the file and then restores every flag set on the command line
func applyConfigFile(flags *pflag.FlagSet, path string, config *app.Config) error {
	changed := make(map[string]string)
	flags.Visit(func(f *pflag.Flag) {
		changed[f.Name] = f.Value.String()
	})

	if err := app.LoadConfigFile(path, config); err != nil {
		return err
	}

	for name, value := range changed {
		if err := flags.Set(name, value); err != nil {
			return fmt.Errorf("failed to reapply --%s: %w", name, err)
		}
	}
	return nil
}

func countBad(levels []window.Level) int {
	n := 0
	for _, l := range levels {
		if l.Status != window.LevelOK {
			n++
		}
	}
	return n
}
