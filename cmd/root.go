package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/runanywhere/nativeaudio/internal/config"

	"github.com/spf13/cobra"
)

var (
	cfg          *config.Config
	cfgFile      string
	pipeline     string
	profile      string
	verboseLevel int
)

var rootCmd = &cobra.Command{
	Use:   "nativeaudio",
	Short: "Microphone capture and WAV playback bridge",
	Long: `nativeaudio records 16 kHz mono 16-bit PCM from the default microphone,
writes it as WAV files and plays WAV files back.

The same operations are available from the command line, as named bridge
methods and over HTTP with 'nativeaudio serve'.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Log at the verbose level until the config says otherwise
		setupLogging(verboseLevel, config.LogConfig{})

		var err error
		if cfgFile != "" {
			cfg, err = config.LoadWithProfile(cfgFile, profile)
		} else {
			cfg, err = config.Load(config.DefaultConfigFile(), profile)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		setupLogging(verboseLevel, cfg.Log)

		// Validate pipeline if provided
		if err := validatePipeline(); err != nil {
			return err
		}

		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is the per-user config dir, nativeaudio.yaml)")
	rootCmd.PersistentFlags().StringVarP(&pipeline, "pipeline", "p", "", "pipeline steps: r=record, p=play (e.g., 'rp')")
	rootCmd.PersistentFlags().StringVar(&profile, "profile", "", "configuration profile to use (overrides active_config from file)")
	rootCmd.PersistentFlags().IntVarP(&verboseLevel, "verbose", "v", 0, "verbose level: 0=config log level, 1=debug")

	// Add subcommands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(serveCmd)
}

// setupLogging configures slog from the verbose level and log settings.
// Any verbose level above 0 forces debug.
func setupLogging(level int, logCfg config.LogConfig) {
	var slogLevel slog.Level
	switch strings.ToLower(logCfg.Level) {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}
	if level >= 1 {
		slogLevel = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: slogLevel,
	}

	var handler slog.Handler
	if strings.EqualFold(logCfg.Format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		// Text handler for clean terminal output
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
