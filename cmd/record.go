package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/runanywhere/nativeaudio/internal/service"

	"github.com/spf13/cobra"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record from the microphone to a WAV file",
	Long: `Record 16 kHz mono 16-bit audio from the configured input until Ctrl+C
is pressed or --duration elapses. The recording is written to the output
directory as recording_<unix-millis>.wav.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		duration, _ := cmd.Flags().GetDuration("duration")
		meter, _ := cmd.Flags().GetBool("meter")
		if output, _ := cmd.Flags().GetString("output"); output != "" {
			cfg.Output.Directory = output
		}

		svc := service.New(cfg)
		defer svc.Close()

		start, err := svc.StartRecording()
		if err != nil {
			return fmt.Errorf("failed to start recording: %w", err)
		}
		slog.Info("Recording started", "path", start.Path)
		fmt.Println("Recording - Press Ctrl+C to stop")

		// Handle interruption
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		var timeout <-chan time.Time
		if duration > 0 {
			timeout = time.After(duration)
		}

		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()

	wait:
		for {
			select {
			case <-sigChan:
				break wait
			case <-timeout:
				break wait
			case <-ticker.C:
				if meter {
					printLevel(svc.GetAudioLevel())
				}
			}
		}
		if meter {
			fmt.Fprintln(os.Stderr)
		}

		slog.Info("Stopping recording...")
		result, err := svc.StopRecording()
		if err != nil {
			return fmt.Errorf("failed to stop recording: %w", err)
		}
		printRecording(result)

		// Execute pipeline if specified
		return executePipeline(svc, result.Path, 'r')
	},
}

// printLevel draws a one-line level meter on stderr.
func printLevel(level float64) {
	const width = 40
	n := int(level * width)
	fmt.Fprintf(os.Stderr, "\r[%-*s] %3.0f%%", width, strings.Repeat("#", n), level*100)
}

func printRecording(r *service.StopResult) {
	fmt.Printf("Saved %s (%s, %.2fs, %d Hz, %d ch)\n",
		r.Path, humanize.Bytes(uint64(r.FileSize)), r.Duration, r.SampleRate, r.Channels)
}

func init() {
	recordCmd.Flags().StringP("output", "o", "", "output directory (overrides config)")
	recordCmd.Flags().DurationP("duration", "d", 0, "stop automatically after this long (0 records until Ctrl+C)")
	recordCmd.Flags().BoolP("meter", "m", false, "show a live input level meter")
}
