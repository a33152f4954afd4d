package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/runanywhere/nativeaudio/internal/play"
	"github.com/runanywhere/nativeaudio/internal/service"

	"github.com/spf13/cobra"
)

var playCmd = &cobra.Command{
	Use:   "play [file-or-recording]",
	Short: "Play a WAV file",
	Long: `Play a 16 kHz mono 16-bit WAV file through the default output device.
The argument may be a path, a file:// URI or the name of a recording in the
output directory.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := play.ResolveSource(cfg.Output.Directory, args[0])
		if err != nil {
			return err
		}

		svc := service.New(cfg)
		defer svc.Close()

		if err := playToEnd(svc, path); err != nil {
			return fmt.Errorf("playback failed: %w", err)
		}
		return executePipeline(svc, path, 'p')
	},
}

// playToEnd plays path and returns when it finishes or on Ctrl+C.
func playToEnd(svc service.Service, path string) error {
	duration, err := svc.PlayAudio(path)
	if err != nil {
		return err
	}
	fmt.Printf("Playing: %s (%.2fs)\n", path, duration)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-sigChan:
			fmt.Println("\nPlayback interrupted")
			return svc.StopPlayback()
		case <-ticker.C:
			status := svc.GetPlaybackStatus()
			fmt.Printf("\r%6.2fs / %.2fs", status.CurrentTime, status.Duration)
			if !status.IsPlaying {
				fmt.Println()
				return svc.StopPlayback()
			}
		}
	}
}
