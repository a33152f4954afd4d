package cmd

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/runanywhere/nativeaudio/internal/audio"
	"github.com/runanywhere/nativeaudio/internal/config"
	"github.com/runanywhere/nativeaudio/internal/play"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info [file-or-recording]",
	Short: "Show resolved configuration and WAV details",
	Long: `Display the resolved configuration with inheritance indicators. Values
marked [inherited] come from the default profile, [profile-specific] from the
selected one. With an argument, the WAV header of that file is shown too.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			if err := printWavInfo(args[0]); err != nil {
				return err
			}
		}

		inh := cfg.Inheritance
		if inh == nil {
			inh = &config.InheritanceInfo{}
		}

		fmt.Printf("=== RESOLVED CONFIGURATION ===\n")

		fmt.Printf("\n[Capture]\n")
		fmt.Printf("backend: %s %s\n", cfg.Capture.Backend, getInheritanceIndicator(inh.Capture.Backend))
		fmt.Printf("device: %q %s\n", cfg.Capture.Device, getInheritanceIndicator(inh.Capture.Device))
		fmt.Printf("block_frames: %d %s\n", cfg.Capture.BlockFrames, getInheritanceIndicator(inh.Capture.BlockFrames))
		fmt.Printf("permission: %s %s\n", cfg.Capture.Permission, getInheritanceIndicator(inh.Capture.Permission))
		fmt.Printf("join_timeout: %s\n", cfg.Capture.JoinTimeout)
		fmt.Printf("include_base64: %t %s\n", cfg.Capture.Base64Enabled(), getInheritanceIndicator(inh.Capture.IncludeBase64))
		fmt.Printf("format: %s\n", audio.DefaultFormat)

		fmt.Printf("\n[Playback]\n")
		fmt.Printf("buffer_size: %s\n", cfg.Playback.BufferSize)

		fmt.Printf("\n[Output]\n")
		fmt.Printf("directory: %s %s\n", cfg.Output.Directory, getInheritanceIndicator(inh.Output.Directory))

		fmt.Printf("\n[Server]\n")
		fmt.Printf("host: %s\n", cfg.Server.Host)
		fmt.Printf("port: %d %s\n", cfg.Server.Port, getInheritanceIndicator(inh.Server.Port))

		return nil
	},
}

func printWavInfo(name string) error {
	path, err := play.ResolveSource(cfg.Output.Directory, name)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return err
	}

	header, err := audio.ReadWavHeader(f)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	fmt.Printf("=== FILE ===\n")
	fmt.Printf("path: %s\n", path)
	fmt.Printf("size: %s\n", humanize.Bytes(uint64(stat.Size())))
	fmt.Printf("modified: %s\n", humanize.Time(stat.ModTime()))
	fmt.Printf("format: %s\n", header.Format)
	fmt.Printf("data_bytes: %s\n", humanize.Comma(int64(header.DataSize)))
	fmt.Printf("duration: %.2fs\n", header.Duration())
	if header.Format != audio.DefaultFormat {
		fmt.Printf("playable: no (expected %s)\n", audio.DefaultFormat)
	} else {
		fmt.Printf("playable: yes\n")
	}
	fmt.Println()
	return nil
}

// getInheritanceIndicator returns a formatted indicator for inheritance status
func getInheritanceIndicator(status string) string {
	switch status {
	case "inherited":
		return "[inherited]"
	case "profile-specific":
		return "[profile-specific]"
	default:
		return "[default]"
	}
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
