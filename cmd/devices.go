package cmd

import (
	"fmt"
	"runtime"

	"github.com/runanywhere/nativeaudio/internal/audio"

	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:     "devices",
	Aliases: []string{"sources"},
	Short:   "List capture backends and input devices",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("Audio inputs (%s)\n\n", runtime.GOOS)

		fmt.Printf("Compiled backends:\n")
		for _, b := range audio.GetAvailableBackends() {
			fmt.Printf("  - %s\n", b)
		}

		backend := audio.NewBackend(cfg)
		fmt.Printf("\nConfigured backend: %s\n", backend.GetType())

		sources, err := backend.ListSources()
		if err != nil {
			return fmt.Errorf("failed to list %s sources: %w", backend.GetType(), err)
		}

		fmt.Printf("Sources (%d found):\n", len(sources))
		for i, source := range sources {
			fmt.Printf("  %d. %s\n", i+1, source)
		}

		if backend.GetType() == audio.BackendTypePortAudio {
			fmt.Printf("\nSet capture.device to one of the names above to pick an input.\n")
		}
		return nil
	},
}
