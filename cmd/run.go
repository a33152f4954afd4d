package cmd

import (
	"fmt"
	"strings"

	"github.com/runanywhere/nativeaudio/internal/play"
	"github.com/runanywhere/nativeaudio/internal/service"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Execute pipeline steps",
	Long: `Execute the steps given with -p in order. 'r' records until Enter is
pressed, 'p' plays the last recording, or the file given as argument when the
pipeline starts with 'p'.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if pipeline == "" {
			return fmt.Errorf("no pipeline specified, use -p flag (e.g., -p rp)")
		}

		var path string
		if len(args) == 1 {
			resolved, err := play.ResolveSource(cfg.Output.Directory, args[0])
			if err != nil {
				return err
			}
			path = resolved
		}

		svc := service.New(cfg)
		defer svc.Close()

		last, err := runSteps(svc, []rune(strings.ToLower(pipeline)), path)
		if err != nil {
			return err
		}

		if last != "" {
			fmt.Printf("Pipeline completed: %s\n", last)
		}
		return nil
	},
}
