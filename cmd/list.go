package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/runanywhere/nativeaudio/internal/service"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls", "recordings"},
	Short:   "List recordings in the output directory",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := service.New(cfg)
		defer svc.Close()

		recordings, err := svc.ListRecordings()
		if err != nil {
			return err
		}

		if len(recordings) == 0 {
			fmt.Printf("No recordings in %s\n", cfg.Output.Directory)
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tDURATION\tSIZE\tMODIFIED")
		for _, r := range recordings {
			fmt.Fprintf(w, "%s\t%.2fs\t%s\t%s\n", r.Name, r.Duration, r.SizeHuman, r.ModTimeHuman)
		}
		return w.Flush()
	},
}
