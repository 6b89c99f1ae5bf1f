package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"scout/internal/indexer"
	"scout/internal/workspace"
)

var flagForce bool

var indexCmd = &cobra.Command{
	Use:   "index <path>",
	Short: "Index a source tree for search",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}

		ws, err := workspace.Open(root, workspace.Config{DBPath: flagDB})
		if err != nil {
			return err
		}
		defer ws.Close()

		fmt.Println(titleStyle.Render("Indexing " + root))
		start := time.Now()

		counts, err := ws.Indexer.Index(flagForce, func(p indexer.Progress) {
			if p.Indexed%50 == 0 {
				fmt.Printf("\r%s", dimStyle.Render(fmt.Sprintf("%d files indexed...", p.Indexed)))
			}
		})
		if err != nil {
			return err
		}
		elapsed := time.Since(start)

		fmt.Printf("\r%s\n", successStyle.Render("Done in "+elapsed.Round(time.Millisecond).String()))
		fmt.Printf("  Scanned:   %d\n", counts.Scanned)
		fmt.Printf("  Indexed:   %d\n", counts.Indexed)
		fmt.Printf("  Unchanged: %d\n", counts.Unchanged)
		fmt.Printf("  Deleted:   %d\n", counts.Deleted)
		fmt.Printf("  Skipped:   %d\n", counts.Skipped)
		return nil
	},
}

func init() {
	indexCmd.Flags().BoolVar(&flagForce, "force", false, "re-index every file, bypassing change detection")
	rootCmd.AddCommand(indexCmd)
}
