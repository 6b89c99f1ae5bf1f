package cmd

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"scout/internal/workspace"
)

var statsCmd = &cobra.Command{
	Use:   "stats <path>",
	Short: "Show index statistics for a source tree",
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

		st, err := ws.Store.Stats()
		if err != nil {
			return err
		}

		fmt.Println(titleStyle.Render("Index stats for " + root))
		fmt.Printf("  Files:    %d\n", st.FileCount)
		fmt.Printf("  Bytes:    %d\n", st.TotalBytes)
		fmt.Printf("  Symbols:  %d\n", st.SymbolCount)
		fmt.Printf("  Trigrams: %d\n", st.TrigramCount)
		if !st.LastIndexedAt.IsZero() {
			fmt.Printf("  Indexed:  %s\n", st.LastIndexedAt.Format("2006-01-02 15:04:05"))
		}

		if len(st.Languages) > 0 {
			langs := make([]string, 0, len(st.Languages))
			for l := range st.Languages {
				langs = append(langs, l)
			}
			sort.Strings(langs)
			fmt.Println(dimStyle.Render("  Languages:"))
			for _, l := range langs {
				fmt.Printf("    %-12s %d\n", l, st.Languages[l])
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
