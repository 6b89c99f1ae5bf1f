package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"scout/internal/search"
	"scout/internal/workspace"
)

var (
	flagLimit int
	flagMode  string
)

var searchCmd = &cobra.Command{
	Use:   "search <path> <query>",
	Short: "Search an indexed source tree",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		query := args[1]

		mode, err := search.ParseMode(flagMode)
		if err != nil {
			return err
		}

		ws, err := workspace.Open(root, workspace.Config{DBPath: flagDB})
		if err != nil {
			return err
		}
		defer ws.Close()

		results, err := ws.Search.Search(cmd.Context(), query, flagLimit, mode)
		if err != nil {
			return err
		}

		if len(results) == 0 {
			fmt.Println(dimStyle.Render("No results for " + fmt.Sprintf("%q", query)))
			return nil
		}

		fmt.Println(titleStyle.Render(fmt.Sprintf("%d results for %q", len(results), query)))
		for _, r := range results {
			fmt.Printf("%s %s %s\n",
				scoreStyle.Render(fmt.Sprintf("%5.2f", r.Score)),
				pathStyle.Render(r.Path),
				dimStyle.Render("["+r.Sources+"]"),
			)
			if r.Snippet != "" {
				first := r.Snippet
				if idx := strings.IndexByte(first, '\n'); idx >= 0 {
					first = first[:idx]
				}
				fmt.Printf("      %s\n", dimStyle.Render(first))
			}
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVar(&flagLimit, "limit", 20, "maximum results")
	searchCmd.Flags().StringVar(&flagMode, "mode", "combined", "backend selection: combined, ranked-only, scan-only")
	rootCmd.AddCommand(searchCmd)
}
