package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	flagDB   string
	flagRoot string
)

var rootCmd = &cobra.Command{
	Use:   "scout",
	Short: "Local hybrid code search with an MCP tool surface",
	Long: `scout indexes a source tree into SQLite and answers hybrid queries
through ranked full-text, regex scan, and trigram substring backends.
Run 'scout mcp' to serve the tool interface over stdio.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "index database path (default: per-root file under the user cache dir)")
	rootCmd.PersistentFlags().StringVar(&flagRoot, "root", "", "workspace root to pre-attach (pinned mode)")
}
