package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/mobproto/internal/document"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the undo history",
	Long: `List the changes that can be undone or redone, oldest first.

Applied changes are marked with *; the rest can be redone. At most 50
changes are kept (see history_limit in .mobproto.json).

Examples:
  mobproto history
  mobproto history --limit 10
  mobproto history --json`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 0, "Show only the N most recent entries (0 = all)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	s, _, err := openSession()
	if err != nil {
		return exitOnError(err)
	}
	defer s.Close()

	entries, err := s.History()
	if err != nil {
		return exitOnError(err)
	}
	if historyLimit > 0 && len(entries) > historyLimit {
		entries = entries[len(entries)-historyLimit:]
	}

	if GetJSONOutput() {
		if entries == nil {
			entries = []document.Entry{}
		}
		return printJSON(entries)
	}
	if len(entries) == 0 {
		fmt.Println("No history.")
		return nil
	}
	for _, e := range entries {
		mark := " "
		if e.Applied {
			mark = "*"
		}
		fmt.Printf("%s %3d  %s\n", mark, e.Index, e.Description)
	}
	return nil
}
