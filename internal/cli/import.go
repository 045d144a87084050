package cli

import (
	"github.com/spf13/cobra"
)

var (
	importForce      bool
	importAllowEmpty bool
)

var importCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Replace the table with rows from a CSV file",
	Long: `Replace every mob with the rows of a CSV file and save.

The CSV must have a header row naming all 67 columns, in any order.
Every row is validated first; if any row is malformed nothing changes
and each bad line is reported. The import is one undo step within the
same run, but it resets the undo history kept for later runs.

A CSV with a header and no rows would empty the table, so it is refused
unless --allow-empty is given.

Examples:
  mobproto import mobs.csv
  mobproto import mobs.csv --json`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().BoolVar(&importForce, "force", false, "Overwrite the file even if it changed on disk")
	importCmd.Flags().BoolVar(&importAllowEmpty, "allow-empty", false, "Accept a CSV with no rows and empty the table")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	s, _, err := openSession()
	if err != nil {
		return exitOnError(err)
	}
	defer s.Close()

	n, err := s.ImportCSV(args[0])
	if err != nil {
		return exitOnError(err)
	}
	if n == 0 && !importAllowEmpty {
		// nothing is saved, so the file keeps its rows
		ExitValidationError(args[0]+" has no rows (use --allow-empty to empty the table)", nil)
		return nil
	}
	if err := saveSession(s, importForce); err != nil {
		return exitOnError(err)
	}

	if GetJSONOutput() {
		return printJSON(map[string]interface{}{"file": args[0], "rows": n})
	}
	status("Imported %d mob(s) from %s", n, args[0])
	return nil
}
