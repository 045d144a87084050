package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/user/mobproto/internal/document"
	"github.com/user/mobproto/internal/storage"
)

var exportCmd = &cobra.Command{
	Use:   "export [file.csv]",
	Short: "Export the table to CSV",
	Long: `Write every mob to a CSV file with a header row of column names.
If no file is given, the CSV is written to stdout. An existing file is
backed up before it is replaced.

Examples:
  mobproto export mobs.csv
  mobproto export > mobs.csv`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	s, _, err := openSession()
	if err != nil {
		return exitOnError(err)
	}
	defer s.Close()

	if len(args) == 0 {
		return exitOnError(s.Read(func(d *document.Document) error {
			return storage.ExportCSV(d, os.Stdout)
		}))
	}

	path := args[0]
	backup, err := s.ExportCSV(path)
	if err != nil {
		return exitOnError(err)
	}
	info, err := s.Info()
	if err != nil {
		return exitOnError(err)
	}
	if GetJSONOutput() {
		return printJSON(map[string]interface{}{"file": path, "rows": info.Rows, "backup": backup})
	}
	status("Exported %d mob(s) to %s", info.Rows, path)
	return nil
}
