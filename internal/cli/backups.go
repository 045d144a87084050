package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "List backups of the table file",
	Long: `List the timestamped backups made before each save, newest first.

Backups are named <file>.backup_YYYYMMDD_HHMMSS and live next to the file.

Examples:
  mobproto backups
  mobproto backups --json`,
	Args: cobra.NoArgs,
	RunE: runBackups,
}

func init() {
	rootCmd.AddCommand(backupsCmd)
}

// BackupOutput describes one backup for JSON output.
type BackupOutput struct {
	Path string `json:"path"`
	Time string `json:"time"`
	Size int64  `json:"size"`
}

func runBackups(cmd *cobra.Command, args []string) error {
	s, _, err := openSession()
	if err != nil {
		return exitOnError(err)
	}
	defer s.Close()

	backups, err := s.Backups()
	if err != nil {
		return exitOnError(err)
	}

	if GetJSONOutput() {
		out := make([]BackupOutput, len(backups))
		for i, b := range backups {
			out[i] = BackupOutput{Path: b.Path, Time: b.Time.Format("2006-01-02T15:04:05"), Size: b.Size}
		}
		return printJSON(out)
	}
	if len(backups) == 0 {
		fmt.Println("No backups.")
		return nil
	}
	for _, b := range backups {
		fmt.Printf("%s  %8d  %s\n", b.Time.Format("2006-01-02 15:04:05"), b.Size, b.Path)
	}
	return nil
}
