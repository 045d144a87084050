package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var restoreBackupYes bool

var restoreBackupCmd = &cobra.Command{
	Use:   "restore-backup [backup]",
	Short: "Replace the table file with a backup",
	Long: `Replace the table file with one of its backups (default: the newest).

The current file is backed up first, so a restore can itself be
restored. The undo history is cleared. Use --yes to skip the
confirmation prompt.

Examples:
  mobproto restore-backup
  mobproto restore-backup mob_proto.txt.backup_20240309_140507 --yes`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRestoreBackup,
}

func init() {
	restoreBackupCmd.Flags().BoolVarP(&restoreBackupYes, "yes", "y", false, "Skip confirmation prompt")
	rootCmd.AddCommand(restoreBackupCmd)
}

func runRestoreBackup(cmd *cobra.Command, args []string) error {
	s, _, err := openSession()
	if err != nil {
		return exitOnError(err)
	}
	defer s.Close()

	var backup string
	if len(args) > 0 {
		backup = args[0]
	} else {
		backups, err := s.Backups()
		if err != nil {
			return exitOnError(err)
		}
		if len(backups) == 0 {
			ExitWithError(exitFailure, ErrCodeIO, "no backups of "+s.Path(), nil)
			return nil
		}
		backup = backups[0].Path
	}
	if _, err := os.Stat(backup); err != nil {
		ExitWithError(exitFailure, ErrCodeIO, fmt.Sprintf("backup file '%s' not found", backup),
			map[string]interface{}{"path": backup})
		return nil
	}

	if !restoreBackupYes && !GetJSONOutput() {
		fmt.Printf("Replace %s with %s? [y/N] ", s.Path(), backup)
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		answer = strings.TrimSpace(strings.ToLower(answer))
		if answer != "y" && answer != "yes" {
			fmt.Println("Restore cancelled.")
			return nil
		}
	}

	saved, err := s.RestoreBackup(backup)
	if err != nil {
		return exitOnError(err)
	}

	if GetJSONOutput() {
		return printJSON(map[string]interface{}{"file": s.Path(), "restored": backup, "backup": saved})
	}
	status("Restored %s from %s", s.Path(), backup)
	if saved != "" {
		status("Previous content saved as %s", saved)
	}
	return nil
}
