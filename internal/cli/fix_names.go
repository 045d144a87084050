package cli

import (
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/mobproto/internal/storage"
)

var fixNamesCmd = &cobra.Command{
	Use:   "fix-names [mob_names.txt]",
	Short: "Convert a Windows-1252 names file to UTF-8",
	Long: `Re-encode a localized mob_names.txt from Windows-1252 to UTF-8.

The file is backed up first. A file that is already valid UTF-8 is left
alone. Without an argument, the configured names file is used, or
mob_names.txt next to the table file.

Examples:
  mobproto fix-names
  mobproto fix-names /srv/locale/de/mob_names.txt`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFixNames,
}

func init() {
	rootCmd.AddCommand(fixNamesCmd)
}

func runFixNames(cmd *cobra.Command, args []string) error {
	var path string
	if len(args) > 0 {
		path = args[0]
	} else {
		ctx, err := resolveContext()
		if err != nil {
			return exitOnError(err)
		}
		path = ctx.NamesFile
		if path == "" {
			path = filepath.Join(filepath.Dir(ctx.File), storage.NamesFile)
		}
	}

	res, err := storage.FixNamesEncoding(path, time.Now())
	if err != nil {
		return exitOnError(err)
	}

	if GetJSONOutput() {
		return printJSON(map[string]interface{}{
			"file": path, "changed": res.Changed, "lines_changed": res.LinesChanged, "backup": res.Backup,
		})
	}
	if !res.Changed {
		status("%s is already UTF-8", path)
		return nil
	}
	status("Converted %d line(s) in %s", res.LinesChanged, path)
	if res.Backup != "" {
		status("Backup: %s", res.Backup)
	}
	return nil
}
