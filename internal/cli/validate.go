package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/mobproto/internal/model"
	"github.com/user/mobproto/internal/storage"
)

var validateCSV bool

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Check a table file for errors",
	Long: `Check a mob_proto.txt file (or, with --csv, a CSV export) without
changing anything.

Reports every malformed line (wrong column count, non-numeric value in a
numeric column, blank or duplicate VNUM) and then every value outside its
column's range. Exits with 3 for malformed files and 2 for range problems.

Examples:
  mobproto validate
  mobproto validate /srv/locale/mob_proto.txt
  mobproto validate --csv mobs.csv --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateCSV, "csv", false, "Validate a CSV file instead")
	rootCmd.AddCommand(validateCmd)
}

// RangeIssue is a value outside its column's range.
type RangeIssue struct {
	VNUM   int64  `json:"vnum"`
	Column string `json:"column"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

// checkRanges reports every value its column would reject on edit.
func checkRanges(s *model.Schema, records []*model.Record) []RangeIssue {
	var out []RangeIssue
	for _, r := range records {
		for i := range s.Columns {
			col := &s.Columns[i]
			if err := col.Check(r.Value(i)); err != nil {
				reason := err.Error()
				if verr, ok := err.(*model.ValidationError); ok {
					reason = verr.Reason
				}
				out = append(out, RangeIssue{VNUM: r.VNUM(), Column: col.Name, Value: r.Value(i).String(), Reason: reason})
			}
		}
	}
	return out
}

func runValidate(cmd *cobra.Command, args []string) error {
	var path string
	if len(args) > 0 {
		path = args[0]
	} else {
		ctx, err := resolveContext()
		if err != nil {
			return exitOnError(err)
		}
		path = ctx.File
	}

	schema := model.MobProto()
	var records []*model.Record
	if validateCSV {
		var err error
		if records, err = storage.ImportCSVFile(schema, path); err != nil {
			return exitOnError(err)
		}
	} else {
		d, err := storage.ReadFile(schema, path)
		if err != nil {
			return exitOnError(err)
		}
		for r := range d.Records() {
			records = append(records, r)
		}
	}

	issues := checkRanges(schema, records)
	if len(issues) > 0 {
		lines := make([]string, len(issues))
		for i, is := range issues {
			lines[i] = fmt.Sprintf("VNUM %d, %s %q: %s", is.VNUM, is.Column, is.Value, is.Reason)
		}
		ExitWithError(exitValidation, ErrCodeValidation,
			fmt.Sprintf("%s: %d value(s) out of range\n  %s", path, len(issues), strings.Join(lines, "\n  ")),
			map[string]interface{}{"file": path, "issues": issues})
		return nil
	}

	if GetJSONOutput() {
		return printJSON(map[string]interface{}{"file": path, "rows": len(records), "valid": true})
	}
	status("%s: %d mob(s), no problems found", path, len(records))
	return nil
}
