package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/mobproto/internal/model"
)

var setForce bool

var setCmd = &cobra.Command{
	Use:   "set <vnum> <column>=<value>...",
	Short: "Update cells of one mob",
	Long: `Update one or more cells of a mob and save the file.

Each value is checked against its column (integer, real or text, and the
column's range) before anything is written. If any assignment is
rejected the file is left untouched. Each assignment is one undo step.

Examples:
  mobproto set 101 LEVEL=12
  mobproto set 101 EXP=350 GOLD_MIN=10 GOLD_MAX=25
  mobproto set 101 FOLDER=""   # Clear a text cell`,
	Args: cobra.MinimumNArgs(2),
	RunE: runSet,
}

func init() {
	setCmd.Flags().BoolVar(&setForce, "force", false, "Overwrite the file even if it changed on disk")
	rootCmd.AddCommand(setCmd)
}

type assignment struct {
	Column string
	Value  string
}

func parseAssignments(args []string) ([]assignment, bool) {
	out := make([]assignment, 0, len(args))
	for _, arg := range args {
		col, val, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(col) == "" {
			ExitValidationError(fmt.Sprintf("invalid format: %s (expected COLUMN=VALUE)", arg), nil)
			return nil, false
		}
		out = append(out, assignment{Column: strings.TrimSpace(col), Value: val})
	}
	return out, true
}

func runSet(cmd *cobra.Command, args []string) error {
	vnum, ok := parseVNUM(args[0])
	if !ok {
		return nil
	}
	updates, ok := parseAssignments(args[1:])
	if !ok {
		return nil
	}

	s, _, err := openSession()
	if err != nil {
		return exitOnError(err)
	}
	defer s.Close()

	for _, u := range updates {
		if err := s.Edit(vnum, u.Column, u.Value); err != nil {
			return exitOnError(err)
		}
		if strings.EqualFold(u.Column, model.KeyColumn) {
			// later assignments address the renumbered row
			vnum, _ = strconv.ParseInt(strings.TrimSpace(u.Value), 10, 64)
		}
	}
	if !s.Dirty() {
		status("No changes to %d", vnum)
		return nil
	}
	if err := saveSession(s, setForce); err != nil {
		return exitOnError(err)
	}

	if GetJSONOutput() {
		r, err := s.Get(vnum)
		if err != nil {
			return exitOnError(err)
		}
		return printJSON(recordJSON(r, nil))
	}
	status("Updated %d", vnum)
	return nil
}
