package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/mobproto/internal/document"
	"github.com/user/mobproto/internal/model"
	"github.com/user/mobproto/internal/session"
)

var (
	massColumn     string
	massMultiply   float64
	massAdd        float64
	massSet        string
	massOps        []string
	massVNUMs      []int64
	massWhere      []string
	massSearch     string
	massSelectSQL  string
	massAllVisible bool
	massForce      bool
)

var massEditCmd = &cobra.Command{
	Use:   "mass-edit",
	Short: "Apply changes to columns across many mobs",
	Long: `Multiply, add to or set columns in every selected mob, as a single
undo step, and save the file.

Edit one column with --column and one of --multiply, --add or --set, or
several columns at once with repeated --op flags: COL*=K multiplies,
COL+=K and COL-=K add, and COL=VALUE sets. Operations on the same column
apply in order.

Select rows with --vnum (repeatable) or --select-sql. Without explicit
VNUMs nothing is changed unless --all-visible is given, in which case
every mob matching --search and --where is edited (all mobs if neither
is set).

Integer results are truncated toward zero and blank cells count as 0.
A blank cell whose result is 0 is left blank. If any result is out of
range for its column, nothing is changed.

Examples:
  mobproto mass-edit --column EXP --multiply 1.5 --vnum 101 --vnum 102
  mobproto mass-edit --column GOLD_MAX --add 100 --where "RANK=BOSS" --all-visible
  mobproto mass-edit --column FOLDER --set wolf --search wolf --all-visible
  mobproto mass-edit --op EXP*=2 --op GOLD_MAX+=100 --where "RANK=BOSS" --all-visible
  mobproto mass-edit --column DEF --add 5 --select-sql "SELECT VNUM FROM mobs WHERE LEVEL > 60"`,
	Args: cobra.NoArgs,
	RunE: runMassEdit,
}

func init() {
	massEditCmd.Flags().StringVar(&massColumn, "column", "", "Column to edit with --multiply, --add or --set")
	massEditCmd.Flags().Float64Var(&massMultiply, "multiply", 1, "Multiply numeric values by this factor")
	massEditCmd.Flags().Float64Var(&massAdd, "add", 0, "Add this amount to numeric values")
	massEditCmd.Flags().StringVar(&massSet, "set", "", "Set every selected cell to this value")
	massEditCmd.Flags().StringArrayVar(&massOps, "op", nil, "Column operation COL*=K, COL+=K, COL-=K or COL=VALUE (can be repeated)")
	massEditCmd.Flags().Int64SliceVar(&massVNUMs, "vnum", nil, "Mob to edit (can be repeated)")
	massEditCmd.Flags().StringArrayVar(&massWhere, "where", nil, "Filter by column condition (with --all-visible)")
	massEditCmd.Flags().StringVar(&massSearch, "search", "", "Match VNUM or NAME (with --all-visible)")
	massEditCmd.Flags().StringVar(&massSelectSQL, "select-sql", "", "Select VNUMs with a read-only SQL query")
	massEditCmd.Flags().BoolVar(&massAllVisible, "all-visible", false, "Edit every mob matching the filters when no VNUMs are given")
	massEditCmd.Flags().BoolVar(&massForce, "force", false, "Overwrite the file even if it changed on disk")
	massEditCmd.MarkFlagsMutuallyExclusive("multiply", "add", "set", "op")
	massEditCmd.MarkFlagsMutuallyExclusive("column", "op")
	massEditCmd.MarkFlagsOneRequired("multiply", "add", "set", "op")
	rootCmd.AddCommand(massEditCmd)
}

// massOperation builds the operation from whichever flag was given.
func massOperation(cmd *cobra.Command) document.Operation {
	switch {
	case cmd.Flags().Changed("multiply"):
		return document.Multiply(massMultiply)
	case cmd.Flags().Changed("add"):
		return document.Add(massAdd)
	default:
		return document.Set(massSet)
	}
}

func runMassEdit(cmd *cobra.Command, args []string) error {
	if len(massOps) == 0 && massColumn == "" {
		return errors.New(`required flag "column" not set`)
	}
	s, _, err := openSession()
	if err != nil {
		return exitOnError(err)
	}
	defer s.Close()

	sel := document.Selection{VNUMs: massVNUMs}
	if massSelectSQL != "" {
		vnums, err := s.SelectSQL(massSelectSQL)
		if err != nil {
			return exitOnError(err)
		}
		if len(vnums) == 0 && len(sel.VNUMs) == 0 {
			// an empty query result must not widen to the whole view
			return exitOnError(model.ErrEmptySelection)
		}
		sel.VNUMs = append(sel.VNUMs, vnums...)
	}
	if massAllVisible {
		sel.WhenEmpty = document.ApplyToView
		sel.View, err = buildFilter(s.Schema(), massSearch, massWhere)
		if err != nil {
			return exitOnError(err)
		}
	}

	if len(massOps) > 0 {
		return runMassEditColumns(s, sel)
	}

	op := massOperation(cmd)
	n, err := s.MassEdit(sel, massColumn, op)
	if err != nil {
		return exitOnError(err)
	}
	if n > 0 {
		if err := saveSession(s, massForce); err != nil {
			return exitOnError(err)
		}
	}

	if GetJSONOutput() {
		return printJSON(map[string]interface{}{"column": massColumn, "operation": op.String(), "changed": n})
	}
	status("%s: %s, %d mob(s) changed", massColumn, op, n)
	return nil
}

func runMassEditColumns(s *session.Session, sel document.Selection) error {
	edits := make([]document.ColumnEdit, len(massOps))
	for i, text := range massOps {
		e, err := document.ParseColumnEdit(text)
		if err != nil {
			return exitOnError(err)
		}
		col, err := s.Schema().Column(e.Column)
		if err != nil {
			return exitOnError(err)
		}
		e.Column = col.Name
		edits[i] = e
	}

	n, err := s.MassEditColumns(sel, edits)
	if err != nil {
		return exitOnError(err)
	}
	if n > 0 {
		if err := saveSession(s, massForce); err != nil {
			return exitOnError(err)
		}
	}

	ops := make([]string, len(edits))
	for i, e := range edits {
		ops[i] = e.String()
	}
	if GetJSONOutput() {
		return printJSON(map[string]interface{}{"operations": ops, "changed": n})
	}
	status("%s: %d cell(s) changed", strings.Join(ops, ", "), n)
	return nil
}
