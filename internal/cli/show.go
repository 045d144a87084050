package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var showColumns string

var showCmd = &cobra.Command{
	Use:   "show <vnum>",
	Short: "Show a single mob",
	Long: `Display every column of one mob, one per line.

Options:
  --columns <list>   Only show these columns (comma-separated)

Examples:
  mobproto show 101
  mobproto show 101 --columns NAME,LEVEL,EXP
  mobproto show 101 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().StringVar(&showColumns, "columns", "", "Columns to show (comma-separated)")
	rootCmd.AddCommand(showCmd)
}

func parseVNUM(arg string) (int64, bool) {
	vnum, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		ExitValidationError(fmt.Sprintf("invalid VNUM %q", arg), map[string]interface{}{"vnum": arg})
		return 0, false
	}
	return vnum, true
}

func runShow(cmd *cobra.Command, args []string) error {
	vnum, ok := parseVNUM(args[0])
	if !ok {
		return nil
	}

	s, _, err := openSession()
	if err != nil {
		return exitOnError(err)
	}
	defer s.Close()

	columns, err := parseColumns(s.Schema(), showColumns)
	if err != nil {
		return exitOnError(err)
	}
	r, err := s.Get(vnum)
	if err != nil {
		return exitOnError(err)
	}

	if GetJSONOutput() {
		out := recordJSON(r, columns)
		out["_display_name"] = s.DisplayName(r)
		return printJSON(out)
	}

	if len(columns) == 0 {
		columns = s.Schema().Columns.Names()
	}
	width := 0
	for _, c := range columns {
		width = max(width, len(c))
	}
	fmt.Printf("%d  %s\n\n", vnum, s.DisplayName(r))
	for _, c := range columns {
		fmt.Printf("  %-*s  %s\n", width, c, r.Text(c))
	}
	return nil
}
