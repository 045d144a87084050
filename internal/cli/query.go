package cli

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/mobproto/internal/document"
	"github.com/user/mobproto/internal/model"
)

var (
	querySearch  string
	queryWhere   []string
	queryColumns string
	queryLimit   int
	querySort    string
	querySQL     string
)

// defaultQueryColumns are shown when --columns is not given.
var defaultQueryColumns = []string{"VNUM", "NAME", "RANK", "LEVEL", "MAX_HP", "EXP"}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "List mobs matching a search or filter",
	Long: `List mobs, optionally filtered, sorted and limited.

--search matches VNUM or NAME as a case-insensitive substring.
--where takes a column condition and can be repeated; all must match.
Supported operators: = != <> < > <= >= LIKE, IS EMPTY, IS NOT EMPTY.

--sql runs a read-only SELECT against an in-memory copy of the table
named "mobs". Blank numeric cells are NULL.

Examples:
  mobproto query --search wolf
  mobproto query --where "LEVEL>=30" --where "RANK=BOSS" --sort -EXP
  mobproto query --where "NAME LIKE %dog%" --columns VNUM,NAME,EXP --limit 20
  mobproto query --sql "SELECT RANK, COUNT(*) AS n FROM mobs GROUP BY RANK"`,
	Args: cobra.NoArgs,
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVar(&querySearch, "search", "", "Match VNUM or NAME (substring, case-insensitive)")
	queryCmd.Flags().StringArrayVar(&queryWhere, "where", nil, "Filter by column condition (can be repeated)")
	queryCmd.Flags().StringVar(&queryColumns, "columns", "", "Columns to show (comma-separated)")
	queryCmd.Flags().IntVar(&queryLimit, "limit", 0, "Limit results (0 = no limit)")
	queryCmd.Flags().StringVar(&querySort, "sort", "", "Sort by column; prefix with - for descending")
	queryCmd.Flags().StringVar(&querySQL, "sql", "", "Run a read-only SQL query instead")
	rootCmd.AddCommand(queryCmd)
}

// buildFilter combines --search and --where style filters.
func buildFilter(s *model.Schema, search string, where []string) (document.Predicate, error) {
	w, err := document.Where(s, where...)
	if err != nil {
		return nil, err
	}
	if search == "" {
		return w, nil
	}
	return document.And(document.Search(search), w), nil
}

// sortRecords orders records by a column; "-COL" sorts descending.
func sortRecords(s *model.Schema, records []*model.Record, key string) error {
	desc := strings.HasPrefix(key, "-")
	col, err := s.Column(strings.TrimPrefix(key, "-"))
	if err != nil {
		return err
	}
	slices.SortStableFunc(records, func(a, b *model.Record) int {
		va, vb := a.Value(col.Ordinal), b.Value(col.Ordinal)
		var c int
		if col.Kind == model.KindText {
			c = cmp.Compare(strings.ToLower(va.String()), strings.ToLower(vb.String()))
		} else {
			c = cmp.Compare(model.Number(va), model.Number(vb))
		}
		if desc {
			return -c
		}
		return c
	})
	return nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	s, _, err := openSession()
	if err != nil {
		return exitOnError(err)
	}
	defer s.Close()

	if querySQL != "" {
		return runSQLQuery(s.SQL, querySQL)
	}

	columns, err := parseColumns(s.Schema(), queryColumns)
	if err != nil {
		return exitOnError(err)
	}
	if len(columns) == 0 {
		columns = defaultQueryColumns
	}
	pred, err := buildFilter(s.Schema(), querySearch, queryWhere)
	if err != nil {
		return exitOnError(err)
	}
	records, err := s.Query(pred)
	if err != nil {
		return exitOnError(err)
	}
	if querySort != "" {
		if err := sortRecords(s.Schema(), records, querySort); err != nil {
			return exitOnError(err)
		}
	}
	total := len(records)
	if queryLimit > 0 && len(records) > queryLimit {
		records = records[:queryLimit]
	}

	if GetJSONOutput() {
		out := make([]map[string]interface{}, len(records))
		for i, r := range records {
			out[i] = recordJSON(r, columns)
		}
		return printJSON(out)
	}

	if len(records) == 0 {
		fmt.Println("No results.")
		return nil
	}
	rows := make([][]string, len(records))
	for i, r := range records {
		row := make([]string, len(columns))
		for j, c := range columns {
			if strings.EqualFold(c, "NAME") {
				row[j] = s.DisplayName(r)
			} else {
				row[j] = r.Text(c)
			}
		}
		rows[i] = row
	}
	printTable(columns, rows)
	if total > len(records) {
		fmt.Printf("\n%d of %d mob(s)\n", len(records), total)
	} else {
		fmt.Printf("\n%d mob(s)\n", total)
	}
	return nil
}

type sqlFunc func(query string) ([]map[string]interface{}, []string, error)

func runSQLQuery(run sqlFunc, query string) error {
	rows, columns, err := run(query)
	if err != nil {
		return exitOnError(err)
	}

	if GetJSONOutput() {
		if rows == nil {
			rows = []map[string]interface{}{}
		}
		return printJSON(rows)
	}
	if len(rows) == 0 {
		fmt.Println("No results.")
		return nil
	}
	table := make([][]string, len(rows))
	for i, row := range rows {
		table[i] = make([]string, len(columns))
		for j, col := range columns {
			if v := row[col]; v != nil {
				table[i][j] = fmt.Sprintf("%v", v)
			}
		}
	}
	printTable(columns, table)
	fmt.Printf("\n%d row(s)\n", len(rows))
	return nil
}
