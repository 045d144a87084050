package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/user/mobproto/internal/document"
	"github.com/user/mobproto/internal/model"
	"github.com/user/mobproto/internal/session"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Edit the table interactively",
	Long: `Open the table in an interactive shell. Edits stay in memory until
'save', and undo/redo work across every change made in the session.

The shell keeps a view filter (set with 'find' and 'where') that 'list'
shows and 'mass ... view' edits. If another program changes the file
while the shell is open, a warning is printed before the next prompt.

Type 'help' inside the shell for commands.`,
	Args: cobra.NoArgs,
	RunE: runShell,
}

func init() {
	rootCmd.AddCommand(shellCmd)
}

func runShell(cmd *cobra.Command, args []string) error {
	s, _, err := openSession()
	if err != nil {
		return exitOnError(err)
	}
	defer s.Close()

	r := newREPL(s, os.Stdout)
	if err := s.Watch(func(string) { r.changed.Store(true) }); err != nil && IsVerbose() {
		fmt.Fprintf(os.Stderr, "Warning: cannot watch %s: %v\n", s.Path(), err)
	}
	return r.Run()
}

// REPL is the interactive command loop.
type REPL struct {
	s       *session.Session
	out     io.Writer
	liner   *liner.State
	search  string
	where   []string
	changed atomic.Bool // set by the file watcher
}

func newREPL(s *session.Session, out io.Writer) *REPL {
	return &REPL{s: s, out: out}
}

// historyFile returns the path to the history file.
func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".mobproto_history")
}

// Run starts the REPL loop.
func (r *REPL) Run() error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(r.completer)

	if f, err := os.Open(historyFile()); err == nil {
		r.liner.ReadHistory(f)
		f.Close()
	}
	defer r.saveHistory()

	info, _ := r.s.Info()
	fmt.Fprintf(r.out, "mobproto - %s (%d mobs)\n", info.Path, info.Rows)
	fmt.Fprintln(r.out, "Type 'help' for available commands.")

	for {
		if r.changed.CompareAndSwap(true, false) {
			fmt.Fprintf(r.out, "Warning: %s was changed by another program; 'reload' to discard your edits or 'save!' to overwrite\n", r.s.Path())
		}
		prompt := "mobproto> "
		if r.s.Dirty() {
			prompt = "mobproto*> "
		}
		line, err := r.liner.Prompt(prompt)
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				if r.s.Dirty() {
					fmt.Fprintln(r.out, "\nUnsaved changes discarded.")
				}
				fmt.Fprintln(r.out, "Bye!")
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.liner.AppendHistory(line)
		if r.exec(line) {
			fmt.Fprintln(r.out, "Bye!")
			return nil
		}
	}
}

// saveHistory persists command history to disk.
func (r *REPL) saveHistory() {
	if path := historyFile(); path != "" {
		if f, err := os.Create(path); err == nil {
			r.liner.WriteHistory(f)
			f.Close()
		}
	}
}

var shellCommands = []string{
	"list", "ls", "find", "where", "clear", "show", "set", "mass",
	"undo", "redo", "history", "save", "save!", "reload", "export", "import",
	"sql", "backups", "info", "help", "quit", "quit!", "exit",
}

// completer provides tab completion for commands.
func (r *REPL) completer(line string) []string {
	var completions []string
	lower := strings.ToLower(line)
	for _, cmd := range shellCommands {
		if strings.HasPrefix(cmd, lower) {
			completions = append(completions, cmd)
		}
	}
	return completions
}

// exec runs one command line and reports whether the shell should exit.
func (r *REPL) exec(line string) bool {
	parts := strings.Fields(line)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]
	rest := strings.TrimSpace(line[len(parts[0]):])

	var err error
	switch cmd {
	case "exit", "quit", "q":
		if r.s.Dirty() {
			fmt.Fprintln(r.out, "Unsaved changes. Use 'save' first or 'quit!' to discard them.")
			return false
		}
		return true
	case "quit!":
		return true
	case "help", "?":
		r.printHelp()
	case "info":
		err = r.cmdInfo()
	case "list", "ls":
		err = r.cmdList(args)
	case "find":
		r.search = rest
		err = r.cmdList(nil)
	case "where":
		if _, err = document.Where(r.s.Schema(), rest); err == nil {
			r.where = append(r.where, rest)
			err = r.cmdList(nil)
		}
	case "clear":
		r.search, r.where = "", nil
		fmt.Fprintln(r.out, "Filter cleared.")
	case "show":
		err = r.cmdShow(args)
	case "set":
		err = r.cmdSet(args)
	case "mass":
		err = r.cmdMass(args)
	case "undo":
		err = r.step(r.s.Undo, "Undid")
	case "redo":
		err = r.step(r.s.Redo, "Redid")
	case "history":
		err = r.cmdHistory()
	case "save", "save!":
		err = r.cmdSave(rest, cmd == "save!")
	case "reload":
		err = r.s.Open(r.s.Path())
		if err == nil {
			fmt.Fprintln(r.out, "Reloaded.")
		}
	case "export":
		err = r.cmdExport(rest)
	case "import":
		err = r.cmdImport(rest)
	case "sql":
		err = r.cmdSQL(rest)
	case "backups":
		err = r.cmdBackups()
	default:
		fmt.Fprintf(r.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	if err != nil {
		fmt.Fprintf(r.out, "Error: %v\n", err)
	}
	return false
}

func (r *REPL) printHelp() {
	fmt.Fprint(r.out, `Commands:
  list [limit]                   List mobs in the current view
  find <text>                    Filter the view by VNUM or NAME
  where <condition>              Add a column filter, e.g. LEVEL>=30
  clear                          Remove all filters
  show <vnum>                    Show every column of a mob
  set <vnum> COL=VALUE...        Edit cells
  mass COL <*|+|=> VALUE <vnum...|view>
                                 Multiply, add or set over many mobs
  mass COL*=K COL+=K COL=V... <vnum...|view>
                                 Change several columns in one step
  undo / redo                    Step through the history
  history                        Show the undo history
  save [file] / save!            Save (save! overwrites outside changes)
  reload                         Re-read the file, dropping edits
  export <file.csv>              Export to CSV
  import <file.csv>              Replace all rows from CSV
  sql <query>                    Run a read-only SELECT over "mobs"
  backups                        List backups
  info                           Show file information
  quit / quit!                   Exit (quit! discards unsaved edits)
`)
}

func (r *REPL) view() (document.Predicate, error) {
	return buildFilter(r.s.Schema(), r.search, r.where)
}

func (r *REPL) cmdInfo() error {
	info, err := r.s.Info()
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "File:    %s\n", info.Path)
	fmt.Fprintf(r.out, "Rows:    %d (%s)\n", info.Rows, info.Format.Encoding)
	fmt.Fprintf(r.out, "Dirty:   %t\n", info.Dirty)
	fmt.Fprintf(r.out, "History: %d/%d applied (limit %d)\n", info.HistoryPos, info.HistoryLen, info.HistoryCap)
	if r.search != "" || len(r.where) > 0 {
		fmt.Fprintf(r.out, "Filter:  search=%q where=%q\n", r.search, r.where)
	}
	return nil
}

func (r *REPL) cmdList(args []string) error {
	limit := 20
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return fmt.Errorf("invalid limit %q", args[0])
		}
		limit = n
	}
	pred, err := r.view()
	if err != nil {
		return err
	}
	records, err := r.s.Query(pred)
	if err != nil {
		return err
	}
	for i, rec := range records {
		if i == limit {
			fmt.Fprintf(r.out, "... %d more\n", len(records)-limit)
			break
		}
		fmt.Fprintf(r.out, "%8d  %-24s  lv %-3s  %s\n", rec.VNUM(), r.s.DisplayName(rec), rec.Text("LEVEL"), rec.Text("RANK"))
	}
	fmt.Fprintf(r.out, "%d mob(s)\n", len(records))
	return nil
}

func shellVNUM(arg string) (int64, error) {
	vnum, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid VNUM %q", arg)
	}
	return vnum, nil
}

func (r *REPL) cmdShow(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: show <vnum>")
	}
	vnum, err := shellVNUM(args[0])
	if err != nil {
		return err
	}
	rec, err := r.s.Get(vnum)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "%d  %s\n", vnum, r.s.DisplayName(rec))
	for _, c := range r.s.Schema().Columns {
		fmt.Fprintf(r.out, "  %-20s  %s\n", c.Name, rec.Text(c.Name))
	}
	return nil
}

func (r *REPL) cmdSet(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: set <vnum> COL=VALUE...")
	}
	vnum, err := shellVNUM(args[0])
	if err != nil {
		return err
	}
	for _, arg := range args[1:] {
		col, val, ok := strings.Cut(arg, "=")
		if !ok {
			return fmt.Errorf("invalid format: %s (expected COL=VALUE)", arg)
		}
		if err := r.s.Edit(vnum, col, val); err != nil {
			return err
		}
		if strings.EqualFold(col, model.KeyColumn) {
			vnum, _ = strconv.ParseInt(val, 10, 64)
		}
	}
	fmt.Fprintf(r.out, "Updated %d\n", vnum)
	return nil
}

// cmdMass handles "mass COL OP VALUE targets..." and the multi-column
// form "mass COL*=K COL+=K COL=VALUE... targets...", where targets are
// VNUMs or the word "view".
func (r *REPL) cmdMass(args []string) error {
	if len(args) > 0 && strings.Contains(args[0], "=") {
		return r.cmdMassColumns(args)
	}
	if len(args) < 4 {
		return fmt.Errorf("usage: mass COL <*|+|=> VALUE <vnum...|view>")
	}
	column, opText, value, targets := args[0], args[1], args[2], args[3:]

	var op document.Operation
	switch opText {
	case "*", "x":
		k, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid factor %q", value)
		}
		op = document.Multiply(k)
	case "+":
		k, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid amount %q", value)
		}
		op = document.Add(k)
	case "=":
		op = document.Set(value)
	default:
		return fmt.Errorf("%w %q (use *, + or =)", model.ErrInvalidOperator, opText)
	}

	sel, err := r.massTargets(targets)
	if err != nil {
		return err
	}
	n, err := r.s.MassEdit(sel, column, op)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "%s: %s, %d mob(s) changed\n", column, op, n)
	return nil
}

func (r *REPL) cmdMassColumns(args []string) error {
	var edits []document.ColumnEdit
	i := 0
	for ; i < len(args) && strings.Contains(args[i], "="); i++ {
		e, err := document.ParseColumnEdit(args[i])
		if err != nil {
			return err
		}
		edits = append(edits, e)
	}
	if i == len(args) {
		return fmt.Errorf("usage: mass COL*=K COL+=K COL=VALUE... <vnum...|view>")
	}
	sel, err := r.massTargets(args[i:])
	if err != nil {
		return err
	}
	n, err := r.s.MassEditColumns(sel, edits)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "%d cell(s) changed\n", n)
	return nil
}

func (r *REPL) massTargets(targets []string) (document.Selection, error) {
	if len(targets) == 1 && strings.EqualFold(targets[0], "view") {
		view, err := r.view()
		if err != nil {
			return document.Selection{}, err
		}
		return document.Selection{WhenEmpty: document.ApplyToView, View: view}, nil
	}
	var sel document.Selection
	for _, t := range targets {
		vnum, err := shellVNUM(t)
		if err != nil {
			return document.Selection{}, err
		}
		sel.VNUMs = append(sel.VNUMs, vnum)
	}
	return sel, nil
}

func (r *REPL) step(fn func() (string, error), verb string) error {
	desc, err := fn()
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "%s: %s\n", verb, desc)
	return nil
}

func (r *REPL) cmdHistory() error {
	entries, err := r.s.History()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(r.out, "No history.")
	}
	for _, e := range entries {
		mark := " "
		if e.Applied {
			mark = "*"
		}
		fmt.Fprintf(r.out, "%s %3d  %s\n", mark, e.Index, e.Description)
	}
	return nil
}

func (r *REPL) cmdSave(path string, force bool) error {
	res, err := r.s.Save(path, session.SaveOptions{Force: force})
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Saved %s\n", res.Path)
	if res.Backup != "" {
		fmt.Fprintf(r.out, "Backup: %s\n", res.Backup)
	}
	return nil
}

func (r *REPL) cmdExport(path string) error {
	if path == "" {
		return fmt.Errorf("usage: export <file.csv>")
	}
	if _, err := r.s.ExportCSV(path); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Exported to %s\n", path)
	return nil
}

func (r *REPL) cmdImport(path string) error {
	if path == "" {
		return fmt.Errorf("usage: import <file.csv>")
	}
	n, err := r.s.ImportCSV(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Imported %d mob(s); 'undo' to revert\n", n)
	return nil
}

func (r *REPL) cmdSQL(query string) error {
	rows, columns, err := r.s.SQL(query)
	if err != nil {
		return err
	}
	for _, row := range rows {
		parts := make([]string, len(columns))
		for i, c := range columns {
			parts[i] = fmt.Sprintf("%s=%v", c, row[c])
		}
		fmt.Fprintln(r.out, strings.Join(parts, "  "))
	}
	fmt.Fprintf(r.out, "%d row(s)\n", len(rows))
	return nil
}

func (r *REPL) cmdBackups() error {
	backups, err := r.s.Backups()
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		fmt.Fprintln(r.out, "No backups.")
	}
	for _, b := range backups {
		fmt.Fprintf(r.out, "%s  %s\n", b.Time.Format("2006-01-02 15:04:05"), b.Path)
	}
	return nil
}
