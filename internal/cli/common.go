package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/user/mobproto/internal/context"
	"github.com/user/mobproto/internal/model"
	"github.com/user/mobproto/internal/session"
)

// resolveContext resolves the target file and config from global flags.
func resolveContext() (*context.Context, error) {
	return context.ResolveRequired(context.ResolveInput{
		ActorFlag:  GetActorName(),
		FileFlag:   fileFlag,
		ConfigFlag: configPath,
	})
}

// logFunc writes debug output to stderr when --verbose is set.
func logFunc() session.LogFunc {
	if !IsVerbose() {
		return nil
	}
	return func(format string, args ...interface{}) {
		fmt.Fprintf(os.Stderr, "[mobproto] "+format+"\n", args...)
	}
}

func sessionOptions(ctx *context.Context) session.Options {
	return session.Options{
		HistoryLimit: ctx.Config.HistoryLimit,
		Backup:       ctx.Config.BackupEnabled(),
		Journal:      ctx.Config.JournalEnabled(),
		SortOnSave:   ctx.Config.SortEnabled(),
		Actor:        ctx.Actor,
		Log:          logFunc(),
	}
}

// openSession resolves the context and opens the table file.
func openSession() (*session.Session, *context.Context, error) {
	ctx, err := resolveContext()
	if err != nil {
		return nil, nil, err
	}
	s := session.New(model.MobProto(), sessionOptions(ctx))
	if err := s.Open(ctx.File); err != nil {
		return nil, nil, err
	}
	if ctx.NamesFile != "" {
		if _, err := s.LoadNames(ctx.NamesFile); err != nil && IsVerbose() {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}
	return s, ctx, nil
}

// saveSession writes the session back to its file and reports it.
func saveSession(s *session.Session, force bool) error {
	res, err := s.Save("", session.SaveOptions{Force: force})
	if err != nil {
		return err
	}
	if !IsQuiet() && !GetJSONOutput() {
		fmt.Fprintf(os.Stderr, "Saved %s\n", res.Path)
		if res.Backup != "" && IsVerbose() {
			fmt.Fprintf(os.Stderr, "  backup: %s\n", res.Backup)
		}
	}
	return nil
}

// status prints a progress line unless --quiet or --json is set.
func status(format string, args ...interface{}) {
	if IsQuiet() || GetJSONOutput() {
		return
	}
	fmt.Printf(format+"\n", args...)
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// jsonValue converts a cell for JSON output. Blank numeric cells are null.
func jsonValue(v model.Value) interface{} {
	switch v := v.(type) {
	case model.IntValue:
		if v.Blank() {
			return nil
		}
		return v.N
	case model.RealValue:
		if v.Blank() {
			return nil
		}
		return v.F
	case model.TextValue:
		return v.S
	}
	return nil
}

// recordJSON returns the named columns of r, or all of them.
func recordJSON(r *model.Record, columns []string) map[string]interface{} {
	out := make(map[string]interface{})
	if len(columns) == 0 {
		columns = r.Schema().Columns.Names()
	}
	for _, c := range columns {
		if v, ok := r.GetField(c); ok {
			out[c] = jsonValue(v)
		}
	}
	return out
}

// parseColumns splits a comma-separated --columns value and checks each
// name against the schema, returning canonical names.
func parseColumns(s *model.Schema, list string) ([]string, error) {
	if strings.TrimSpace(list) == "" {
		return nil, nil
	}
	var out []string
	for _, name := range strings.Split(list, ",") {
		col, err := s.Column(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		out = append(out, col.Name)
	}
	return out, nil
}

// printTable prints rows under a header, aligning columns.
func printTable(columns []string, rows [][]string) {
	widths := make([]int, len(columns))
	for i, col := range columns {
		widths[i] = len(col)
	}
	for _, row := range rows {
		for i, val := range row {
			widths[i] = max(widths[i], len(val))
		}
	}
	for i := range widths {
		widths[i] = min(widths[i], 40)
	}

	headerParts := make([]string, len(columns))
	separatorParts := make([]string, len(columns))
	for i, col := range columns {
		headerParts[i] = fmt.Sprintf("%-*s", widths[i], col)
		separatorParts[i] = strings.Repeat("-", widths[i])
	}
	fmt.Println(strings.TrimRight(strings.Join(headerParts, "  "), " "))
	fmt.Println(strings.Join(separatorParts, "  "))

	for _, row := range rows {
		rowParts := make([]string, len(columns))
		for i, val := range row {
			if len(val) > widths[i] {
				val = val[:widths[i]-3] + "..."
			}
			rowParts[i] = fmt.Sprintf("%-*s", widths[i], val)
		}
		fmt.Println(strings.TrimRight(strings.Join(rowParts, "  "), " "))
	}
}
