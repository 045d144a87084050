package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/mobproto/internal/model"
	"github.com/user/mobproto/internal/session"
)

var (
	undoSteps int
	redoSteps int
)

var undoCmd = &cobra.Command{
	Use:   "undo",
	Short: "Revert the last change",
	Long: `Revert the most recent change and save the file.

Changes made by earlier runs can be undone as long as the file has not
been modified by another program since (see <file>.history.jsonl).

Examples:
  mobproto undo
  mobproto undo --steps 3`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runUndoRedo((*session.Session).Undo, undoSteps, "Undid")
	},
}

var redoCmd = &cobra.Command{
	Use:   "redo",
	Short: "Re-apply the last undone change",
	Long: `Re-apply the most recently undone change and save the file.

A new edit after an undo discards everything that could be redone.

Examples:
  mobproto redo
  mobproto redo --steps 2`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runUndoRedo((*session.Session).Redo, redoSteps, "Redid")
	},
}

func init() {
	undoCmd.Flags().IntVar(&undoSteps, "steps", 1, "Number of changes to undo")
	redoCmd.Flags().IntVar(&redoSteps, "steps", 1, "Number of changes to redo")
	rootCmd.AddCommand(undoCmd)
	rootCmd.AddCommand(redoCmd)
}

func runUndoRedo(step func(*session.Session) (string, error), steps int, verb string) error {
	if steps < 1 {
		ExitValidationError("--steps must be at least 1", nil)
		return nil
	}
	s, _, err := openSession()
	if err != nil {
		return exitOnError(err)
	}
	defer s.Close()

	var done []string
	var stepErr error
	for i := 0; i < steps; i++ {
		desc, err := step(s)
		if err != nil {
			// running out of history ends --steps early
			if len(done) == 0 || !errors.Is(err, model.ErrNoOpAvailable) {
				stepErr = err
			}
			break
		}
		done = append(done, desc)
	}
	if len(done) == 0 {
		return exitOnError(stepErr)
	}
	if err := saveSession(s, false); err != nil {
		return exitOnError(err)
	}
	if stepErr != nil {
		for _, d := range done {
			status("%s: %s", verb, d)
		}
		return exitOnError(fmt.Errorf("after %d step(s): %w", len(done), stepErr))
	}

	if GetJSONOutput() {
		return printJSON(map[string]interface{}{"steps": done})
	}
	for _, d := range done {
		status("%s: %s", verb, d)
	}
	return nil
}
