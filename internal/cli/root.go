// Package cli provides the command-line interface for mobproto.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Global flags
var (
	jsonOutput bool
	fileFlag   string
	actorName  string
	configPath string
	quiet      bool
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mobproto",
	Short: "Inspect and edit Metin2 mob_proto.txt tables",
	Long: `mobproto reads, edits and writes the tab-separated mob_proto.txt table
used by Metin2 servers.

Features:
  - Byte-stable round trip: unedited files are written back unchanged
  - Typed edits: every cell is checked against its column before it is stored
  - Bulk edits: multiply, add or set a column over many mobs at once
  - Undo/redo: up to 50 steps, kept across runs in <file>.history.jsonl
  - Safe saves: atomic writes with a timestamped backup of the old file
  - CSV export/import and read-only SQL queries`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVarP(&fileFlag, "file", "f", "", "Table file (default: $MOBPROTO_FILE, config, or ./mob_proto.txt)")
	rootCmd.PersistentFlags().StringVar(&actorName, "actor", "", "Name recorded in the undo journal (default: $MOBPROTO_ACTOR or $USER)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ./.mobproto.json)")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress non-essential output")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug output")
}

// ExitCode is used to communicate exit codes for testing
var ExitCode int

// ExitFunc is the function called to exit the program
// Can be overridden for testing
var ExitFunc = os.Exit

// Exit sets the exit code and calls the exit function
func Exit(code int) {
	ExitCode = code
	ExitFunc(code)
}

// GetJSONOutput returns whether JSON output is enabled
func GetJSONOutput() bool {
	return jsonOutput
}

// GetActorName returns the actor name override
func GetActorName() string {
	return actorName
}

// IsQuiet returns whether quiet mode is enabled
func IsQuiet() bool {
	return quiet
}

// IsVerbose returns whether verbose mode is enabled
func IsVerbose() bool {
	return verbose
}
