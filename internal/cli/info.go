package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show table information and status",
	Long: `Show information about the table file.

Displays the row count, detected file layout (encoding, header, line
endings), undo history state, backups and the resolved actor.

Examples:
  mobproto info
  mobproto info --file /srv/locale/mob_proto.txt --json`,
	Args: cobra.NoArgs,
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

// InfoOutput represents the info output
type InfoOutput struct {
	File     string `json:"file"`
	Hash     string `json:"hash"`
	Rows     int    `json:"rows"`
	Encoding string `json:"encoding"`
	Header   bool   `json:"header"`
	CRLF     bool   `json:"crlf"`
	BOM      bool   `json:"bom"`
	History  struct {
		Commands int `json:"commands"`
		Position int `json:"position"`
		Limit    int `json:"limit"`
		Dropped  int `json:"dropped"`
	} `json:"history"`
	Backups   int    `json:"backups"`
	NamesFile string `json:"names_file,omitempty"`
	Names     int    `json:"names"`
	Actor     string `json:"actor"`
}

func runInfo(cmd *cobra.Command, args []string) error {
	s, ctx, err := openSession()
	if err != nil {
		return exitOnError(err)
	}
	defer s.Close()

	info, err := s.Info()
	if err != nil {
		return exitOnError(err)
	}
	backups, err := s.Backups()
	if err != nil {
		return exitOnError(err)
	}

	out := InfoOutput{
		File:      info.Path,
		Hash:      info.Hash,
		Rows:      info.Rows,
		Encoding:  info.Format.Encoding,
		Header:    info.Format.HasHeader,
		CRLF:      info.Format.CRLF,
		BOM:       info.Format.BOM,
		Backups:   len(backups),
		NamesFile: ctx.NamesFile,
		Names:     info.NamesLoaded,
		Actor:     ctx.Actor,
	}
	out.History.Commands = info.HistoryLen
	out.History.Position = info.HistoryPos
	out.History.Limit = info.HistoryCap
	out.History.Dropped = info.Dropped

	if GetJSONOutput() {
		return printJSON(out)
	}

	lineEnd := "LF"
	if out.CRLF {
		lineEnd = "CRLF"
	}
	fmt.Printf("File:     %s\n", out.File)
	fmt.Printf("Rows:     %d\n", out.Rows)
	fmt.Printf("Format:   %s, %s, header=%t, bom=%t\n", out.Encoding, lineEnd, out.Header, out.BOM)
	fmt.Printf("History:  %d/%d applied (limit %d)\n", out.History.Position, out.History.Commands, out.History.Limit)
	fmt.Printf("Backups:  %d\n", out.Backups)
	if out.NamesFile != "" {
		fmt.Printf("Names:    %d from %s\n", out.Names, out.NamesFile)
	}
	fmt.Printf("Actor:    %s\n", out.Actor)
	if IsVerbose() {
		fmt.Printf("Hash:     %s\n", out.Hash)
	}
	return nil
}
