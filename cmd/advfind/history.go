package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/advfind/audit"
)

var (
	histService string
	histStatus  string
	histSession string
	histSince   time.Duration
	histLimit   int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded service calls from the audit log",
	Long: `Prints the service calls (HTTP and MCP) recorded in the page-state
database, newest first, as JSON.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	fs := historyCmd.Flags()
	fs.StringVar(&histService, "service", "", "only this service, e.g. advfind_search")
	fs.StringVar(&histStatus, "status", "", "only this status: success or error")
	fs.StringVar(&histSession, "session", "", "only this session id")
	fs.DurationVar(&histSince, "since", 0, "only calls newer than this, e.g. 1h")
	fs.IntVar(&histLimit, "limit", 100, "maximum number of entries")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	if dbPath == "" {
		return fmt.Errorf("history needs a page-state database (--db)")
	}
	_, al, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	f := audit.Filter{
		Action:    histService,
		Status:    histStatus,
		SessionID: histSession,
		Limit:     histLimit,
	}
	if histSince > 0 {
		f.Since = time.Now().Add(-histSince)
	}
	entries, err := al.Query(cmd.Context(), f)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	return printJSON(cmd, entries)
}
