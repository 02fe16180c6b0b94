package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/advfind/finder"
)

var countCmd = &cobra.Command{
	Use:   "count FILE|URL",
	Short: "Count matches without changing the document",
	Args:  cobra.ExactArgs(1),
	RunE:  runCount,
}

var exportCmd = &cobra.Command{
	Use:   "export FILE|URL",
	Short: "Highlight terms and print each match with its context",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

var restoreCmd = &cobra.Command{
	Use:   "restore FILE|URL",
	Short: "Re-apply the query saved for a page",
	Long: `Loads the page, looks up the query persisted for its URL in the
page-state database (--db) and highlights it again.`,
	Args: cobra.ExactArgs(1),
	RunE: runRestore,
}

func init() {
	addSearchFlags(countCmd.Flags(), true)
	countCmd.MarkFlagRequired("term")
	rootCmd.AddCommand(countCmd)

	addSearchFlags(exportCmd.Flags(), true)
	exportCmd.MarkFlagRequired("term")
	rootCmd.AddCommand(exportCmd)

	addOutputFlags(restoreCmd.Flags())
	rootCmd.AddCommand(restoreCmd)
}

func runCount(cmd *cobra.Command, args []string) error {
	doc, err := loadDocument(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	e, done, err := newEngine(doc)
	if err != nil {
		return err
	}
	defer done()

	res, err := e.CountOnly(cmd.Context(), terms, options())
	if err != nil {
		return err
	}
	return printJSON(cmd, res)
}

func runExport(cmd *cobra.Command, args []string) error {
	doc, err := loadDocument(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	e, done, err := newEngine(doc)
	if err != nil {
		return err
	}
	defer done()

	if _, err := e.Search(cmd.Context(), terms, options()); err != nil {
		return err
	}
	recs, err := e.ExportMatches(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(cmd, recs)
}

func runRestore(cmd *cobra.Command, args []string) error {
	if dbPath == "" {
		return fmt.Errorf("restore needs a page-state database (--db)")
	}
	return query(cmd, args[0], func(e *finder.Engine) (finder.Result, error) {
		return e.RestoreSaved(cmd.Context())
	})
}
