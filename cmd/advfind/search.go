package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hazyhaar/advfind/finder"
)

var (
	terms      []string
	optCase    bool
	optWhole   bool
	optRegex   bool
	optFold    bool
	optExclude string
	outPath    string
	outFormat  string
	styles     bool
)

// addSearchFlags registers the term and option flags shared by every
// query command.
func addSearchFlags(fs *pflag.FlagSet, withTerms bool) {
	if withTerms {
		fs.StringArrayVarP(&terms, "term", "t", nil, "search term (repeatable)")
	}
	fs.BoolVar(&optCase, "case", false, "case-sensitive matching")
	fs.BoolVar(&optWhole, "whole", false, "match whole words only")
	fs.BoolVar(&optRegex, "regex", false, "treat terms as RE2 patterns")
	fs.BoolVar(&optFold, "diacritics", false, "ignore diacritics")
	fs.StringVar(&optExclude, "exclude", "", "drop matches near this term")
}

func addOutputFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&outPath, "out", "o", "", "write the highlighted document to this file")
	fs.StringVar(&outFormat, "format", "html", "output format: html, safe-html, md")
	fs.BoolVar(&styles, "styles", true, "inject the highlight stylesheet")
}

func options() finder.Options {
	return finder.Options{
		CaseSensitive:    optCase,
		WholeWords:       optWhole,
		UseRawPattern:    optRegex,
		IgnoreDiacritics: optFold,
		ExcludeTerm:      optExclude,
	}
}

var searchCmd = &cobra.Command{
	Use:   "search FILE|URL",
	Short: "Highlight terms in a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	addSearchFlags(searchCmd.Flags(), true)
	addOutputFlags(searchCmd.Flags())
	searchCmd.MarkFlagRequired("term")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	return query(cmd, args[0], func(e *finder.Engine) (finder.Result, error) {
		return e.Search(cmd.Context(), terms, options())
	})
}

// query loads src, runs fn, prints the result as JSON and writes the
// highlighted document.
func query(cmd *cobra.Command, src string, fn func(*finder.Engine) (finder.Result, error)) error {
	doc, err := loadDocument(cmd.Context(), src)
	if err != nil {
		return err
	}
	e, done, err := newEngine(doc)
	if err != nil {
		return err
	}
	defer done()

	res, err := fn(e)
	if err != nil {
		return err
	}
	if outPath == "" {
		// Document goes to stdout; keep the summary in the log.
		logger.Info("advfind: matches", "count", res.Count, "per_term", res.PerTerm)
	} else if err := printJSON(cmd, res); err != nil {
		return err
	}
	if styles {
		if err := e.InjectStyles(); err != nil {
			logger.Warn("advfind: styles not injected", "error", err)
		}
	}
	return writeOutput(e.Document(), outPath, outFormat)
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
