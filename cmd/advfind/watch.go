package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/advfind/finder"
	"github.com/hazyhaar/advfind/finder/dom"
	"github.com/hazyhaar/advfind/watch"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch FILE",
	Short: "Keep a highlighted copy of a file up to date while it is edited",
	Long: `Highlights FILE, then watches it. Every save is applied to the live
document as a mutation; the engine replays the query after the debounce
window and the output file is rewritten.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	addSearchFlags(watchCmd.Flags(), true)
	addOutputFlags(watchCmd.Flags())
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 100*time.Millisecond, "quiet period after a file change before reloading")
	watchCmd.MarkFlagRequired("term")
	watchCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	path, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	doc, err := parseFile(path)
	if err != nil {
		return err
	}

	replayed := make(chan finder.Result, 1)
	e, done, err := newEngine(doc, finder.WithReplayHook(func(res finder.Result, err error) {
		if err != nil {
			logger.Warn("advfind: replay failed", "error", err)
			return
		}
		select {
		case replayed <- res:
		default:
		}
	}))
	if err != nil {
		return err
	}
	defer done()

	res, err := e.Search(ctx, terms, options())
	if err != nil {
		return err
	}
	if err := write(e); err != nil {
		return err
	}
	logger.Info("advfind: watching", "file", path, "out", outPath, "count", res.Count)

	w := watch.New(path, watch.Options{Debounce: watchDebounce, Logger: logger})
	errc := make(chan error, 1)
	go func() {
		errc <- w.OnChange(ctx, func() error {
			fresh, err := parseFile(path)
			if err != nil {
				return err
			}
			return e.Mutate(func(d *dom.Document) error { return replaceBody(d, fresh) })
		})
	}()

	for {
		select {
		case err := <-errc:
			return err
		case res := <-replayed:
			if err := write(e); err != nil {
				logger.Warn("advfind: write failed", "out", outPath, "error", err)
				continue
			}
			logger.Info("advfind: output refreshed", "count", res.Count, "reloads", w.Stats().Reloads)
		}
	}
}

func write(e *finder.Engine) error {
	if styles {
		if err := e.InjectStyles(); err != nil {
			logger.Debug("advfind: styles not injected", "error", err)
		}
	}
	return e.View(func(d *dom.Document) error { return writeOutput(d, outPath, outFormat) })
}

// replaceBody swaps the body content of d for the body content of fresh,
// through d's mutation methods so observers see the edit.
func replaceBody(d, fresh *dom.Document) error {
	body, src := d.Body(), fresh.Body()
	if body == nil || src == nil {
		return fmt.Errorf("replace body: document has no body")
	}
	for c := body.FirstChild; c != nil; {
		next := c.NextSibling
		if err := d.RemoveChild(body, c); err != nil {
			return err
		}
		c = next
	}
	for c := src.FirstChild; c != nil; {
		next := c.NextSibling
		src.RemoveChild(c)
		if err := d.AppendChild(body, c); err != nil {
			return err
		}
		c = next
	}
	return nil
}
