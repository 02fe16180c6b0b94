package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/advfind/audit"
	"github.com/hazyhaar/advfind/browser"
	"github.com/hazyhaar/advfind/finder"
	"github.com/hazyhaar/advfind/finder/dom"
	"github.com/hazyhaar/advfind/kit"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	configPath string
	logLevel   string
	dbPath     string
	remoteURL  string

	cfg    = finder.DefaultConfig()
	logger = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:   "advfind",
	Short: "Find and highlight text in HTML documents",
	Long: `advfind marks every occurrence of one or more search expressions in an
HTML document or a live page, including open shadow roots and same-origin
frames. Terms may be literal, wildcard (*) or RE2 patterns; proximity
searches find two terms within a word or character distance.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "path to advfind.yaml config file")
	pf.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	pf.StringVar(&dbPath, "db", "", "page-state database (enables persistence)")
	pf.StringVar(&remoteURL, "remote", "", "WebSocket URL of a running Chrome")
}

func setup(cmd *cobra.Command, _ []string) error {
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if configPath != "" {
		c, err := finder.LoadConfigFile(configPath)
		if err != nil {
			return err
		}
		cfg = c
	}
	if remoteURL != "" {
		cfg.Browser.Remote = remoteURL
	}
	if dbPath == "" && configPath != "" {
		dbPath = cfg.Store.Path
	}
	return nil
}

// openStore opens the page-state database and the audit log stored
// alongside it. Both are nil when no database is configured.
func openStore() (*finder.Store, *audit.SQLiteLogger, func(), error) {
	if dbPath == "" {
		return nil, nil, func() {}, nil
	}
	st, err := finder.OpenStore(dbPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open store: %w", err)
	}
	al := audit.NewSQLiteLogger(st.DB, audit.WithLogger(logger))
	if err := al.Init(); err != nil {
		al.Close()
		st.Close()
		return nil, nil, nil, err
	}
	return st, al, func() {
		al.Close()
		st.Close()
	}, nil
}

// engineOptions are the options shared by every engine of the process.
func engineOptions(st *finder.Store, al *audit.SQLiteLogger) []finder.Option {
	opts := []finder.Option{finder.WithLogger(logger)}
	if st != nil {
		opts = append(opts, finder.WithStore(st))
	}
	if al != nil {
		opts = append(opts, finder.WithServiceMiddleware(func(service string) kit.Middleware {
			return audit.Middleware(al, service)
		}))
	}
	return opts
}

// newEngine wraps doc, with persistence when a database is configured.
// The returned cleanup closes the engine and the database.
func newEngine(doc *dom.Document, opts ...finder.Option) (*finder.Engine, func(), error) {
	st, al, closeStore, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	e := finder.New(doc, cfg, append(engineOptions(st, al), opts...)...)
	return e, func() {
		e.Close()
		closeStore()
	}, nil
}

func browserConfig() browser.Config {
	return browser.Config{
		Remote:  cfg.Browser.Remote,
		Stealth: cfg.Browser.Stealth,
		Timeout: cfg.Browser.Timeout,
		Logger:  logger,
	}
}
