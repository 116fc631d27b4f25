package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/rustdoc"
	"github.com/fwojciec/rustdoc/cache"
	"github.com/fwojciec/rustdoc/goquery"
	"github.com/fwojciec/rustdoc/htmltomarkdown"
	rdhttp "github.com/fwojciec/rustdoc/http"
	"github.com/fwojciec/rustdoc/mcp"
	rdslog "github.com/fwojciec/rustdoc/slog"
	"github.com/fwojciec/rustdoc/stdio"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Name and Version identify the server to clients.
const (
	Name    = "rustdoc-mcp"
	Version = "0.2.0"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	// A missing .env file is not an error.
	_ = godotenv.Load()

	code := Execute(ctx, NewMain(), os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// Execute runs m, closes it and returns the process exit code. Errors are
// reported on stderr; cancellation is a clean exit.
func Execute(ctx context.Context, m *Main, args []string, stdout, stderr io.Writer) int {
	err := m.Run(ctx, args, stdout, stderr)
	if cerr := m.Close(); cerr != nil {
		fmt.Fprintln(stderr, cerr)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

// Main represents the program.
type Main struct {
	// Stdin is the protocol input stream.
	Stdin io.Reader

	// Getenv looks up environment variables not bound through Kong.
	Getenv func(string) string

	// Docs replaces the docs.rs client, for end-to-end testing.
	Docs rustdoc.DocsService

	fetcher rustdoc.Fetcher
	logFile *os.File
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{
		Stdin:  os.Stdin,
		Getenv: os.Getenv,
	}
}

// Close releases the fetcher and the log file.
func (m *Main) Close() error {
	var errs []error
	if m.fetcher != nil {
		errs = append(errs, m.fetcher.Close())
		m.fetcher = nil
	}
	if m.logFile != nil {
		errs = append(errs, m.logFile.Close())
		m.logFile = nil
	}
	return errors.Join(errs...)
}

// Run parses args and serves MCP over Stdin and stdout until the input ends.
// Logs never go to stdout.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name(Name),
		kong.Description("Serve docs.rs documentation of a Rust crate over MCP stdio"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	for _, arg := range args {
		if arg == "--help" || arg == "-h" {
			_, _ = parser.Parse([]string{"--help"})
			return nil
		}
	}

	if _, err := parser.Parse(args); err != nil {
		return err
	}
	if cli.Version {
		fmt.Fprintf(stdout, "%s %s\n", Name, Version)
		return nil
	}

	debug := cli.Debug
	for _, key := range debugEnv {
		debug = debug || isTruthy(m.Getenv(key))
	}
	logger := m.newLogger(debug, cli.LogFile, stderr).With("session", uuid.NewString())
	logger.Info("server start", "version", Version, "pid", os.Getpid(), "debug", debug)

	docs := m.Docs
	if docs == nil {
		if docs, err = m.newDocsService(cli, logger); err != nil {
			return err
		}
	}

	tools := &mcp.DocsTools{Docs: docs, Crate: cli.Crate, Prefix: cli.ToolPrefix}
	server := mcp.NewServer(Name, Version,
		mcp.WithLogger(logger),
		mcp.WithInstructions(tools.Instructions()),
	)
	tools.Register(server)

	session := stdio.NewSession(m.Stdin, stdout, stdio.WithLogger(logger))
	err = server.Serve(ctx, session)
	logger.Info("server stop", "err", err)
	return err
}

// newDocsService wires HTTP fetching, logging, caching and parsing.
func (m *Main) newDocsService(cli *CLI, logger *slog.Logger) (rustdoc.DocsService, error) {
	userAgent := cli.UserAgent
	if userAgent == "" {
		userAgent = Name + "/" + Version
	}

	var fetcher rustdoc.Fetcher = rdhttp.NewFetcher(
		rdhttp.WithTimeout(cli.Timeout),
		rdhttp.WithUserAgent(userAgent),
		rdhttp.WithRateLimit(cli.RateLimit),
	)
	fetcher = rdslog.NewLoggingFetcher(fetcher, logger)
	fetcher = cache.NewFetcher(fetcher, cache.WithTTL(cli.CacheTTL))
	m.fetcher = fetcher

	docs, err := goquery.NewDocsService(fetcher, htmltomarkdown.NewConverter(), cli.BaseURL)
	if err != nil {
		return nil, err
	}
	return rdslog.NewLoggingDocsService(docs, logger), nil
}

// newLogger builds the process logger. Debug mirrors logs to stderr at
// debug level; a log file receives them too. With neither, logs are
// discarded.
func (m *Main) newLogger(debug bool, logFile string, stderr io.Writer) *slog.Logger {
	var writers []io.Writer
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(stderr, "warning: cannot open log file %q: %v\n", logFile, err)
		} else {
			m.logFile = f
			writers = append(writers, f)
		}
	}
	if debug {
		writers = append(writers, stderr)
	}
	if len(writers) == 0 {
		return slog.New(slog.DiscardHandler)
	}

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(io.MultiWriter(writers...), &slog.HandlerOptions{Level: level}))
}
