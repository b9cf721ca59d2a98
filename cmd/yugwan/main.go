// Command yugwan is a command line client for the Yu Gwan-sun API.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joonyo2/yugwan/internal/config"
	"github.com/joonyo2/yugwan/internal/logging"
	"github.com/joonyo2/yugwan/pkg/yugwan"
)

const usage = `usage: yugwan [flags] <command> [args]

commands:
  login -email <email> [-password <password>]
  logout
  status
  profile
  notices [-page n] [-search text] [-category name]
  notice <id>
  news [-page n] [-search text] [-source name]
  winners [year]
  popups
  version

flags:
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one command and returns the process exit code
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("yugwan", flag.ContinueOnError)
	fs.SetOutput(stderr)
	jsonOutput := fs.Bool("json", false, "Print JSON instead of tables")
	baseURL := fs.String("base-url", "", "API base URL (overrides YUGWAN_BASE_URL)")
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	name, cmdArgs := fs.Arg(0), fs.Args()[1:]
	if name == "version" {
		printVersion(stdout)
		return 0
	}

	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", name)
		fs.Usage()
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "configuration error: %v\n", err)
		return 1
	}
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}

	logger, err := logging.New(stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(stderr, "configuration error: %v\n", err)
		return 1
	}

	a, err := newApp(cfg, logger, stdout, stderr)
	if err != nil {
		logger.Error("failed to create client", "error", err)
		return 1
	}
	defer a.close()
	a.json = *jsonOutput

	if err := cmd(ctx, a, cmdArgs); err != nil {
		if yugwan.IsAuthError(err) {
			fmt.Fprintln(stderr, "not logged in, run: yugwan login -email <email>")
		}
		fmt.Fprintf(stderr, "%s: %v\n", name, err)
		return 1
	}
	return 0
}

// app carries the client and output settings shared by commands
type app struct {
	client  *yugwan.Client
	logger  *logging.Logger
	stdout  io.Writer
	stderr  io.Writer
	json    bool
	closers []io.Closer
}

func newApp(cfg *config.Config, logger *logging.Logger, stdout, stderr io.Writer) (*app, error) {
	backend, closer, err := openBackend(cfg)
	if err != nil {
		return nil, err
	}

	a := &app{logger: logger, stdout: stdout, stderr: stderr}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}

	opts := &yugwan.ClientOptions{
		BaseURL:        cfg.BaseURL,
		Environment:    cfg.Environment,
		Timeout:        cfg.Timeout,
		SessionBackend: backend,
		Logger:         logger,
		SentryDSN:      cfg.SentryDSN,
		OnReauthRequired: func(ctx context.Context, event yugwan.ReauthEvent) {
			fmt.Fprintf(stderr, "session expired, log in again (%s)\n", event.LoginURL)
		},
	}
	if cfg.RateLimit > 0 {
		opts.RateLimiter = yugwan.NewRateLimiter(cfg.RateLimit, 1)
	}
	if cfg.MaxRetries > 0 {
		opts.RetryConfig = &yugwan.RetryConfig{
			MaxRetries: cfg.MaxRetries,
			RetryWait:  500 * time.Millisecond,
			MaxWait:    5 * time.Second,
		}
	}

	client, err := yugwan.NewClient(opts)
	if err != nil {
		a.close()
		return nil, err
	}
	a.client = client
	return a, nil
}

// openBackend selects the session backend. The closer is nil for backends
// without resources.
func openBackend(cfg *config.Config) (yugwan.SessionBackend, io.Closer, error) {
	switch cfg.SessionBackend {
	case config.BackendMemory:
		return yugwan.NewMemoryBackend(), nil, nil
	case config.BackendSQLite:
		backend, err := yugwan.NewSQLiteBackend(cfg.SQLiteDSN, cfg.Namespace)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite session: %w", err)
		}
		return backend, backend, nil
	case config.BackendRedis:
		backend, err := yugwan.NewRedisBackend(yugwan.RedisConfig{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			Namespace: cfg.Namespace,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect redis session: %w", err)
		}
		return backend, backend, nil
	default:
		return yugwan.NewFileBackend(cfg.SessionFile), nil, nil
	}
}

func (a *app) close() {
	if a.client != nil {
		a.client.Close()
	}
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Warn("failed to close session backend", "error", err)
		}
	}
}
