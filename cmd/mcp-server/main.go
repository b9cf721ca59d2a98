package main

import (
	"context"
	"log"
	"os"

	"github.com/joonyo2/yugwan/internal/config"
	"github.com/joonyo2/yugwan/internal/logging"
	"github.com/joonyo2/yugwan/pkg/yugwan"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	// stdout carries the protocol, logs go to stderr
	logger, err := logging.New(os.Stderr, cfg.LogLevel, "json")
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	backend, err := openBackend(cfg)
	if err != nil {
		log.Fatalf("failed to open session: %v", err)
	}

	// Initialize the API client; the session is shared with the yugwan CLI
	client, err := yugwan.NewClient(&yugwan.ClientOptions{
		BaseURL:        cfg.BaseURL,
		Environment:    cfg.Environment,
		Timeout:        cfg.Timeout,
		SessionBackend: backend,
		Logger:         logger,
		SentryDSN:      cfg.SentryDSN,
		OnReauthRequired: func(ctx context.Context, event yugwan.ReauthEvent) {
			logger.Warn("session expired", "login_url", event.LoginURL)
		},
	})
	if err != nil {
		log.Fatalf("failed to initialize client: %v", err)
	}
	defer client.Close()

	impl := &mcp.Implementation{
		Name:    "yugwan",
		Version: "1.0.0",
	}

	server := mcp.NewServer(impl, nil)

	// Register all tools
	registerTools(server, client)

	// Run server over stdio transport
	if err := server.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// openBackend supports the backends that can be shared with the CLI
func openBackend(cfg *config.Config) (yugwan.SessionBackend, error) {
	switch cfg.SessionBackend {
	case config.BackendMemory:
		return yugwan.NewMemoryBackend(), nil
	case config.BackendSQLite:
		return yugwan.NewSQLiteBackend(cfg.SQLiteDSN, cfg.Namespace)
	case config.BackendRedis:
		return yugwan.NewRedisBackend(yugwan.RedisConfig{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			Namespace: cfg.Namespace,
		})
	default:
		return yugwan.NewFileBackend(cfg.SessionFile), nil
	}
}

func registerTools(server *mcp.Server, client *yugwan.Client) {
	tools := &yugwanTools{client: client}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_notices",
		Description: "List announcements of the Yu Gwan-sun association, newest first with pinned notices on top. Supports paging, search and category filters.",
	}, tools.GetNotices)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_notice",
		Description: "Get one announcement including its full content. Each call counts as a view.",
	}, tools.GetNotice)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_news",
		Description: "List press coverage with outlet, excerpt, link and publication date.",
	}, tools.GetNews)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_popups",
		Description: "List the popups currently displayed on the website.",
	}, tools.GetPopups)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_contest_winners",
		Description: "List awarded entries of the Yu Gwan-sun speech contest, optionally for one year.",
	}, tools.GetContestWinners)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_profile",
		Description: "Get the profile of the member whose session is stored locally. Requires a prior `yugwan login`.",
	}, tools.GetProfile)
}
