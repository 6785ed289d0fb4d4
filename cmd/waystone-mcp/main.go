// Command waystone-mcp is an MCP server exposing waystone's search,
// listing, and citation lookups as tools for LLM agents over stdio.
package main

import (
	"log"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/latebit/waystone/internal/config"
	"github.com/latebit/waystone/internal/logging"
	"github.com/latebit/waystone/internal/mcp"
	"github.com/latebit/waystone/internal/service"
	"github.com/latebit/waystone/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger := logging.New(cfg.LogFormat, cfg.LogLevel, nil)

	resolver, err := transport.LoadStaticResolver(filepath.Join(cfg.RNSConfigDir, "peers.toml"))
	if err != nil {
		log.Fatalf("loading peer resolver: %v", err)
	}
	t := transport.NewQUICTransport(resolver)

	clock := func() float64 { return float64(time.Now().Unix()) }
	app, err := service.New(cfg, t, "", clock, logger)
	if err != nil {
		log.Fatalf("building app: %v", err)
	}
	defer app.Close()

	s := mcp.NewServer(app)
	if err := server.ServeStdio(s); err != nil {
		log.Fatal(err)
	}
}
