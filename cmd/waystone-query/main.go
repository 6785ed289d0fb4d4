// Command waystone-query is an interactive terminal search console over a
// local waystone index.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/latebit/waystone/internal/config"
	"github.com/latebit/waystone/internal/logging"
	"github.com/latebit/waystone/internal/service"
	"github.com/latebit/waystone/internal/transport"
	"github.com/latebit/waystone/internal/tui"
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogFormat, cfg.LogLevel, nil)

	resolver, err := transport.LoadStaticResolver(filepath.Join(cfg.RNSConfigDir, "peers.toml"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading peer resolver: %v\n", err)
		os.Exit(1)
	}
	t := transport.NewQUICTransport(resolver)

	clock := func() float64 { return float64(time.Now().Unix()) }
	app, err := service.New(cfg, t, "", clock, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "building app: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	initialQuery := ""
	if flag.NArg() > 0 {
		initialQuery = flag.Arg(0)
	}

	p := tea.NewProgram(tui.New(app, initialQuery), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
