package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/jmscore/internal/loadgen"
	"github.com/okian/jmscore/pkg/logger"
)

const defaultRunTimeout = 10 * time.Minute

func main() {
	var (
		baseURL  = flag.String("url", loadgen.DefaultBaseURL, "Server root")
		prefix   = flag.String("prefix", loadgen.DefaultRoutePrefix, "Route prefix of the game endpoints")
		players  = flag.Int("players", loadgen.DefaultPlayers, "Players to register")
		games    = flag.Int("games", loadgen.DefaultGames, "Games per player")
		mode     = flag.Int("mode", 0, "Game mode: 0 normal, 1 hard, 2 death")
		workers  = flag.Int("workers", runtime.NumCPU(), "Concurrent players")
		replay   = flag.Int("replay", loadgen.DefaultReplayBytes, "Bytes per generated replay")
		seed     = flag.Uint64("seed", uint64(time.Now().UnixNano()), "Generator seed")
		timeout  = flag.Duration("timeout", loadgen.DefaultTimeout, "HTTP request timeout")
		output   = flag.String("output", "", "Write the generated games as JSON to this file")
		logLevel = flag.String("log-level", "warn", "Log level")
		verbose  = flag.Bool("verbose", false, "Log every rejected game")
		help     = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		loadgen.ShowHelp(os.Stdout)
		return
	}

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := logger.SetLevelString(*logLevel); err != nil {
		os.Stderr.WriteString("Invalid log level: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	stats, err := loadgen.Run(ctx, &loadgen.Config{
		BaseURL:     *baseURL,
		RoutePrefix: *prefix,
		Players:     *players,
		Games:       *games,
		Mode:        *mode,
		Workers:     *workers,
		ReplayBytes: *replay,
		Seed:        *seed,
		Timeout:     *timeout,
		OutputFile:  *output,
		Verbose:     *verbose,
	}, os.Stdout)
	_ = logger.Sync()
	if err != nil {
		os.Stderr.WriteString("Load run failed: " + err.Error() + "\n")
		os.Exit(1)
	}
	if len(stats.Violations) > 0 {
		os.Exit(2)
	}
}
