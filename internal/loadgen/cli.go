package loadgen

import (
	"io"
)

// ShowHelp writes usage information for the load generator.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `Jewelry Master Load Generator
=============================

Registers players, submits their games with replays and checks that the
server's rankings and replays match what was sent.

Usage:
  go run ./cmd/loadgen [options]

Options:
  -url string
        Server root (default "http://localhost:8081")
  -prefix string
        Route prefix of the game endpoints (default "/JM_test/service")
  -players int
        Players to register (default 50)
  -games int
        Games per player (default 15)
  -mode int
        Game mode: 0 normal, 1 hard, 2 death (default 0)
  -workers int
        Concurrent players (default CPU cores)
  -replay int
        Bytes per generated replay (default 2048)
  -seed uint
        Generator seed (default: current time)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Write the generated games as JSON to this file
  -verbose
        Log every rejected game
  -help
        Show this help message

Examples:
  go run ./cmd/loadgen -players 200 -games 20 -workers 16
  go run ./cmd/loadgen -url http://localhost:8080 -mode 2 -output games.json
`)
}
