package loadgen

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

const percentageMultiplier = 100

func writeReport(w io.Writer, s *Stats) {
	var acceptRate, gamesPerSecond float64
	if s.GamesSubmitted > 0 {
		acceptRate = float64(s.GamesAccepted) / float64(s.GamesSubmitted) * percentageMultiplier
	}
	if s.Duration > 0 {
		gamesPerSecond = float64(s.GamesSubmitted) / s.Duration.Seconds()
	}

	title := color.New(color.Bold)
	ok := color.New(color.FgGreen)
	bad := color.New(color.FgRed, color.Bold)

	title.Fprintln(w, "Jewelry Master load run")
	fmt.Fprintf(w, "  players registered  %d\n", s.PlayersRegistered)
	fmt.Fprintf(w, "  games submitted     %d\n", s.GamesSubmitted)
	fmt.Fprintf(w, "  games accepted      %d (%.1f%%)\n", s.GamesAccepted, acceptRate)
	fmt.Fprintf(w, "  busy retries        %d\n", s.GamesRetried)
	fmt.Fprintf(w, "  games failed        %d\n", s.GamesFailed)
	fmt.Fprintf(w, "  pages scanned       %d\n", s.PagesScanned)
	fmt.Fprintf(w, "  replays verified    %d\n", s.ReplaysVerified)
	fmt.Fprintf(w, "  duration            %s (%.1f games/s)\n", s.Duration, gamesPerSecond)

	if len(s.Violations) == 0 {
		ok.Fprintln(w, "PASS: rankings and replays match the submitted games")
		return
	}
	bad.Fprintf(w, "FAIL: %d violations\n", len(s.Violations))
	for _, v := range s.Violations {
		fmt.Fprintf(w, "  - %s\n", v)
	}
}
