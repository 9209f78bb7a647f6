package loadgen

import "time"

// Default run configuration.
const (
	DefaultBaseURL     = "http://localhost:8081"
	DefaultRoutePrefix = "/JM_test/service"
	DefaultPlayers     = 50
	DefaultGames       = 15
	DefaultReplayBytes = 2048
	DefaultTimeout     = 30 * time.Second
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL     string        // server root, without the route prefix
	RoutePrefix string        // path of the game routes
	Players     int           // distinct players to register
	Games       int           // games submitted per player
	Mode        int           // game mode every game is played in
	Workers     int           // concurrent players
	ReplayBytes int           // size of each generated replay
	Seed        uint64        // seed for the game generator
	Timeout     time.Duration // HTTP request timeout
	OutputFile  string        // optional JSON dump of the generated games
	Verbose     bool
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.BaseURL == "" {
		out.BaseURL = DefaultBaseURL
	}
	if out.RoutePrefix == "" {
		out.RoutePrefix = DefaultRoutePrefix
	}
	if out.Players < 1 {
		out.Players = DefaultPlayers
	}
	if out.Games < 1 {
		out.Games = DefaultGames
	}
	if out.Workers < 1 {
		out.Workers = 1
	}
	if out.ReplayBytes < 0 {
		out.ReplayBytes = 0
	}
	if out.Timeout <= 0 {
		out.Timeout = DefaultTimeout
	}
	return out
}

// Player is a generated account and the games it will submit.
type Player struct {
	ID       string `json:"id"`
	Password string `json:"pass"`
	Games    []Game `json:"games"`

	failed bool // a game was not accepted; rankings cannot be predicted
}

// Game is one generated ScoreEntry submission.
type Game struct {
	Mode        int    `json:"mode"`
	Score       int64  `json:"score"`
	JewelCount  int    `json:"jewel"`
	Level       int    `json:"level"`
	Class       int    `json:"class"`
	ElapsedTime int64  `json:"time"`
	RetryID     string `json:"retry_id"` // repeated on every attempt of this game
	Replay      []byte `json:"-"`
}

// Stats holds run statistics.
type Stats struct {
	PlayersRegistered int
	GamesSubmitted    int
	GamesAccepted     int
	GamesRetried      int
	GamesFailed       int
	PagesScanned      int
	ReplaysVerified   int
	Violations        []string
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
