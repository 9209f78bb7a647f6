package loadgen

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/jmscore/internal/adapters/http/api"
	app "github.com/okian/jmscore/internal/app"
	"github.com/okian/jmscore/internal/config"
	"github.com/okian/jmscore/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

func startServer(t *testing.T, multi bool) *httptest.Server {
	t.Helper()
	ctx := context.Background()
	cfg := config.New()
	cfg.DataDir = filepath.Join(t.TempDir(), "data")
	cfg.MultiScores = multi
	cfg.WriterCount = 4

	svc := app.New(cfg)
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start service: %v", err)
	}
	t.Cleanup(func() { _ = svc.Stop(ctx) })

	ts := httptest.NewServer(api.NewServer(svc, svc, api.WithRoutePrefix(cfg.RoutePrefix)).Handler(ctx))
	t.Cleanup(ts.Close)
	return ts
}

func TestRun(t *testing.T) {
	for _, multi := range []bool{false, true} {
		Convey("Given a running server", t, func() {
			ts := startServer(t, multi)
			outFile := filepath.Join(t.TempDir(), "out", "games.json")

			Convey("When a load run plays against it", func() {
				var out bytes.Buffer
				stats, err := Run(context.Background(), &Config{
					BaseURL:     ts.URL,
					Players:     12,
					Games:       14,
					Mode:        1,
					Workers:     4,
					ReplayBytes: 64,
					Seed:        7,
					OutputFile:  outFile,
				}, &out)

				Convey("Then every game is accepted and verified", func() {
					So(err, ShouldBeNil)
					So(stats.PlayersRegistered, ShouldEqual, 12)
					So(stats.GamesSubmitted, ShouldEqual, 12*14)
					So(stats.GamesAccepted, ShouldEqual, 12*14)
					So(stats.GamesFailed, ShouldEqual, 0)
					So(stats.ReplaysVerified, ShouldEqual, 12)
					So(stats.Violations, ShouldBeEmpty)
					So(out.String(), ShouldContainSubstring, "PASS")
					_, statErr := os.Stat(outFile)
					So(statErr, ShouldBeNil)
				})
			})
		})
	}

	Convey("Given nothing listening", t, func() {
		ts := httptest.NewServer(nil)
		url := ts.URL
		ts.Close()

		Convey("Then the connection check fails the run", func() {
			_, err := Run(context.Background(), &Config{BaseURL: url, Players: 1, Games: 1}, &bytes.Buffer{})
			So(err, ShouldNotBeNil)
		})
	})
}

func TestParse(t *testing.T) {
	Convey("Given ranking responses", t, func() {
		Convey("Then personal rows decode", func() {
			rows, err := ParsePersonal("0\n0\nalice\n900\n0\n7\n0\n1200\n33\n1.0\n0\nalice\n500\n0\n3\n0\n800\n10\n0")
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 2)
			So(rows[0], ShouldResemble, PersonalRow{PlayerID: "alice", Score: 900, Level: 7, ElapsedTime: 1200, JewelCount: 33, First: true})
			So(rows[1].First, ShouldBeFalse)
		})

		Convey("Then global rows decode", func() {
			rows, err := ParseGlobal("2\nAbC123\nbob\n42\n0\n5\n301\n99\n8\n1")
			So(err, ShouldBeNil)
			So(rows, ShouldResemble, []GlobalRow{{
				Page: 2, EntryID: "AbC123", PlayerID: "bob", Score: 42,
				Level: 5, Class: 301, ElapsedTime: 99, JewelCount: 8, Highlight: true,
			}})
		})

		Convey("Then an empty body is no rows", func() {
			rows, err := ParseGlobal("")
			So(err, ShouldBeNil)
			So(rows, ShouldBeEmpty)
		})

		Convey("Then malformed rows are rejected", func() {
			_, err := ParseGlobal("1\n2\n3")
			So(err, ShouldNotBeNil)
			_, err = ParsePersonal("0\n0\nalice\nlots\n0\n7\n0\n1200\n33\n1")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestGeneratePlayers(t *testing.T) {
	Convey("Given a generator config", t, func() {
		cfg := (&Config{Players: 40, Games: 6, ReplayBytes: 16, Seed: 3}).withDefaults()
		players := generatePlayers(&cfg)

		Convey("Then ids are unique and fit the client limit", func() {
			seen := map[string]bool{}
			for _, p := range players {
				So(len(p.ID), ShouldBeLessThanOrEqualTo, 16)
				So(seen[p.ID], ShouldBeFalse)
				seen[p.ID] = true
			}
		})

		Convey("Then a player's scores never repeat", func() {
			for _, p := range players {
				scores := map[int64]bool{}
				for _, g := range p.Games {
					So(scores[g.Score], ShouldBeFalse)
					scores[g.Score] = true
					So(g.Replay, ShouldHaveLength, 16)
					So(g.RetryID, ShouldNotBeEmpty)
				}
				So(expectedPersonal(&p)[0], ShouldEqual, p.best().Score)
			}
		})
	})
}
