package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/okian/jmscore/internal/adapters/http/api"
	"github.com/okian/jmscore/internal/adapters/replay"
	service "github.com/okian/jmscore/internal/app"
	"github.com/okian/jmscore/internal/domain/model"
	"github.com/okian/jmscore/internal/domain/ranking"
	"github.com/okian/jmscore/internal/domain/scoring"
	"github.com/okian/jmscore/internal/domain/types"
	"github.com/okian/jmscore/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

const prefix = "/JM_test/service"

type mockDependencies struct {
	mu sync.Mutex

	auth    ranking.AuthResult
	authErr error
	panicky bool

	submitErr error
	submitted []model.Submission

	personal    []types.PersonalRow
	personalReq []string
	global      []types.GlobalRow
	globalReq   []ranking.GlobalQuery
	queryErr    error

	replays map[string][]byte
}

func (m *mockDependencies) Authenticate(_ context.Context, id, _ string) (ranking.AuthResult, error) {
	if m.panicky {
		panic("boom: " + id)
	}
	return m.auth, m.authErr
}

func (m *mockDependencies) Submit(_ context.Context, sub model.Submission) (ranking.SubmitResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.submitErr != nil {
		return ranking.SubmitResult{}, m.submitErr
	}
	m.submitted = append(m.submitted, sub)
	return ranking.SubmitResult{EntryID: "0000000000000001", LeaderboardUpdated: true}, nil
}

func (m *mockDependencies) PersonalRanking(_ context.Context, playerID string, mode int) ([]types.PersonalRow, error) {
	m.personalReq = append(m.personalReq, fmt.Sprintf("%s/%d", playerID, mode))
	return m.personal, m.queryErr
}

func (m *mockDependencies) GlobalRanking(_ context.Context, q ranking.GlobalQuery) ([]types.GlobalRow, error) {
	m.globalReq = append(m.globalReq, q)
	return m.global, m.queryErr
}

func (m *mockDependencies) Replay(_ context.Context, entryID string) ([]byte, error) {
	data, ok := m.replays[entryID]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", entryID, replay.ErrNotFound)
	}
	return data, nil
}

type mockStatsProvider struct {
	stats map[string]any
}

func (m *mockStatsProvider) GetStats(context.Context) map[string]any {
	return m.stats
}

func newHandler(deps *mockDependencies, opts ...api.Option) http.Handler {
	stats := &mockStatsProvider{stats: map[string]any{"started": true, "accounts": 3}}
	opts = append([]api.Option{api.WithMOTD("hello players"), api.WithMaxReplayBytes(1024)}, opts...)
	return api.NewServer(deps, stats, opts...).Handler(context.Background())
}

func do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	return do(h, httptest.NewRequest(http.MethodGet, target, http.NoBody))
}

const scoreQuery = "?id=alice&mode=1&score=1200&jewel=50&level=7&class=3&time=600"

func TestServer_Routes(t *testing.T) {
	Convey("Given the API handler", t, func() {
		deps := &mockDependencies{auth: ranking.AuthResult{OK: true}}
		h := newHandler(deps)

		Convey("When probing the root", func() {
			w := get(h, "/")

			Convey("Then it answers 200 with an empty body and a request id", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.Len(), ShouldEqual, 0)
				So(w.Header().Get(api.RequestIDHeader), ShouldNotBeEmpty)
			})
		})

		Convey("When the caller sends a request id", func() {
			req := httptest.NewRequest(http.MethodGet, prefix+"/GetMessage", http.NoBody)
			req.Header.Set(api.RequestIDHeader, "trace-42")
			w := do(h, req)

			Convey("Then it is echoed", func() {
				So(w.Header().Get(api.RequestIDHeader), ShouldEqual, "trace-42")
			})
		})

		Convey("When reading the message of the day and the name", func() {
			msg := get(h, prefix+"/GetMessage")
			name := get(h, prefix+"/GetName?id=alice")

			Convey("Then the configured text and an empty body come back", func() {
				So(msg.Code, ShouldEqual, http.StatusOK)
				So(msg.Body.String(), ShouldEqual, "hello players")
				So(name.Code, ShouldEqual, http.StatusOK)
				So(name.Body.Len(), ShouldEqual, 0)
			})
		})

		Convey("When scraping health and stats", func() {
			health := get(h, "/healthz")
			stats := get(h, "/stats")

			Convey("Then metrics and JSON stats are served", func() {
				So(health.Code, ShouldEqual, http.StatusOK)
				So(stats.Code, ShouldEqual, http.StatusOK)
				So(stats.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")

				var body map[string]any
				So(json.Unmarshal(stats.Body.Bytes(), &body), ShouldBeNil)
				So(body["accounts"], ShouldEqual, float64(3))
			})
		})

		Convey("When the docs are requested", func() {
			So(get(h, "/api-docs").Code, ShouldEqual, http.StatusOK)
			So(get(h, "/openapi.yaml").Code, ShouldEqual, http.StatusOK)
		})

		Convey("When a route is called with the wrong method", func() {
			w := get(h, prefix+"/ScoreEntry"+scoreQuery)

			Convey("Then it is refused", func() {
				So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
				So(deps.submitted, ShouldBeEmpty)
			})
		})

		Convey("When a handler panics", func() {
			deps.panicky = true
			w := get(h, prefix+"/GameEntry?id=alice&pass=pw")

			Convey("Then the panic is answered with 500", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
			})
		})
	})

	Convey("Given a custom route prefix", t, func() {
		h := newHandler(&mockDependencies{}, api.WithRoutePrefix("/jm/"))

		Convey("Then game routes move under it", func() {
			So(get(h, "/jm/GetMessage").Code, ShouldEqual, http.StatusOK)
			So(get(h, prefix+"/GetMessage").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestGameEntry(t *testing.T) {
	Convey("Given the GameEntry route", t, func() {
		deps := &mockDependencies{}
		h := newHandler(deps)

		Convey("When the login is accepted", func() {
			deps.auth = ranking.AuthResult{OK: true, Registered: true}
			w := get(h, prefix+"/GameEntry?game=jm&id=alice&pass=pw&ver=1")

			Convey("Then the body is empty", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldEqual, "")
			})
		})

		Convey("When the login is refused", func() {
			deps.auth = ranking.AuthResult{}
			w := get(h, prefix+"/GameEntry?id=alice&pass=wrong")

			Convey("Then the body is the failure marker", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldEqual, "1")
			})
		})

		Convey("When the store fails", func() {
			deps.authErr = errors.New("disk gone")
			w := get(h, prefix+"/GameEntry?id=alice&pass=pw")

			Convey("Then the request fails with 500 and no body", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(w.Body.Len(), ShouldEqual, 0)
			})
		})
	})
}

func TestGetRanking(t *testing.T) {
	Convey("Given the GetRanking route", t, func() {
		deps := &mockDependencies{
			personal: []types.PersonalRow{
				{PlayerID: "alice", Score: 900, Level: 5, ElapsedTime: 300, JewelCount: 40, First: true},
				{PlayerID: "alice", Score: 800, Level: 4, ElapsedTime: 280, JewelCount: 35},
			},
			global: []types.GlobalRow{
				{Page: 1, EntryID: "0000000000000007", PlayerID: "bob", Score: 700, Level: 3, Class: 12, ElapsedTime: 200, JewelCount: 30},
				{Page: 1, EntryID: "0000000000000003", PlayerID: "alice", Score: 650, Level: 2, Class: 11, ElapsedTime: 190, JewelCount: 25, Highlight: true},
			},
		}
		h := newHandler(deps)

		Convey("When an id is given with view 0", func() {
			w := get(h, prefix+"/GetRanking?id=alice&mode=2&view=0")

			Convey("Then the personal rows are rendered", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.personalReq, ShouldResemble, []string{"alice/2"})
				So(w.Body.String(), ShouldEqual,
					"0\n0\nalice\n900\n0\n5\n0\n300\n40\n1."+
						"0\n0\nalice\n800\n0\n4\n0\n280\n35\n0")
			})
		})

		Convey("When an id is given without a view", func() {
			get(h, prefix+"/GetRanking?id=alice&mode=1")

			Convey("Then it is a personal query", func() {
				So(deps.personalReq, ShouldResemble, []string{"alice/1"})
				So(deps.globalReq, ShouldBeEmpty)
			})
		})

		Convey("When the automatic view is requested with an id", func() {
			w := get(h, prefix+"/GetRanking?id=alice&mode=0&view=-1")

			Convey("Then the global board is queried for that player", func() {
				So(deps.globalReq, ShouldResemble, []ranking.GlobalQuery{{Mode: 0, View: -1, PlayerID: "alice"}})
				So(w.Body.String(), ShouldEqual,
					"1\n0000000000000007\nbob\n700\n0\n3\n12\n200\n30\n0."+
						"1\n0000000000000003\nalice\n650\n0\n2\n11\n190\n25\n1")
			})
		})

		Convey("When numbers are malformed", func() {
			get(h, prefix+"/GetRanking?mode=abc&view=x")

			Convey("Then defaults are used", func() {
				So(deps.globalReq, ShouldResemble, []ranking.GlobalQuery{{Mode: 0, View: 0}})
			})
		})

		Convey("When nothing is ranked", func() {
			deps.global = nil
			w := get(h, prefix+"/GetRanking?mode=1&view=3")

			Convey("Then the body is empty", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.Len(), ShouldEqual, 0)
			})
		})

		Convey("When the query fails", func() {
			deps.queryErr = errors.New("read failed")
			w := get(h, prefix+"/GetRanking?mode=1")

			Convey("Then it is a 500", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
			})
		})
	})
}

func multipartBody(t *testing.T, parts map[string]string, order ...string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range order {
		fw, err := mw.CreateFormFile(name, "replay.rep")
		if err != nil {
			t.Fatal(err)
		}
		_, _ = fw.Write([]byte(parts[name]))
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func TestScoreEntry(t *testing.T) {
	Convey("Given the ScoreEntry route", t, func() {
		deps := &mockDependencies{}
		h := newHandler(deps)

		post := func(query string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodPost, prefix+"/ScoreEntry"+query, body)
			if contentType != "" {
				req.Header.Set("Content-Type", contentType)
			}
			return do(h, req)
		}

		Convey("When the replay is uploaded as fileName", func() {
			body, ct := multipartBody(t, map[string]string{"other": "ignored", "fileName": "REPLAY"}, "other", "fileName")
			w := post(scoreQuery, body, ct)

			Convey("Then the submission carries every field and that part", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.Len(), ShouldEqual, 0)
				So(len(deps.submitted), ShouldEqual, 1)
				So(deps.submitted[0], ShouldResemble, model.Submission{
					PlayerID: "alice", Mode: 1, Score: 1200, JewelCount: 50,
					Level: 7, Class: 3, ElapsedTime: 600, Replay: []byte("REPLAY"),
				})
			})
		})

		Convey("When the replay part has another name", func() {
			body, ct := multipartBody(t, map[string]string{"upload": "FIRST", "second": "SECOND"}, "upload", "second")
			post(scoreQuery, body, ct)

			Convey("Then the first part is used", func() {
				So(string(deps.submitted[0].Replay), ShouldEqual, "FIRST")
			})
		})

		Convey("When the replay is the raw body", func() {
			post(scoreQuery, bytes.NewBufferString("RAW"), "application/octet-stream")

			Convey("Then the body is the replay", func() {
				So(string(deps.submitted[0].Replay), ShouldEqual, "RAW")
			})
		})

		Convey("When the client tags the submission for retries", func() {
			req := httptest.NewRequest(http.MethodPost, prefix+"/ScoreEntry"+scoreQuery, bytes.NewBufferString("RAW"))
			req.Header.Set(api.SubmissionIDHeader, " game-7 ")
			ok := do(h, req)

			long := httptest.NewRequest(http.MethodPost, prefix+"/ScoreEntry"+scoreQuery, bytes.NewBufferString("RAW"))
			long.Header.Set(api.SubmissionIDHeader, strings.Repeat("x", 65))
			refused := do(h, long)

			Convey("Then the token reaches the service and oversized tokens are refused", func() {
				So(ok.Code, ShouldEqual, http.StatusOK)
				So(refused.Code, ShouldEqual, http.StatusBadRequest)
				So(len(deps.submitted), ShouldEqual, 1)
				So(deps.submitted[0].RetryID, ShouldEqual, "game-7")
			})
		})

		Convey("When a number is malformed or missing", func() {
			bad := post(strings.Replace(scoreQuery, "score=1200", "score=12x", 1), bytes.NewBufferString(""), "")
			missing := post("?id=alice&mode=1", bytes.NewBufferString(""), "")

			Convey("Then it is a 400 with no body and nothing is submitted", func() {
				So(bad.Code, ShouldEqual, http.StatusBadRequest)
				So(bad.Body.Len(), ShouldEqual, 0)
				So(missing.Code, ShouldEqual, http.StatusBadRequest)
				So(deps.submitted, ShouldBeEmpty)
			})
		})

		Convey("When the replay exceeds the limit", func() {
			w := post(scoreQuery, bytes.NewBufferString(strings.Repeat("x", 2048)), "application/octet-stream")

			Convey("Then it is refused as too large", func() {
				So(w.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
				So(deps.submitted, ShouldBeEmpty)
			})
		})

		Convey("When the service refuses the submission", func() {
			cases := []struct {
				err    error
				status int
			}{
				{fmt.Errorf("submit: %w", ranking.ErrScoresDisabled), http.StatusNotFound},
				{fmt.Errorf("submit: %w", ranking.ErrUnknownAccount), http.StatusNotFound},
				{fmt.Errorf("validate: %w", scoring.ErrInvalidSubmission), http.StatusBadRequest},
				{service.ErrQueueFull, http.StatusServiceUnavailable},
				{service.ErrNotStarted, http.StatusServiceUnavailable},
				{errors.New("disk full"), http.StatusInternalServerError},
			}

			Convey("Then each error maps to its status", func() {
				for _, c := range cases {
					deps.submitErr = c.err
					w := post(scoreQuery, bytes.NewBufferString(""), "")
					So(w.Code, ShouldEqual, c.status)
					So(w.Body.Len(), ShouldEqual, 0)
				}
			})
		})
	})
}

func TestGetReplay(t *testing.T) {
	Convey("Given the GetReplay route", t, func() {
		deps := &mockDependencies{replays: map[string][]byte{"0000000000000001": {0x00, 0x01, 0xfe}}}
		h := newHandler(deps)

		Convey("When the replay exists", func() {
			w := get(h, prefix+"/GetReplay?id=0000000000000001")

			Convey("Then the raw bytes are served as a download", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.Bytes(), ShouldResemble, []byte{0x00, 0x01, 0xfe})
				So(w.Header().Get("Content-Type"), ShouldEqual, "application/octet-stream")
				So(w.Header().Get("Content-Disposition"), ShouldContainSubstring, "0000000000000001.rep")
			})
		})

		Convey("When the replay is missing", func() {
			w := get(h, prefix+"/GetReplay?id=9999999999999999")

			Convey("Then it is a 404 with no body", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(w.Body.Len(), ShouldEqual, 0)
			})
		})
	})
}
