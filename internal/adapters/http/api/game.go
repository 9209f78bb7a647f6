package api

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/okian/jmscore/internal/adapters/replay"
	service "github.com/okian/jmscore/internal/app"
	"github.com/okian/jmscore/internal/domain/model"
	"github.com/okian/jmscore/internal/domain/ranking"
	"github.com/okian/jmscore/internal/domain/scoring"
	"github.com/okian/jmscore/pkg/logger"
)

// authFailure is the body the client expects when a login is refused.
const authFailure = "1"

// replayPart is the multipart field the client uploads the replay under.
const replayPart = "fileName"

// GameHandler serves the routes the game client calls.
type GameHandler struct {
	deps           Dependencies
	motd           string
	maxReplayBytes int64
	logger         logger.Logger
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if body != "" {
		_, _ = io.WriteString(w, body)
	}
}

// HandleRoot answers the client's connection check.
func (h *GameHandler) HandleRoot(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// HandleGameEntry handles GET GameEntry: login, registering on first use.
// The game and ver parameters are ignored.
func (h *GameHandler) HandleGameEntry(w http.ResponseWriter, r *http.Request) {
	const op = "api.game_entry"
	q := r.URL.Query()

	res, err := h.deps.Authenticate(r.Context(), q.Get("id"), q.Get("pass"))
	if err != nil {
		h.fail(r.Context(), w, Wrap(op, err))
		return
	}
	if !res.OK {
		writeText(w, http.StatusOK, authFailure)
		return
	}
	writeText(w, http.StatusOK, "")
}

// HandleGetRanking handles GET GetRanking. A player id with view 0 asks
// for the personal ranking; anything else is a global leaderboard page.
func (h *GameHandler) HandleGetRanking(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_ranking"
	q := r.URL.Query()
	id := q.Get("id")
	mode := intOr(q, "mode", model.ModeNormal)
	view := intOr(q, "view", 0)

	if id != "" && view == 0 {
		rows, err := h.deps.PersonalRanking(r.Context(), id, mode)
		if err != nil {
			h.fail(r.Context(), w, Wrap(op, err))
			return
		}
		writeText(w, http.StatusOK, formatPersonal(rows))
		return
	}

	rows, err := h.deps.GlobalRanking(r.Context(), ranking.GlobalQuery{Mode: mode, View: view, PlayerID: id})
	if err != nil {
		h.fail(r.Context(), w, Wrap(op, err))
		return
	}
	writeText(w, http.StatusOK, formatGlobal(rows))
}

// HandleScoreEntry handles POST ScoreEntry.
func (h *GameHandler) HandleScoreEntry(w http.ResponseWriter, r *http.Request) {
	const op = "api.score_entry"

	sub, err := parseSubmission(r.URL.Query())
	if err != nil {
		h.fail(r.Context(), w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if sub.RetryID, err = retryID(r); err != nil {
		h.fail(r.Context(), w, WrapKind(op, ErrBadRequest, err))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxReplayBytes)
	sub.Replay, err = readReplay(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.fail(r.Context(), w, WrapKind(op, ErrTooLarge, err))
			return
		}
		h.fail(r.Context(), w, WrapKind(op, ErrBadRequest, err))
		return
	}

	if _, err := h.deps.Submit(r.Context(), sub); err != nil {
		h.fail(r.Context(), w, Wrap(op, err))
		return
	}
	writeText(w, http.StatusOK, "")
}

// readReplay extracts the replay bytes: the multipart part named fileName,
// else the first part, else the raw body.
func readReplay(r *http.Request) ([]byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if !strings.HasPrefix(mediaType, "multipart/") {
		return io.ReadAll(r.Body)
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, err
	}
	var first []byte
	seen := false
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		data, err := readPart(part)
		if err != nil {
			return nil, err
		}
		if part.FormName() == replayPart {
			return data, nil
		}
		if !seen {
			first, seen = data, true
		}
	}
	return first, nil
}

func readPart(p *multipart.Part) ([]byte, error) {
	defer p.Close()
	return io.ReadAll(p)
}

// HandleGetReplay handles GET GetReplay; id is the leaderboard entry id.
func (h *GameHandler) HandleGetReplay(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_replay"
	id := r.URL.Query().Get("id")

	data, err := h.deps.Replay(r.Context(), id)
	if err != nil {
		h.fail(r.Context(), w, Wrap(op, err))
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": id + ".rep"}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// HandleGetMessage handles GET GetMessage.
func (h *GameHandler) HandleGetMessage(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, h.motd)
}

// HandleGetName handles GET GetName. The client never uses the answer.
func (h *GameHandler) HandleGetName(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, "")
}

// statusFor maps an error to the status the client gets. Bodies stay empty.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, scoring.ErrInvalidSubmission):
		return http.StatusBadRequest
	case errors.Is(err, ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, replay.ErrNotFound),
		errors.Is(err, ranking.ErrUnknownAccount),
		errors.Is(err, ranking.ErrScoresDisabled):
		return http.StatusNotFound
	case errors.Is(err, service.ErrQueueFull),
		errors.Is(err, service.ErrNotStarted),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *GameHandler) fail(ctx context.Context, w http.ResponseWriter, err error) {
	status := statusFor(err)
	switch {
	case status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable:
		h.logger.Error(ctx, "request failed", logger.Error(err))
	case status == http.StatusNotFound:
		// normal outcome
	default:
		h.logger.Warn(ctx, "request rejected", logger.Int("status", status), logger.Error(err))
	}
	w.WriteHeader(status)
}
