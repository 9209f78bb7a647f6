package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/okian/jmscore/internal/domain/model"
)

// intOr parses a query value leniently; anything unparsable is def.
func intOr(v url.Values, key string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(v.Get(key)))
	if err != nil {
		return def
	}
	return n
}

// requiredInt parses a query value that must be a base-10 integer.
func requiredInt(v url.Values, key string) (int64, error) {
	raw := strings.TrimSpace(v.Get(key))
	if raw == "" {
		return 0, fmt.Errorf("missing %s", key)
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return n, nil
}

// SubmissionIDHeader is an optional client token repeated on retries of
// one ScoreEntry, so a retry after a lost response is applied once.
const SubmissionIDHeader = "X-Submission-Id"

const maxRetryIDLen = 64

func retryID(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.Header.Get(SubmissionIDHeader))
	if len(id) > maxRetryIDLen {
		return "", fmt.Errorf("%s longer than %d bytes", SubmissionIDHeader, maxRetryIDLen)
	}
	return id, nil
}

// parseSubmission reads the score fields of a ScoreEntry request. The
// replay bytes are read separately.
func parseSubmission(v url.Values) (model.Submission, error) {
	sub := model.Submission{PlayerID: v.Get("id")}

	fields := []struct {
		key string
		set func(int64)
	}{
		{"mode", func(n int64) { sub.Mode = int(n) }},
		{"score", func(n int64) { sub.Score = n }},
		{"jewel", func(n int64) { sub.JewelCount = int(n) }},
		{"level", func(n int64) { sub.Level = int(n) }},
		{"class", func(n int64) { sub.Class = int(n) }},
		{"time", func(n int64) { sub.ElapsedTime = n }},
	}
	for _, f := range fields {
		n, err := requiredInt(v, f.key)
		if err != nil {
			return model.Submission{}, err
		}
		f.set(n)
	}
	return sub, nil
}
