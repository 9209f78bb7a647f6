package loadgen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ErrBusy reports a submission refused with 503.
var ErrBusy = errors.New("server busy")

const submissionIDHeader = "X-Submission-Id"

// Client speaks the game client's HTTP protocol.
type Client struct {
	http *http.Client
	base string
}

// NewClient creates a client for the routes under baseURL+prefix.
func NewClient(baseURL, prefix string, timeout time.Duration) *Client {
	return &Client{
		http: &http.Client{Timeout: timeout},
		base: baseURL + prefix,
	}
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read %s: %w", req.URL.Path, err)
	}
	return resp.StatusCode, body, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values) (int, []byte, error) {
	target := c.base + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return 0, nil, err
	}
	return c.do(req)
}

// CheckConnection calls the root path the game client uses as a connection check.
func CheckConnection(ctx context.Context, client *http.Client, baseURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/", http.NoBody)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("connection check: status %d", resp.StatusCode)
	}
	return nil
}

// GameEntry logs in; false means the server answered the failure marker.
func (c *Client) GameEntry(ctx context.Context, id, pass string) (bool, error) {
	status, body, err := c.get(ctx, "/GameEntry", url.Values{"game": {"jm"}, "id": {id}, "pass": {pass}, "ver": {"1"}})
	if err != nil {
		return false, err
	}
	if status != http.StatusOK {
		return false, fmt.Errorf("GameEntry: status %d", status)
	}
	return string(body) != "1", nil
}

// ScoreEntry submits one game with its replay as the fileName part.
func (c *Client) ScoreEntry(ctx context.Context, id string, g *Game) error {
	q := url.Values{
		"id":    {id},
		"mode":  {strconv.Itoa(g.Mode)},
		"score": {strconv.FormatInt(g.Score, 10)},
		"jewel": {strconv.Itoa(g.JewelCount)},
		"level": {strconv.Itoa(g.Level)},
		"class": {strconv.Itoa(g.Class)},
		"time":  {strconv.FormatInt(g.ElapsedTime, 10)},
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("fileName", "temp")
	if err != nil {
		return err
	}
	if _, err := fw.Write(g.Replay); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/ScoreEntry?"+q.Encode(), &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(submissionIDHeader, g.RetryID)

	status, _, err := c.do(req)
	switch {
	case err != nil:
		return err
	case status == http.StatusServiceUnavailable:
		return ErrBusy
	case status != http.StatusOK:
		return fmt.Errorf("ScoreEntry: status %d", status)
	}
	return nil
}

// Personal fetches a player's personal ranking for mode.
func (c *Client) Personal(ctx context.Context, id string, mode int) ([]PersonalRow, error) {
	status, body, err := c.get(ctx, "/GetRanking", url.Values{"id": {id}, "mode": {strconv.Itoa(mode)}, "view": {"0"}})
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("GetRanking personal: status %d", status)
	}
	return ParsePersonal(string(body))
}

// Global fetches a leaderboard page. A non-empty id lets the server pick
// the page holding that player.
func (c *Client) Global(ctx context.Context, id string, mode, view int) ([]GlobalRow, error) {
	q := url.Values{"mode": {strconv.Itoa(mode)}, "view": {strconv.Itoa(view)}}
	if id != "" {
		q.Set("id", id)
	}
	status, body, err := c.get(ctx, "/GetRanking", q)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("GetRanking global: status %d", status)
	}
	return ParseGlobal(string(body))
}

// Replay downloads the replay of an entry.
func (c *Client) Replay(ctx context.Context, entryID string) ([]byte, error) {
	status, body, err := c.get(ctx, "/GetReplay", url.Values{"id": {entryID}})
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("GetReplay %s: status %d", entryID, status)
	}
	return body, nil
}
