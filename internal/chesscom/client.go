package chesscom

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/kapu/chess-driller/internal/gamecache"
	"github.com/kapu/chess-driller/internal/obslog"
	"github.com/kapu/chess-driller/pkg/chesscomdto"
)

// HeaderProvider allows injecting per-request headers.
type HeaderProvider func() map[string]string

// retryBackoffBase is doubled per attempt, capped at 32x.
const retryBackoffBase = 200 * time.Millisecond

// Client fetches game histories from the chess.com published-data API.
type Client struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider
	cache   *gamecache.Cache

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

// WithCache stores monthly archive bodies in Redis between runs.
func WithCache(cache *gamecache.Cache) Option {
	return func(c *Client) { c.cache = cache }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 15 * time.Second, WriteTimeout: 15 * time.Second, MaxConnsPerHost: 8},
		defaultTimeout: 15 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListArchives returns the monthly archive URLs recorded for a player.
func (c *Client) ListArchives(ctx context.Context, username string) ([]string, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return nil, fmt.Errorf("username required")
	}
	var resp chesscomdto.ArchivesResponse
	url := fmt.Sprintf("%s/pub/player/%s/games/archives", c.baseURL, username)
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, err
	}
	return resp.Archives, nil
}

// MonthlyGames fetches one monthly archive, consulting the cache first.
// Archive URLs are absolute, as returned by ListArchives.
func (c *Client) MonthlyGames(ctx context.Context, archiveURL string) ([]chesscomdto.Game, error) {
	if c.cache != nil {
		if raw, ok, err := c.cache.Get(ctx, archiveURL); err != nil {
			obslog.L().Warn("archive_cache_get_failed", zap.String("archive", archiveURL), zap.Error(err))
		} else if ok {
			var resp chesscomdto.MonthlyGamesResponse
			if err := json.Unmarshal(raw, &resp); err == nil {
				return resp.Games, nil
			}
			obslog.L().Warn("archive_cache_corrupt", zap.String("archive", archiveURL))
		}
	}

	raw, err := c.getRaw(ctx, archiveURL)
	if err != nil {
		return nil, err
	}
	var resp chesscomdto.MonthlyGamesResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode archive %q: %w", archiveURL, err)
	}
	if c.cache != nil {
		if err := c.cache.Set(ctx, archiveURL, raw); err != nil {
			obslog.L().Warn("archive_cache_set_failed", zap.String("archive", archiveURL), zap.Error(err))
		}
	}
	return resp.Games, nil
}

// AllGames downloads every archived game for a player, oldest month first.
func (c *Client) AllGames(ctx context.Context, username string) ([]chesscomdto.Game, error) {
	archives, err := c.ListArchives(ctx, username)
	if err != nil {
		return nil, err
	}
	var out []chesscomdto.Game
	for _, archive := range archives {
		games, err := c.MonthlyGames(ctx, archive)
		if err != nil {
			return nil, err
		}
		out = append(out, games...)
	}
	obslog.L().Info("games_downloaded",
		zap.String("username", strings.ToLower(strings.TrimSpace(username))),
		zap.Int("archives", len(archives)),
		zap.Int("games", len(out)),
	)
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	raw, err := c.getRaw(ctx, url)
	if err != nil {
		return err
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) getRaw(ctx context.Context, url string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(url)
	req.Header.Set("Accept", "application/json")
	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}

	attempts := c.retryMax
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		deadline := c.computeDeadline(ctx)
		err := c.http.DoDeadline(req, resp, deadline)
		if err != nil {
			if attempt == attempts {
				return nil, fmt.Errorf("request failed: %w", err)
			}
			lastErr = err
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return nil, lastErr
			}
			continue
		}

		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			body := string(resp.Body())
			err := fmt.Errorf("chess.com api error: status=%d url=%s body=%s", status, url, truncate(body, 512))
			if attempt == attempts || !shouldRetryStatus(status) {
				return nil, err
			}
			lastErr = err
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return nil, lastErr
			}
			continue
		}

		return append([]byte(nil), resp.Body()...), nil
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return nil, lastErr
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	deadline := time.Now().Add(c.defaultTimeout)
	if ctxDL, ok := ctx.Deadline(); ok && ctxDL.Before(deadline) {
		return ctxDL
	}
	return deadline
}

func (c *Client) sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	shift := attempt - 1
	if shift < 0 {
		shift = 0
	}
	if shift > 5 {
		shift = 5
	}
	return retryBackoffBase << uint(shift)
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) > n {
		s = s[:n]
	}
	return s
}
