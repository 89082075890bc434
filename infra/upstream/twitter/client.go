// Package twitter implements the upstream source on top of the Twitter
// streaming and search HTTP endpoints.
package twitter

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"github.com/webitel/feed-relay-service/internal/domain/model"
)

// ErrCircuitOpen is returned while the breaker rejects upstream calls.
var ErrCircuitOpen = gobreaker.ErrOpenState

const maxLineSize = 1 << 20

type Config struct {
	BaseURL       string
	BearerToken   string
	StreamPath    string
	SearchPath    string
	SearchTimeout time.Duration
}

// Client opens filtered streams and runs recent-item searches.
type Client struct {
	cfg     Config
	stream  *http.Client
	search  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	logger = logger.With("component", "twitter")
	return &Client{
		cfg: cfg,
		// The stream runs until closed, so only the search client has a timeout.
		stream: &http.Client{},
		search: &http.Client{Timeout: cfg.SearchTimeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "twitter",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("CIRCUIT_STATE_CHANGED", "name", name, "from", from.String(), "to", to.String())
			},
		}),
		logger: logger,
	}
}

// StatusError is a non-200 upstream response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.Code, e.Body)
}

// Stream opens the filtered stream. It returns once the upstream has answered
// 200; items then arrive on the returned stream until it is closed.
func (c *Client) Stream(ctx context.Context, filter string) (model.TweetStream, error) {
	streamCtx, cancel := context.WithCancel(context.Background())

	res, err := c.breaker.Execute(func() (any, error) {
		form := url.Values{"track": {filter}}
		req, err := http.NewRequestWithContext(streamCtx, http.MethodPost, c.cfg.BaseURL+c.cfg.StreamPath, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		c.authorize(req)

		// Abort the dial when the caller gives up before the stream is open.
		stop := context.AfterFunc(ctx, cancel)
		defer stop()

		resp, err := c.stream.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			defer resp.Body.Close()
			return nil, readStatusError(resp)
		}
		return resp, nil
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("twitter stream: %w", err)
	}

	resp := res.(*http.Response)
	s := &stream{
		items:  make(chan model.Tweet),
		body:   resp.Body,
		cancel: cancel,
		done:   make(chan struct{}),
		logger: c.logger,
	}
	go s.read(streamCtx)
	return s, nil
}

type searchResponse struct {
	Statuses []json.RawMessage `json:"statuses"`
}

// Search returns up to count recent items matching filter, newest first.
func (c *Client) Search(ctx context.Context, filter string, count int) ([]model.Tweet, error) {
	res, err := c.breaker.Execute(func() (any, error) {
		q := url.Values{
			"q":           {filter},
			"result_type": {"recent"},
			"count":       {strconv.Itoa(count)},
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+c.cfg.SearchPath+"?"+q.Encode(), nil)
		if err != nil {
			return nil, err
		}
		c.authorize(req)

		resp, err := c.search.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, readStatusError(resp)
		}

		var body searchResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return nil, fmt.Errorf("decode search response: %w", err)
		}
		return body.Statuses, nil
	})
	if err != nil {
		return nil, fmt.Errorf("twitter search: %w", err)
	}

	raw := res.([]json.RawMessage)
	tweets := make([]model.Tweet, 0, len(raw))
	for _, item := range raw {
		t, ok, err := model.ParseStatus(item)
		if err != nil || !ok {
			c.logger.Debug("SEARCH_ITEM_SKIPPED", "err", err)
			continue
		}
		tweets = append(tweets, t)
	}
	return tweets, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.cfg.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.BearerToken)
	}
}

func readStatusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

// stream decodes newline-delimited statuses from an open response body.
type stream struct {
	items  chan model.Tweet
	body   io.ReadCloser
	cancel context.CancelFunc
	done   chan struct{}
	logger *slog.Logger

	mu  sync.Mutex
	err error
}

func (s *stream) Recv() <-chan model.Tweet { return s.items }

func (s *stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close stops the stream and waits for the reader to finish.
func (s *stream) Close() error {
	s.cancel()
	<-s.done
	return nil
}

func (s *stream) read(ctx context.Context) {
	defer close(s.done)
	defer close(s.items)
	defer s.body.Close()

	scanner := bufio.NewScanner(s.body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue // keep-alive
		}

		t, ok, err := model.ParseStatus(line)
		if err != nil {
			s.logger.Warn("STREAM_ITEM_MALFORMED", "err", err)
			continue
		}
		if !ok {
			continue // control message
		}

		select {
		case s.items <- t:
		case <-ctx.Done():
			return
		}
	}

	if ctx.Err() != nil {
		return // closed by us
	}
	if err := scanner.Err(); err != nil {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
	}
}
