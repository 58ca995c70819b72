// package gateway owns the remote session and serializes every remote call
// through a single FIFO admission queue with retry and pacing policy.
//
// Transient failures (HTTP 429 and 5xx) are absorbed here and never surfaced;
// any other non-success response forces a logout and propagates.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/librec/internal/models"
	"github.com/desertthunder/librec/internal/shared"
	"golang.org/x/time/rate"
)

// Config tunes the gateway's retry and pacing behavior.
type Config struct {
	RetryBase       time.Duration // initial 429 backoff, doubled on each retry
	ServerErrorWait time.Duration // fixed delay after a 5xx response
	MaxRetries      int           // 0 retries indefinitely
	RequestsPerSec  float64       // limiter rate, 0 disables pacing
}

// DefaultConfig mirrors the remote service's observed tolerances.
func DefaultConfig() Config {
	return Config{
		RetryBase:       2 * time.Second,
		ServerErrorWait: 5 * time.Second,
		RequestsPerSec:  10,
	}
}

// Response is a completed remote reply.
type Response struct {
	Status int
	Body   []byte
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

type waiter struct {
	ready chan struct{}
}

// Gateway is the single chokepoint for remote calls. It is the exclusive
// owner of the session: only Login and Logout (and the forced logout on a
// rejected response) ever assign it.
type Gateway struct {
	client  *http.Client
	logger  *log.Logger
	cfg     Config
	limiter *rate.Limiter

	// sleep is swapped out by tests to observe retry waits.
	sleep func(ctx context.Context, d time.Duration) error

	mu          sync.Mutex
	session     *models.Session
	running     bool
	waiters     []*waiter
	logoutTimer *time.Timer
	onLogout    []func()
}

// New creates a Gateway. A nil client falls back to http.DefaultClient.
func New(cfg Config, client *http.Client, logger *log.Logger) *Gateway {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	logger = shared.WithLogger(logger, "scope", "gateway")
	limit := rate.Inf
	if cfg.RequestsPerSec > 0 {
		limit = rate.Limit(cfg.RequestsPerSec)
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 2 * time.Second
	}
	if cfg.ServerErrorWait <= 0 {
		cfg.ServerErrorWait = 5 * time.Second
	}

	return &Gateway{
		client:  client,
		logger:  logger,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		sleep:   sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Login installs a session and schedules a one-shot automatic logout at
// expiry. Any previous session is replaced; there is at most one live
// session at a time.
func (g *Gateway) Login(token string, expiresIn time.Duration) {
	g.mu.Lock()
	if g.logoutTimer != nil {
		g.logoutTimer.Stop()
	}
	g.session = &models.Session{
		Token:     token,
		ExpiresAt: time.Now().Add(expiresIn),
	}
	g.logoutTimer = time.AfterFunc(expiresIn, g.Logout)
	g.mu.Unlock()

	g.logger.Info("session established", "expires_in", expiresIn)
}

// Logout destroys the session, cancels the automatic logout, and runs the
// registered logout hooks. In-flight calls are not aborted; queued callers
// fail with ErrUnauthorized as they are admitted.
func (g *Gateway) Logout() {
	g.mu.Lock()
	had := g.session != nil
	g.session = nil
	if g.logoutTimer != nil {
		g.logoutTimer.Stop()
		g.logoutTimer = nil
	}
	hooks := make([]func(), len(g.onLogout))
	copy(hooks, g.onLogout)
	g.mu.Unlock()

	if had {
		g.logger.Info("session destroyed")
		for _, hook := range hooks {
			hook()
		}
	}
}

// OnLogout registers a hook invoked whenever a live session is destroyed,
// whether by explicit logout, expiry, or a rejected response.
func (g *Gateway) OnLogout(hook func()) {
	g.mu.Lock()
	g.onLogout = append(g.onLogout, hook)
	g.mu.Unlock()
}

// Session returns a copy of the current session, if any.
func (g *Gateway) Session() (models.Session, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.session == nil {
		return models.Session{}, false
	}
	return *g.session, true
}

// admit blocks until this caller holds the single request slot. Returns the
// bearer token to use. Without a live session the caller fails immediately
// and the next queued caller is released so the queue drains.
func (g *Gateway) admit(ctx context.Context) (string, error) {
	g.mu.Lock()
	if g.running {
		w := &waiter{ready: make(chan struct{})}
		g.waiters = append(g.waiters, w)
		g.mu.Unlock()

		select {
		case <-w.ready:
			g.mu.Lock()
		case <-ctx.Done():
			g.mu.Lock()
			for i, queued := range g.waiters {
				if queued == w {
					g.waiters = append(g.waiters[:i], g.waiters[i+1:]...)
					g.mu.Unlock()
					return "", ctx.Err()
				}
			}
			// Already signalled: the slot is ours to give back.
			g.releaseLocked()
			g.mu.Unlock()
			return "", ctx.Err()
		}
	} else {
		g.running = true
	}

	if g.session == nil {
		g.releaseLocked()
		g.mu.Unlock()
		return "", shared.ErrUnauthorized
	}
	token := g.session.Token
	g.mu.Unlock()
	return token, nil
}

// releaseLocked hands the slot to the next queued caller in FIFO order, or
// clears it. Callers hold g.mu.
func (g *Gateway) releaseLocked() {
	if len(g.waiters) > 0 {
		next := g.waiters[0]
		g.waiters = g.waiters[1:]
		close(next.ready)
		return
	}
	g.running = false
}

func (g *Gateway) release() {
	g.mu.Lock()
	g.releaseLocked()
	g.mu.Unlock()
}

// Do performs one authenticated remote call, retrying transparently on rate
// limits and server errors. Exactly one call is in flight at a time;
// concurrent callers queue FIFO.
func (g *Gateway) Do(ctx context.Context, method, url string, body any) (*Response, error) {
	token, err := g.admit(ctx)
	if err != nil {
		return nil, err
	}
	defer g.release()

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	backoff := g.cfg.RetryBase
	retries := 0
	for {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := g.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			// Retry-After is not always present, so the wait just doubles.
			retries++
			if err := g.checkBudget(retries); err != nil {
				return nil, err
			}
			g.logger.Warn("rate limited", "wait", backoff, "url", url)
			if err := g.sleep(ctx, backoff); err != nil {
				return nil, err
			}
			backoff *= 2

		case resp.StatusCode >= 500 && resp.StatusCode < 600:
			retries++
			if err := g.checkBudget(retries); err != nil {
				return nil, err
			}
			g.logger.Warn("remote unavailable", "status", resp.StatusCode, "wait", g.cfg.ServerErrorWait)
			if err := g.sleep(ctx, g.cfg.ServerErrorWait); err != nil {
				return nil, err
			}

		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			g.logger.Error("remote rejected request", "status", resp.Status, "url", url)
			g.Logout()
			return nil, fmt.Errorf("%w: %s", shared.ErrRemoteRejected, resp.Status)

		default:
			return &Response{Status: resp.StatusCode, Body: respBody}, nil
		}
	}
}

func (g *Gateway) checkBudget(retries int) error {
	if g.cfg.MaxRetries > 0 && retries > g.cfg.MaxRetries {
		return fmt.Errorf("%w after %d attempts", shared.ErrRetriesExhausted, retries)
	}
	return nil
}
