package challenge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorantiwarrohan3-stack/prasadamConnect/internal/domain"
)

// Challenger yields bot-detection tokens for verification starts.
type Challenger interface {
	// Token obtains one challenge token from the bot-detection service.
	Token(ctx context.Context) (string, error)
	// Renderable reports whether the widget is still usable; a widget whose
	// mount disappeared must be rebuilt rather than reused.
	Renderable() bool
	// Close tears the widget down. A closed widget yields no more tokens.
	Close() error
}

// widget is one invisible bot-detection widget bound to a mount. It carries
// a uuid instance id so the remote service can correlate token requests from
// the same widget session.
type widget struct {
	id       string
	siteKey  string
	tokenURL string
	mount    Mount
	hc       *http.Client

	mu     sync.Mutex
	closed bool
}

func newWidget(siteKey, tokenURL string, mount Mount, timeout time.Duration) (*widget, error) {
	if mount == nil || !mount.Ready() {
		return nil, fmt.Errorf("widget mount not ready: %w", domain.ErrChallengeUnavailable)
	}
	return &widget{
		id:       uuid.NewString(),
		siteKey:  siteKey,
		tokenURL: tokenURL,
		mount:    mount,
		hc:       &http.Client{Timeout: timeout},
	}, nil
}

type tokenRequest struct {
	SiteKey  string `json:"siteKey"`
	WidgetID string `json:"widgetId"`
	Action   string `json:"action"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (w *widget) Token(ctx context.Context) (string, error) {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return "", fmt.Errorf("widget is closed: %w", domain.ErrChallengeUnavailable)
	}

	buf, err := json.Marshal(tokenRequest{SiteKey: w.siteKey, WidgetID: w.id, Action: "phone_verification"})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.tokenURL, bytes.NewReader(buf))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("challenge service unreachable: %w (%v)", domain.ErrChallengeUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil || resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("challenge token request failed (status %d): %w", resp.StatusCode, domain.ErrChallengeUnavailable)
	}

	var out tokenResponse
	if err := json.Unmarshal(raw, &out); err != nil || out.Token == "" {
		return "", fmt.Errorf("challenge service returned no token: %w", domain.ErrChallengeUnavailable)
	}
	return out.Token, nil
}

func (w *widget) Renderable() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.closed && w.mount != nil && w.mount.Ready()
}

func (w *widget) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}
