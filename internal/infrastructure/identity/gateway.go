// Package identity adapts the external OTP identity provider. The provider
// is consumed as an opaque capability: start a phone verification (guarded by
// a bot-detection challenge token), confirm the submitted code, and hold the
// resulting session.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorantiwarrohan3-stack/prasadamConnect/internal/config"
	"github.com/gorantiwarrohan3-stack/prasadamConnect/internal/domain"
	"golang.org/x/time/rate"
)

// Confirmation is a pending phone verification: the handle returned by a
// verification start, consumed by confirming the code the user received.
type Confirmation interface {
	Confirm(ctx context.Context, code string) (*domain.Session, error)
}

// Gateway wraps the provider's phone-auth REST API and owns the current
// session. It is the only component that mutates the session; everything
// else observes it through Current and OnChange.
type Gateway struct {
	baseURL string
	apiKey  string
	hc      *http.Client
	starts  *startLimiter

	mu        sync.Mutex
	current   *domain.Session
	listeners []func(*domain.Session)
}

// New builds a Gateway from configuration.
func New(cfg *config.Config) *Gateway {
	perMinute := cfg.OTPStartsPerMinute
	if perMinute < 1 {
		perMinute = 5
	}
	burst := cfg.OTPStartBurst
	if burst < 1 {
		burst = 1
	}
	return &Gateway{
		baseURL: strings.TrimRight(cfg.IdentityBaseURL, "/"),
		apiKey:  cfg.IdentityAPIKey,
		hc:      &http.Client{Timeout: cfg.HTTPTimeout},
		starts:  newStartLimiter(rate.Limit(float64(perMinute)/60.0), burst),
	}
}

type sendCodeRequest struct {
	PhoneNumber    string `json:"phoneNumber"`
	RecaptchaToken string `json:"recaptchaToken"`
}

type sendCodeResponse struct {
	SessionInfo string `json:"sessionInfo"`
}

// StartPhoneVerification asks the provider to deliver a one-time code to
// phoneNumber. The challengeToken proves the caller passed bot detection.
// The returned Confirmation is the handle for the matching code submission.
func (g *Gateway) StartPhoneVerification(ctx context.Context, phoneNumber, challengeToken string) (Confirmation, error) {
	if !g.starts.allow(phoneNumber) {
		return nil, fmt.Errorf("too many code requests for this number, wait a minute: %w", domain.ErrProvider)
	}

	var out sendCodeResponse
	if err := g.post(ctx, "accounts:sendVerificationCode", sendCodeRequest{
		PhoneNumber:    phoneNumber,
		RecaptchaToken: challengeToken,
	}, &out); err != nil {
		return nil, err
	}
	if out.SessionInfo == "" {
		return nil, fmt.Errorf("provider returned no verification session: %w", domain.ErrProvider)
	}
	slog.Info("verification code requested", "phone", phoneNumber)
	return &confirmation{gateway: g, sessionInfo: out.SessionInfo, phoneNumber: phoneNumber}, nil
}

// Current returns the session established by the last successful
// confirmation, or nil when signed out.
func (g *Gateway) Current() *domain.Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

// OnChange registers a listener invoked with the new session (nil on
// sign-out) after every session change.
func (g *Gateway) OnChange(fn func(*domain.Session)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listeners = append(g.listeners, fn)
}

// SignOut discards the current session. The provider keeps no revocable
// server-side state for phone sessions, so sign-out is purely local.
func (g *Gateway) SignOut(ctx context.Context) error {
	g.setSession(nil)
	slog.Info("signed out")
	return nil
}

func (g *Gateway) setSession(s *domain.Session) {
	g.mu.Lock()
	g.current = s
	listeners := make([]func(*domain.Session), len(g.listeners))
	copy(listeners, g.listeners)
	g.mu.Unlock()
	for _, fn := range listeners {
		fn(s)
	}
}

type confirmation struct {
	gateway     *Gateway
	sessionInfo string
	phoneNumber string
}

type signInRequest struct {
	SessionInfo string `json:"sessionInfo"`
	Code        string `json:"code"`
}

type signInResponse struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	LocalID      string `json:"localId"`
	PhoneNumber  string `json:"phoneNumber"`
	IsNewUser    bool   `json:"isNewUser"`
}

// Confirm submits the user-typed code. On success the gateway holds the new
// session and notifies listeners. A wrong or expired code yields
// domain.ErrInvalidCode.
func (c *confirmation) Confirm(ctx context.Context, code string) (*domain.Session, error) {
	var out signInResponse
	if err := c.gateway.post(ctx, "accounts:signInWithPhoneNumber", signInRequest{
		SessionInfo: c.sessionInfo,
		Code:        code,
	}, &out); err != nil {
		return nil, err
	}

	uid := out.LocalID
	if uid == "" {
		uid = subjectFromIDToken(out.IDToken)
	}
	if uid == "" {
		return nil, fmt.Errorf("provider returned no user identifier: %w", domain.ErrProvider)
	}
	phoneNumber := out.PhoneNumber
	if phoneNumber == "" {
		phoneNumber = c.phoneNumber
	}

	sess := &domain.Session{
		UID:             uid,
		PhoneNumber:     phoneNumber,
		IDToken:         out.IDToken,
		RefreshToken:    out.RefreshToken,
		AuthenticatedAt: time.Now().UTC(),
	}
	c.gateway.setSession(sess)
	slog.Info("phone verified", "uid", uid, "phone", phoneNumber)
	return sess, nil
}

// subjectFromIDToken extracts the sub claim from the provider's ID token.
// The token arrived over TLS from the provider itself, so signature
// verification is skipped here, matching first-party SDK behavior.
func subjectFromIDToken(idToken string) string {
	if idToken == "" {
		return ""
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return ""
	}
	sub, _ := claims["sub"].(string)
	return sub
}

type providerError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (g *Gateway) post(ctx context.Context, action string, body, out interface{}) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	url := g.baseURL + "/" + action
	if g.apiKey != "" {
		url += "?key=" + g.apiKey
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.hc.Do(req)
	if err != nil {
		return fmt.Errorf("identity provider unreachable: %w (%v)", domain.ErrProvider, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("identity provider response read failed: %w (%v)", domain.ErrProvider, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return providerFailure(raw, resp.StatusCode)
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("identity provider response decode failed: %w (%v)", domain.ErrProvider, err)
		}
	}
	return nil
}

// providerFailure maps the provider's error codes onto the flow taxonomy.
// INVALID_CODE and SESSION_EXPIRED both mean the user must retype or re-request
// the code; everything else passes the provider's message through.
func providerFailure(raw []byte, status int) error {
	var pe providerError
	msg := ""
	if err := json.Unmarshal(raw, &pe); err == nil {
		msg = pe.Error.Message
	}
	switch {
	case strings.Contains(msg, "INVALID_CODE"), strings.Contains(msg, "SESSION_EXPIRED"):
		return fmt.Errorf("%s: %w", msg, domain.ErrInvalidCode)
	case msg != "":
		return fmt.Errorf("%s: %w", msg, domain.ErrProvider)
	default:
		return fmt.Errorf("provider HTTP %d: %w", status, domain.ErrProvider)
	}
}
