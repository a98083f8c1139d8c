// Package flow implements the registration/login reconciliation state
// machine. It sequences the identity gateway and the account directory,
// detects phone-number claim races, and drives the view-facing flow state.
//
// The identity session and the directory record commit independently, so a
// session is treated as necessary but never sufficient: the directory is
// re-checked at every step where time has passed, and login fails closed
// (sign out) rather than leaving an authenticated session with no matching
// record.
package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gorantiwarrohan3-stack/prasadamConnect/internal/domain"
	"github.com/gorantiwarrohan3-stack/prasadamConnect/internal/infrastructure/challenge"
	"github.com/gorantiwarrohan3-stack/prasadamConnect/internal/infrastructure/directory"
	"github.com/gorantiwarrohan3-stack/prasadamConnect/internal/infrastructure/identity"
	"github.com/gorantiwarrohan3-stack/prasadamConnect/internal/pkg/id"
	"github.com/gorantiwarrohan3-stack/prasadamConnect/internal/pkg/phone"
	"github.com/gorantiwarrohan3-stack/prasadamConnect/internal/pkg/validate"
)

// NoticeLevel classifies a transient user notification.
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
	NoticeInfo    NoticeLevel = "info"
)

// Notice is a transient, user-visible notification emitted by the flow.
type Notice struct {
	Level   NoticeLevel
	Message string
}

// Intent is a pending user decision, e.g. "switch to login?". At most one is
// live at a time; either answer clears it.
type Intent struct {
	Message string
	confirm func()
	dismiss func()
}

// PhoneSubmission carries everything the phone form collects. Draft is only
// consulted in register mode.
type PhoneSubmission struct {
	Digits    string
	CountryID string
	Draft     domain.RegistrationDraft
}

// Snapshot is an immutable view of the flow state for rendering.
type Snapshot struct {
	Step    domain.Step
	Mode    domain.Mode
	Phone   string // normalized E.164, once submitted
	Draft   domain.RegistrationDraft
	Intent  *Intent
	Session *domain.Session
}

type identityGateway interface {
	StartPhoneVerification(ctx context.Context, phoneNumber, challengeToken string) (identity.Confirmation, error)
	Current() *domain.Session
	OnChange(fn func(*domain.Session))
	SignOut(ctx context.Context) error
}

type accountDirectory interface {
	CheckUser(ctx context.Context, phoneNumber string) (bool, error)
	CreateUserWithLogin(ctx context.Context, req domain.CreateAccountRequest) (*domain.Account, error)
	RecordLogin(ctx context.Context, uid, phoneNumber string) error
}

type challengeSource interface {
	Acquire(ctx context.Context) (challenge.Challenger, error)
}

// Deps holds the coordinator's collaborators.
type Deps struct {
	Gateway    identityGateway
	Directory  accountDirectory
	Challenges challengeSource

	// Notify receives every transient notice. Optional.
	Notify func(Notice)
}

// Coordinator is the flow state machine. Its transition methods are driven
// by user-initiated events from a single view goroutine; the internal mutex
// protects snapshot reads and session-listener resets, not whole transitions
// — the view is expected to disable submit controls while a transition is in
// flight, matching the cooperative single-event-at-a-time model.
type Coordinator struct {
	gateway    identityGateway
	directory  accountDirectory
	challenges challengeSource
	notify     func(Notice)

	mu        sync.Mutex
	step      domain.Step
	mode      domain.Mode
	phone     string
	draft     domain.RegistrationDraft
	pending   identity.Confirmation
	intent    *Intent
	attemptID string
	suppress  bool // quiets the session listener during compensating sign-outs
}

// New builds a Coordinator in its initial state, Phone(Login), and registers
// a session listener that resets the flow when the session disappears.
func New(deps Deps) *Coordinator {
	c := &Coordinator{
		gateway:    deps.Gateway,
		directory:  deps.Directory,
		challenges: deps.Challenges,
		notify:     deps.Notify,
		step:       domain.StepPhone,
		mode:       domain.ModeLogin,
	}
	c.gateway.OnChange(func(s *domain.Session) {
		if s != nil {
			return
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.suppress {
			return
		}
		c.resetLocked()
	})
	return c
}

// Snapshot returns the current flow state for rendering.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Step:    c.step,
		Mode:    c.mode,
		Phone:   c.phone,
		Draft:   c.draft,
		Intent:  c.intent,
		Session: c.gateway.Current(),
	}
}

// String returns the intent's prompt text.
func (i *Intent) String() string { return i.Message }

// SwitchMode toggles between login and register. Only meaningful on the
// phone step; any pending intent is discarded.
func (c *Coordinator) SwitchMode(m domain.Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step != domain.StepPhone {
		return
	}
	c.mode = m
	c.intent = nil
}

// ConfirmIntent answers the pending confirmation prompt affirmatively.
func (c *Coordinator) ConfirmIntent() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.intent == nil {
		return
	}
	fn := c.intent.confirm
	c.intent = nil
	if fn != nil {
		fn()
	}
}

// DismissIntent answers the pending confirmation prompt negatively.
func (c *Coordinator) DismissIntent() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.intent == nil {
		return
	}
	fn := c.intent.dismiss
	c.intent = nil
	if fn != nil {
		fn()
	}
}

// SubmitPhone handles the phone-form submission: validate, normalize, check
// the directory, acquire a challenge token, and ask the provider to send a
// code. On success the flow advances to the code step.
func (c *Coordinator) SubmitPhone(ctx context.Context, sub PhoneSubmission) error {
	c.mu.Lock()
	if c.step != domain.StepPhone {
		c.mu.Unlock()
		return fmt.Errorf("submit phone outside phone step: %w", domain.ErrValidation)
	}
	mode := c.mode
	c.attemptID = id.New()
	attempt := c.attemptID
	c.mu.Unlock()

	log := slog.With("attempt_id", attempt, "mode", mode)

	if mode == domain.ModeRegister {
		if sub.Draft.Blank() {
			return c.fail(domain.ErrValidation, "All fields are required.")
		}
		if err := validate.Struct(sub.Draft); err != nil {
			return c.fail(domain.ErrValidation, "Please check your details: "+err.Error())
		}
	}

	normalized, err := phone.Normalize(sub.Digits, sub.CountryID)
	if err != nil {
		return c.fail(err, phoneErrorMessage(err))
	}
	// Post-condition guard: nothing leaves this step without a well-formed
	// E.164 number.
	if !phone.E164.MatchString(normalized) {
		return c.fail(domain.ErrInvalidPhoneFormat, "Enter phone in E.164 format, e.g. +12345678901")
	}

	c.mu.Lock()
	c.phone = normalized
	c.draft = sub.Draft
	c.mu.Unlock()

	exists, cerr := c.directory.CheckUser(ctx, normalized)
	switch {
	case cerr != nil:
		// The later atomic create is the authoritative race guard, so a
		// failed pre-check never blocks the flow.
		log.Warn("existence pre-check failed, continuing", "err", cerr)
	case mode == domain.ModeRegister && exists:
		c.raiseIntent("An account with this number already exists. Switch to login?",
			func() { c.step, c.mode = domain.StepPhone, domain.ModeLogin },
			nil)
		return nil
	case mode == domain.ModeLogin && !exists:
		c.raiseIntent("No account found for this number. Switch to register?",
			func() { c.step, c.mode = domain.StepPhone, domain.ModeRegister },
			nil)
		return nil
	}

	widget, err := c.challenges.Acquire(ctx)
	if err != nil || widget == nil {
		log.Warn("challenge unavailable", "err", err)
		return c.fail(domain.ErrChallengeUnavailable, "Verification initialization failed. Please refresh and try again.")
	}
	token, err := widget.Token(ctx)
	if err != nil {
		log.Warn("challenge token failed", "err", err)
		return c.fail(domain.ErrChallengeUnavailable, "Verification initialization failed. Please refresh and try again.")
	}

	conf, err := c.gateway.StartPhoneVerification(ctx, normalized, token)
	if err != nil {
		return c.fail(domain.ErrProvider, userMessage(err, "Failed to send the code."))
	}

	c.mu.Lock()
	c.pending = conf
	c.step = domain.StepOtp
	c.mu.Unlock()

	log.Info("code sent", "phone", normalized)
	c.emit(NoticeSuccess, "Code sent to "+normalized)
	return nil
}

// SubmitCode confirms the one-time code. In register mode a successful
// confirmation continues into registration finalization; in login mode the
// account must already exist or the flow flips to complete-registration.
func (c *Coordinator) SubmitCode(ctx context.Context, code string) error {
	c.mu.Lock()
	if c.step != domain.StepOtp {
		c.mu.Unlock()
		return fmt.Errorf("submit code outside otp step: %w", domain.ErrValidation)
	}
	pending := c.pending
	mode := c.mode
	c.mu.Unlock()

	if pending == nil {
		c.mu.Lock()
		c.step = domain.StepPhone
		c.mu.Unlock()
		return c.fail(domain.ErrStaleSession, "Please request a new code.")
	}

	sess, err := pending.Confirm(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCode) {
			return c.fail(domain.ErrInvalidCode, "Invalid or expired code. Try again.")
		}
		return c.fail(domain.ErrProvider, userMessage(err, "Code verification failed."))
	}

	if mode == domain.ModeRegister {
		return c.finalizeRegistration(ctx, sess)
	}
	return c.finalizeLogin(ctx, sess)
}

// SubmitCompleteRegistration finishes a registration that started as a login
// attempt: the session is already authenticated, so this re-checks existence
// and creates the record with the same race handling as the register flow.
func (c *Coordinator) SubmitCompleteRegistration(ctx context.Context, draft domain.RegistrationDraft) error {
	c.mu.Lock()
	if c.step != domain.StepCompleteRegistration {
		c.mu.Unlock()
		return fmt.Errorf("complete registration outside its step: %w", domain.ErrValidation)
	}
	c.mu.Unlock()

	if draft.Blank() {
		return c.fail(domain.ErrValidation, "All fields are required.")
	}
	if err := validate.Struct(draft); err != nil {
		return c.fail(domain.ErrValidation, "Please check your details: "+err.Error())
	}

	sess := c.gateway.Current()
	if sess == nil {
		c.mu.Lock()
		c.resetLocked()
		c.mu.Unlock()
		return c.fail(domain.ErrStaleSession, "Your verification expired. Please sign in again.")
	}

	c.mu.Lock()
	c.draft = draft
	c.mu.Unlock()
	return c.finalizeRegistration(ctx, sess)
}

// Back returns from the code step to the phone step without destroying the
// session; the pending confirmation handle is dropped so a stale code can
// never be confirmed later.
func (c *Coordinator) Back() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step != domain.StepOtp {
		return
	}
	c.step = domain.StepPhone
	c.pending = nil
}

// Cancel abandons complete-registration. The directory has no record yet,
// so the just-verified session is discarded and the flow returns to
// Phone(Login).
func (c *Coordinator) Cancel(ctx context.Context) {
	c.mu.Lock()
	if c.step != domain.StepCompleteRegistration {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.signOutQuiet(ctx)
	c.mu.Lock()
	c.resetLocked()
	c.mu.Unlock()
}

// SignOut discards the session and resets the flow to Phone(Login).
func (c *Coordinator) SignOut(ctx context.Context) {
	c.signOutQuiet(ctx)
	c.mu.Lock()
	c.resetLocked()
	c.mu.Unlock()
	c.emit(NoticeInfo, "Signed out.")
}

// finalizeRegistration runs the post-confirmation register branch: re-check
// existence (time passed during code entry), then the atomic create. A claim
// race at either point signs out the loser and offers the login switch.
func (c *Coordinator) finalizeRegistration(ctx context.Context, sess *domain.Session) error {
	c.mu.Lock()
	phoneNumber := c.phone
	draft := c.draft
	attempt := c.attemptID
	c.mu.Unlock()

	log := slog.With("attempt_id", attempt, "uid", sess.UID)

	exists, err := c.directory.CheckUser(ctx, phoneNumber)
	if err != nil {
		log.Warn("existence re-check failed, relying on create guard", "err", err)
	} else if exists {
		log.Info("registration race lost at re-check")
		c.signOutQuiet(ctx)
		c.raiseRaceIntent()
		return fmt.Errorf("phone registered during code entry: %w", domain.ErrRaceDetected)
	}

	_, err = c.directory.CreateUserWithLogin(ctx, domain.CreateAccountRequest{
		UID:         sess.UID,
		Name:        draft.Name,
		Email:       draft.Email,
		PhoneNumber: phoneNumber,
		Address:     draft.Address,
	})
	if err != nil {
		if directory.IsConflict(err) {
			log.Info("registration race lost at create")
			c.signOutQuiet(ctx)
			c.raiseRaceIntent()
			return fmt.Errorf("create rejected as duplicate: %w", domain.ErrRaceDetected)
		}
		// Stay authenticated and move to the completion step: the pending
		// confirmation is consumed, so a retry must go through
		// SubmitCompleteRegistration, never a second Confirm.
		c.mu.Lock()
		c.step = domain.StepCompleteRegistration
		c.mode = domain.ModeRegister
		c.pending = nil
		c.mu.Unlock()
		return c.fail(domain.ErrDirectory, "Could not complete registration: "+userMessage(err, "backend error"))
	}

	c.mu.Lock()
	c.resetLocked()
	c.mu.Unlock()
	log.Info("registration complete")
	c.emit(NoticeSuccess, "Registration complete. Welcome!")
	return nil
}

// finalizeLogin reconciles a fresh session against the directory. Login
// never succeeds without a confirmed directory match: an unverifiable
// directory fails the attempt closed.
func (c *Coordinator) finalizeLogin(ctx context.Context, sess *domain.Session) error {
	c.mu.Lock()
	phoneNumber := c.phone
	attempt := c.attemptID
	c.mu.Unlock()

	log := slog.With("attempt_id", attempt, "uid", sess.UID)

	exists, err := c.directory.CheckUser(ctx, phoneNumber)
	if err != nil {
		log.Warn("login reconciliation failed, signing out", "err", err)
		c.signOutQuiet(ctx)
		c.mu.Lock()
		c.resetLocked()
		c.mu.Unlock()
		return c.fail(domain.ErrDirectory, "Cannot verify your account right now. Please try again later.")
	}

	if !exists {
		// Verified phone, no account: flip into registration with the phone
		// preserved and the code cleared. The session stays authenticated.
		c.mu.Lock()
		c.step = domain.StepCompleteRegistration
		c.mode = domain.ModeRegister
		c.pending = nil
		c.mu.Unlock()
		log.Info("no account for verified phone, completing registration")
		c.emit(NoticeInfo, "This number has no account yet. Complete your registration.")
		return nil
	}

	if err := c.directory.RecordLogin(ctx, sess.UID, phoneNumber); err != nil {
		log.Warn("login history append failed", "err", err)
	}
	c.mu.Lock()
	c.resetLocked()
	c.mu.Unlock()
	log.Info("login complete")
	c.emit(NoticeSuccess, "Welcome back!")
	return nil
}

// raiseRaceIntent installs the "registered by someone else" prompt. Confirm
// moves to Phone(Login); dismiss stays on Phone(Register) with the typed
// inputs preserved.
func (c *Coordinator) raiseRaceIntent() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = nil
	c.intent = &Intent{
		Message: "This number was just registered by someone else. Switch to login?",
		confirm: func() { c.step, c.mode = domain.StepPhone, domain.ModeLogin },
		dismiss: func() { c.step, c.mode = domain.StepPhone, domain.ModeRegister },
	}
}

// raiseIntent installs a confirmation prompt. The callbacks run with the
// state lock held.
func (c *Coordinator) raiseIntent(message string, confirm, dismiss func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.intent = &Intent{Message: message, confirm: confirm, dismiss: dismiss}
}

// signOutQuiet discards the session without triggering the listener reset,
// so the caller controls the post-sign-out flow state (e.g. preserving
// register inputs after a lost race).
func (c *Coordinator) signOutQuiet(ctx context.Context) {
	c.mu.Lock()
	c.suppress = true
	c.mu.Unlock()
	if err := c.gateway.SignOut(ctx); err != nil {
		slog.Warn("sign-out failed", "err", err)
	}
	c.mu.Lock()
	c.suppress = false
	c.mu.Unlock()
}

// resetLocked returns the flow to its initial state. Caller holds the lock.
func (c *Coordinator) resetLocked() {
	c.step = domain.StepPhone
	c.mode = domain.ModeLogin
	c.phone = ""
	c.draft = domain.RegistrationDraft{}
	c.pending = nil
	c.intent = nil
}

func (c *Coordinator) fail(sentinel error, msg string) error {
	c.emit(NoticeError, msg)
	return fmt.Errorf("%s: %w", msg, sentinel)
}

func (c *Coordinator) emit(level NoticeLevel, msg string) {
	if c.notify != nil {
		c.notify(Notice{Level: level, Message: msg})
	}
}

// userMessage extracts the backend-reported text from a wrapped adapter
// error, falling back to the given default.
func userMessage(err error, fallback string) string {
	var apiErr *directory.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return fallback
}

func phoneErrorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidCountry):
		return "Select a valid country."
	case errors.Is(err, domain.ErrInvalidPhoneLength):
		return "Enter a phone number between 4 and 15 digits."
	default:
		return "Enter phone in E.164 format, e.g. +12345678901"
	}
}
