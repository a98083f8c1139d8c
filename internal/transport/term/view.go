// Package term is the terminal front-end: it renders the flow state, collects
// user intents, and dispatches them to the coordinator. It is a pure consumer
// of coordinator snapshots.
package term

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/gorantiwarrohan3-stack/prasadamConnect/internal/application/flow"
	"github.com/gorantiwarrohan3-stack/prasadamConnect/internal/application/profile"
	"github.com/gorantiwarrohan3-stack/prasadamConnect/internal/domain"
	"github.com/gorantiwarrohan3-stack/prasadamConnect/internal/pkg/phone"
)

// Mount is the terminal's challenge surface. The terminal has no DOM; once
// the view is running the surface is always present.
type Mount struct{}

func (Mount) ID() string  { return "term-challenge-mount" }
func (Mount) Ready() bool { return true }

// View drives the interactive session.
type View struct {
	coord          *flow.Coordinator
	profiles       profile.Service
	in             *bufio.Scanner
	out            io.Writer
	defaultCountry string
}

// New builds a View reading intents from in and rendering to out.
func New(coord *flow.Coordinator, profiles profile.Service, in io.Reader, out io.Writer, defaultCountry string) *View {
	return &View{
		coord:          coord,
		profiles:       profiles,
		in:             bufio.NewScanner(in),
		out:            out,
		defaultCountry: defaultCountry,
	}
}

// Notify prints a transient notice; wire it as the coordinator's Notify.
func (v *View) Notify(n flow.Notice) {
	switch n.Level {
	case flow.NoticeSuccess:
		fmt.Fprintf(v.out, "  ✔ %s\n", n.Message)
	case flow.NoticeError:
		fmt.Fprintf(v.out, "  ✘ %s\n", n.Message)
	default:
		fmt.Fprintf(v.out, "  ℹ %s\n", n.Message)
	}
}

// Run loops until the input closes or ctx is cancelled.
func (v *View) Run(ctx context.Context) error {
	fmt.Fprintln(v.out, "Prasadam Connect — sign in with your phone number")
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		snap := v.coord.Snapshot()

		if snap.Intent != nil {
			v.promptIntent(snap.Intent)
			continue
		}
		if snap.Session != nil && snap.Step == domain.StepPhone {
			if done := v.authenticatedMenu(ctx); done {
				return nil
			}
			continue
		}
		if done := v.render(ctx, snap); done {
			return nil
		}
	}
}

// render dispatches one screen per (step, mode) pair. Every combination is
// spelled out so a new step or mode fails loudly here instead of rendering
// nothing.
func (v *View) render(ctx context.Context, snap flow.Snapshot) bool {
	switch snap.Step {
	case domain.StepPhone:
		switch snap.Mode {
		case domain.ModeLogin:
			return v.phoneForm(ctx, domain.ModeLogin)
		case domain.ModeRegister:
			return v.phoneForm(ctx, domain.ModeRegister)
		}
	case domain.StepOtp:
		switch snap.Mode {
		case domain.ModeLogin, domain.ModeRegister:
			return v.otpForm(ctx, snap)
		}
	case domain.StepCompleteRegistration:
		return v.completeRegistrationForm(ctx, snap)
	}
	fmt.Fprintf(v.out, "unrenderable state %s/%s\n", snap.Step, snap.Mode)
	return true
}

func (v *View) phoneForm(ctx context.Context, mode domain.Mode) bool {
	if mode == domain.ModeLogin {
		fmt.Fprintln(v.out, "\n[Login] Enter phone, or: register | quit")
	} else {
		fmt.Fprintln(v.out, "\n[Register] Enter phone, or: login | quit")
	}

	line, ok := v.read("phone> ")
	if !ok {
		return true
	}
	switch strings.ToLower(line) {
	case "register":
		v.coord.SwitchMode(domain.ModeRegister)
		return false
	case "login":
		v.coord.SwitchMode(domain.ModeLogin)
		return false
	case "quit":
		return true
	case "":
		return false
	}

	country, ok := v.read(fmt.Sprintf("country [%s]> ", v.defaultCountry))
	if !ok {
		return true
	}
	if country == "" {
		country = v.defaultCountry
	}

	sub := flow.PhoneSubmission{Digits: line, CountryID: strings.ToUpper(country)}
	if mode == domain.ModeRegister {
		draft, ok := v.readDraft(domain.RegistrationDraft{})
		if !ok {
			return true
		}
		sub.Draft = draft
	}
	_ = v.coord.SubmitPhone(ctx, sub)
	return false
}

func (v *View) otpForm(ctx context.Context, snap flow.Snapshot) bool {
	fmt.Fprintf(v.out, "\n[%s] Code sent to %s. Enter code, or: back | quit\n", snap.Mode, snap.Phone)
	line, ok := v.read("code> ")
	if !ok {
		return true
	}
	switch strings.ToLower(line) {
	case "back":
		v.coord.Back()
		return false
	case "quit":
		return true
	case "":
		return false
	}
	_ = v.coord.SubmitCode(ctx, line)
	return false
}

func (v *View) completeRegistrationForm(ctx context.Context, snap flow.Snapshot) bool {
	fmt.Fprintf(v.out, "\n[Complete registration] for %s (cancel to abandon)\n", snap.Phone)
	first, ok := v.read("name (or: cancel)> ")
	if !ok {
		return true
	}
	if strings.EqualFold(first, "cancel") {
		v.coord.Cancel(ctx)
		return false
	}
	draft := domain.RegistrationDraft{Name: first}
	rest, ok := v.readDraft(draft)
	if !ok {
		return true
	}
	_ = v.coord.SubmitCompleteRegistration(ctx, rest)
	return false
}

func (v *View) promptIntent(intent *flow.Intent) {
	fmt.Fprintf(v.out, "\n%s [y/N]\n", intent.Message)
	line, ok := v.read("> ")
	if !ok || !strings.EqualFold(line, "y") {
		v.coord.DismissIntent()
		return
	}
	v.coord.ConfirmIntent()
}

// authenticatedMenu serves the signed-in surface. Returns true to exit.
func (v *View) authenticatedMenu(ctx context.Context) bool {
	fmt.Fprintln(v.out, "\nSigned in. Commands: profile | history | update | unregister | signout | quit")
	line, ok := v.read("menu> ")
	if !ok {
		return true
	}
	switch strings.ToLower(line) {
	case "profile":
		acct, err := v.profiles.Get(ctx)
		if err != nil {
			v.Notify(flow.Notice{Level: flow.NoticeError, Message: err.Error()})
			return false
		}
		fmt.Fprintf(v.out, "  %s <%s>\n  %s\n  %s\n", acct.Name, acct.Email, acct.PhoneNumber, acct.Address)
	case "history":
		n := 10
		if raw, ok := v.read("limit [10]> "); ok && raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil {
				n = parsed
			}
		}
		recs, err := v.profiles.History(ctx, n)
		if err != nil {
			v.Notify(flow.Notice{Level: flow.NoticeError, Message: err.Error()})
			return false
		}
		for _, rec := range recs {
			fmt.Fprintf(v.out, "  %s  %s\n", rec.Timestamp.Format("2006-01-02 15:04:05"), rec.PhoneNumber)
		}
	case "update":
		req := domain.UpdateAccountRequest{}
		if name, ok := v.read("new name (blank keeps)> "); ok && name != "" {
			req.Name = &name
		}
		if email, ok := v.read("new email (blank keeps)> "); ok && email != "" {
			req.Email = &email
		}
		if addr, ok := v.read("new address (blank keeps)> "); ok && addr != "" {
			req.Address = &addr
		}
		if _, err := v.profiles.Update(ctx, req); err != nil {
			v.Notify(flow.Notice{Level: flow.NoticeError, Message: err.Error()})
			return false
		}
		v.Notify(flow.Notice{Level: flow.NoticeSuccess, Message: "Profile updated."})
	case "unregister":
		if confirm, ok := v.read("this deletes your account, type yes> "); !ok || confirm != "yes" {
			return false
		}
		if err := v.profiles.Unregister(ctx); err != nil {
			v.Notify(flow.Notice{Level: flow.NoticeError, Message: err.Error()})
			return false
		}
		v.Notify(flow.Notice{Level: flow.NoticeInfo, Message: "Account removed."})
	case "signout":
		v.coord.SignOut(ctx)
	case "quit":
		return true
	}
	return false
}

func (v *View) readDraft(base domain.RegistrationDraft) (domain.RegistrationDraft, bool) {
	if base.Name == "" {
		name, ok := v.read("name> ")
		if !ok {
			return base, false
		}
		base.Name = name
	}
	email, ok := v.read("email> ")
	if !ok {
		return base, false
	}
	base.Email = email
	address, ok := v.read("address> ")
	if !ok {
		return base, false
	}
	base.Address = address
	return base, true
}

func (v *View) read(prompt string) (string, bool) {
	fmt.Fprint(v.out, prompt)
	if !v.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(v.in.Text()), true
}

// CountryList renders the supported country table for help output.
func CountryList() string {
	table := phone.Countries()
	ids := make([]string, 0, len(table))
	for id := range table {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var b strings.Builder
	for _, id := range ids {
		c := table[id]
		fmt.Fprintf(&b, "  %s  +%-4s %s\n", c.ID, c.DialCode, c.Name)
	}
	return b.String()
}
