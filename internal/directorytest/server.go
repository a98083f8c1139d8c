// Package directorytest is an in-memory stand-in for the account-directory
// backend, faithful to its REST contract: existence check, atomic
// create-with-login-record, history append/list, profile read/update, and
// unregister. It backs the client and flow tests and the local stub command;
// it is test tooling, not a production backend.
package directorytest

import (
	"encoding/json"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorantiwarrohan3-stack/prasadamConnect/internal/domain"
	"github.com/gorantiwarrohan3-stack/prasadamConnect/internal/pkg/id"
)

var (
	reE164  = regexp.MustCompile(`^\+\d{10,15}$`)
	reEmail = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 1000
)

// Server holds the in-memory account store behind a chi router.
type Server struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account // keyed by uid
	history  []domain.LoginRecord

	router http.Handler
}

// New builds an empty Server.
func New() *Server {
	s := &Server{accounts: make(map[string]*domain.Account)}

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	// The production front-end is served cross-origin from the API.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Post("/api/check-user", s.checkUser)
	r.Post("/api/create-user-with-login", s.createUserWithLogin)
	r.Post("/api/login-history", s.recordLogin)
	r.Get("/api/login-history/{uid}", s.loginHistory)
	r.Get("/api/user/{uid}", s.getUser)
	r.Put("/api/user/{uid}", s.updateUser)
	r.Post("/api/unregister", s.unregister)

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Seed inserts an account directly, bypassing validation. Test setup only.
func (s *Server) Seed(a domain.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := a
	s.accounts[a.UID] = &cp
}

// HistoryLen reports the number of stored login records. Test assertions
// only.
func (s *Server) HistoryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

type messageEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageEnvelope{Success: false, Error: msg})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "prasadam-connect-directory-stub",
	})
}

func (s *Server) checkUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PhoneNumber string `json:"phoneNumber"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PhoneNumber == "" {
		writeError(w, http.StatusBadRequest, "Phone number is required")
		return
	}
	if !reE164.MatchString(req.PhoneNumber) {
		writeError(w, http.StatusBadRequest, "Invalid phone number format")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"exists":  s.findByPhoneLocked(req.PhoneNumber) != nil,
	})
}

func (s *Server) createUserWithLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	req.Address = strings.TrimSpace(req.Address)

	for field, v := range map[string]string{
		"uid": req.UID, "name": req.Name, "email": req.Email,
		"phoneNumber": req.PhoneNumber, "address": req.Address,
	} {
		if v == "" {
			writeError(w, http.StatusBadRequest, "Missing required field: "+field)
			return
		}
	}
	if !reEmail.MatchString(req.Email) {
		writeError(w, http.StatusBadRequest, "Invalid email format")
		return
	}
	if !reE164.MatchString(req.PhoneNumber) {
		writeError(w, http.StatusBadRequest, "Invalid phone number format. Must be in E.164 format (e.g., +1234567890)")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[req.UID]; ok {
		writeError(w, http.StatusConflict, "User already registered")
		return
	}
	if s.findByPhoneLocked(req.PhoneNumber) != nil {
		writeError(w, http.StatusConflict, "Phone number already registered")
		return
	}
	for _, a := range s.accounts {
		if a.Email == req.Email {
			writeError(w, http.StatusConflict, "Email already registered")
			return
		}
	}

	now := time.Now().UTC()
	acct := &domain.Account{
		UID:         req.UID,
		Name:        req.Name,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Address:     req.Address,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.accounts[req.UID] = acct
	s.history = append(s.history, domain.LoginRecord{
		ID:          id.New(),
		UID:         req.UID,
		PhoneNumber: req.PhoneNumber,
		Timestamp:   now,
		UserAgent:   r.UserAgent(),
		IPAddress:   r.RemoteAddr,
	})

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "User registered successfully",
		"user":    acct,
	})
}

func (s *Server) recordLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UID         string `json:"uid"`
		PhoneNumber string `json:"phoneNumber"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UID == "" || req.PhoneNumber == "" {
		writeError(w, http.StatusBadRequest, "UID and phone number are required")
		return
	}
	if !reE164.MatchString(req.PhoneNumber) {
		writeError(w, http.StatusBadRequest, "Invalid phone number format")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, domain.LoginRecord{
		ID:          id.New(),
		UID:         req.UID,
		PhoneNumber: req.PhoneNumber,
		Timestamp:   time.Now().UTC(),
		UserAgent:   r.UserAgent(),
		IPAddress:   r.RemoteAddr,
	})
	writeJSON(w, http.StatusCreated, messageEnvelope{Success: true, Message: "Login recorded successfully"})
}

func (s *Server) loginHistory(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.LoginRecord
	for _, rec := range s.history {
		if rec.UID == uid {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if len(out) > limit {
		out = out[:limit]
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"history": out,
		"count":   len(out),
	})
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")

	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[uid]
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "user": acct})
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	var req domain.UpdateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[uid]
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		acct.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if !reEmail.MatchString(email) {
			writeError(w, http.StatusBadRequest, "Invalid email format")
			return
		}
		acct.Email = email
	}
	if req.Address != nil && strings.TrimSpace(*req.Address) != "" {
		acct.Address = strings.TrimSpace(*req.Address)
	}
	acct.UpdatedAt = time.Now().UTC()
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "user": acct})
}

func (s *Server) unregister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UID string `json:"uid"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UID == "" {
		writeError(w, http.StatusBadRequest, "UID is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[req.UID]; !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	delete(s.accounts, req.UID)
	kept := s.history[:0]
	for _, rec := range s.history {
		if rec.UID != req.UID {
			kept = append(kept, rec)
		}
	}
	s.history = kept
	writeJSON(w, http.StatusOK, messageEnvelope{Success: true, Message: "User unregistered"})
}

func (s *Server) findByPhoneLocked(phoneNumber string) *domain.Account {
	for _, a := range s.accounts {
		if a.PhoneNumber == phoneNumber {
			return a
		}
	}
	return nil
}
