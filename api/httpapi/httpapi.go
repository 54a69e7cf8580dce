package httpapi

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	wsadapter "scorekit/adapters/websocket"
	"scorekit/core"
	"scorekit/engine"
	"scorekit/realtime"
)

// Options configures the HTTP API surface.
type Options struct {
	// PathPrefix, if set, is prepended to all routes (e.g., "/api").
	PathPrefix string
	// AllowCORSOrigin, if non-empty, enables basic CORS with the given origin (use "*" for any).
	AllowCORSOrigin string
	// APIKeys, if non-empty, enables static API key auth via Authorization: Bearer or X-API-Key.
	APIKeys []string
	// RateLimitEnabled toggles rate limiting.
	RateLimitEnabled bool
	// RateLimitRPM is the allowed requests per minute per client key.
	RateLimitRPM int
	// RateLimitBurst defines burst capacity.
	RateLimitBurst int
}

// NewMux builds the REST and WebSocket surface of the scoring engine.
// Routes:
//   - POST {prefix}/scores
//   - POST {prefix}/sessions
//   - POST {prefix}/sessions/{id}/end
//   - GET  {prefix}/leaderboard/global?limit=&offset=
//   - GET  {prefix}/leaderboard/level/{level}?limit=&offset=
//   - GET  {prefix}/leaderboard/around-me?n=
//   - GET  {prefix}/leaderboard/live?limit=
//   - GET  {prefix}/achievements
//   - GET  {prefix}/stats/me
//   - GET  {prefix}/healthz
//   - WS   {prefix}/ws?user=
//
// The player identity comes from the X-User-ID header.
func NewMux(svc *engine.Service, hub *realtime.Hub, opts Options) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(withPrefix(opts.PathPrefix, "/healthz"), func(w http.ResponseWriter, r *http.Request) {
		healthCheck(w, r, svc)
	})

	if hub != nil {
		mux.Handle(withPrefix(opts.PathPrefix, "/ws"), wsadapter.Handler(hub))
	}

	mux.HandleFunc(withPrefix(opts.PathPrefix, "/scores"), func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST", nil)
			return
		}
		user, ok := requireUser(w, r)
		if !ok {
			return
		}
		var sub core.Submission
		if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
			writeError(w, http.StatusBadRequest, string(core.CodeValidation), "malformed JSON body", nil)
			return
		}
		result, err := svc.SubmitScore(r.Context(), user, sub)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, result)
	})

	mux.HandleFunc(withPrefix(opts.PathPrefix, "/sessions"), func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST", nil)
			return
		}
		user, ok := requireUser(w, r)
		if !ok {
			return
		}
		var body struct {
			GameID string `json:"gameId"`
		}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&body)
		}
		sessionID, err := svc.StartSession(r.Context(), user, body.GameID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, map[string]any{"sessionId": sessionID})
	})

	mux.HandleFunc(withPrefix(opts.PathPrefix, "/sessions/"), func(w http.ResponseWriter, r *http.Request) {
		parts := split(strings.TrimPrefix(r.URL.Path, opts.PathPrefix), '/')
		if r.Method != http.MethodPost || len(parts) != 3 || parts[2] != "end" {
			writeError(w, http.StatusNotFound, "not_found", "route not found", nil)
			return
		}
		closed, err := svc.EndSession(r.Context(), parts[1])
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, closed)
	})

	mux.HandleFunc(withPrefix(opts.PathPrefix, "/leaderboard/"), func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET", nil)
			return
		}
		parts := split(strings.TrimPrefix(r.URL.Path, opts.PathPrefix), '/')
		if len(parts) < 2 {
			writeError(w, http.StatusNotFound, "not_found", "route not found", nil)
			return
		}
		limit := intQuery(r, "limit", 20)
		offset := intQuery(r, "offset", 0)

		switch parts[1] {
		case "global":
			entries, total, err := svc.GlobalLeaderboard(r.Context(), limit, offset)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, map[string]any{"entries": entries, "totalPlayers": total})
		case "level":
			if len(parts) < 3 {
				writeError(w, http.StatusNotFound, "not_found", "route not found", nil)
				return
			}
			level, err := strconv.Atoi(parts[2])
			if err != nil {
				writeError(w, http.StatusBadRequest, string(core.CodeValidation), "level must be an integer", nil)
				return
			}
			records, err := svc.LevelLeaderboard(r.Context(), level, limit, offset)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, map[string]any{"level": level, "entries": records})
		case "around-me":
			user, ok := requireUser(w, r)
			if !ok {
				return
			}
			view, err := svc.Around(r.Context(), user, intQuery(r, "n", 3))
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, view)
		case "live":
			writeJSON(w, map[string]any{"entries": svc.LiveTop(limit)})
		default:
			writeError(w, http.StatusNotFound, "not_found", "route not found", nil)
		}
	})

	mux.HandleFunc(withPrefix(opts.PathPrefix, "/achievements"), func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET", nil)
			return
		}
		user, ok := requireUser(w, r)
		if !ok {
			return
		}
		view, err := svc.Achievements(r.Context(), user)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, view)
	})

	mux.HandleFunc(withPrefix(opts.PathPrefix, "/stats/me"), func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET", nil)
			return
		}
		user, ok := requireUser(w, r)
		if !ok {
			return
		}
		summary, err := svc.Summary(r.Context(), user)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, summary)
	})

	var handler http.Handler = mux
	if opts.AllowCORSOrigin != "" {
		handler = withCORS(handler, opts.AllowCORSOrigin)
	}
	if len(opts.APIKeys) > 0 {
		handler = withAPIKeyAuth(handler, opts.APIKeys)
	}
	if opts.RateLimitEnabled && opts.RateLimitRPM > 0 && opts.RateLimitBurst > 0 {
		handler = withRateLimit(handler, opts.RateLimitRPM, opts.RateLimitBurst)
	}
	return handler
}

// Helpers

// requireUser reads the player identity from the X-User-ID header.
func requireUser(w http.ResponseWriter, r *http.Request) (core.UserID, bool) {
	user, err := core.NormalizeUserID(core.UserID(r.Header.Get("X-User-ID")))
	if err != nil {
		writeError(w, http.StatusBadRequest, string(core.CodeValidation), "X-User-ID header is required", nil)
		return "", false
	}
	return user, true
}

func intQuery(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

// writeDomainError maps the error taxonomy onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	code := core.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case core.CodeValidation:
		status = http.StatusBadRequest
	case core.CodeScoreRejected:
		status = http.StatusUnprocessableEntity
	case core.CodeNotFound:
		status = http.StatusNotFound
	}
	msg := err.Error()
	var domainErr *core.Error
	if errors.As(err, &domainErr) {
		msg = domainErr.Message
	}
	writeError(w, status, string(code), msg, nil)
}

// healthCheck verifies storage reachability with a lightweight probe read.
func healthCheck(w http.ResponseWriter, r *http.Request, svc *engine.Service) {
	_, err := svc.PlayerRank(r.Context(), core.UserID("healthcheck_probe"))

	status := map[string]any{
		"status": "healthy",
		"checks": map[string]any{
			"storage": "ok",
		},
	}
	if err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		status["status"] = "unhealthy"
		status["checks"].(map[string]any)["storage"] = "failed"
	} else {
		w.WriteHeader(http.StatusOK)
	}
	writeJSON(w, status)
}

func withPrefix(prefix, path string) string {
	if prefix == "" || prefix == "/" {
		return path
	}
	if prefix[len(prefix)-1] == '/' {
		return prefix[:len(prefix)-1] + path
	}
	return prefix + path
}

func split(p string, sep rune) []string {
	var parts []string
	cur := make([]rune, 0, len(p))
	for len(p) > 0 && p[0] == '/' {
		p = p[1:]
	}
	for _, r := range p {
		if r == sep {
			if len(cur) > 0 {
				parts = append(parts, string(cur))
				cur = cur[:0]
			}
			continue
		}
		cur = append(cur, r)
	}
	if len(cur) > 0 {
		parts = append(parts, string(cur))
	}
	return parts
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string, details any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiError{Code: code, Message: msg, Details: details})
}

// withCORS wraps a handler with a minimal CORS policy.
func withCORS(next http.Handler, origin string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Vary", "Origin")
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization,X-User-ID,X-API-Key")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withAPIKeyAuth enforces a shared API key list.
func withAPIKeyAuth(next http.Handler, apiKeys []string) http.Handler {
	allowed := make(map[string]struct{}, len(apiKeys))
	for _, k := range apiKeys {
		k = strings.TrimSpace(k)
		if k != "" {
			allowed[k] = struct{}{}
		}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := extractAPIKey(r)
		if key == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing API key", nil)
			return
		}
		if _, ok := allowed[key]; !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid API key", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRateLimit applies a simple token-bucket limiter per client key.
func withRateLimit(next http.Handler, rpm int, burst int) http.Handler {
	limiter := newRateLimiter(rpm, burst)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		if !limiter.allow(key) {
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractAPIKey(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	return ""
}

// clientKey uses API key if present, otherwise remote IP.
func clientKey(r *http.Request) string {
	if key := extractAPIKey(r); key != "" {
		return key
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type rateLimiter struct {
	rpm   float64
	burst float64
	mu    sync.Mutex
	b     map[string]*bucket
}

type bucket struct {
	tokens float64
	last   time.Time
}

func newRateLimiter(rpm, burst int) *rateLimiter {
	return &rateLimiter{
		rpm:   float64(rpm),
		burst: float64(burst),
		b:     make(map[string]*bucket),
	}
}

func (l *rateLimiter) allow(key string) bool {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.b[key]
	if !ok {
		l.b[key] = &bucket{tokens: l.burst - 1, last: now}
		return true
	}

	elapsed := now.Sub(b.last).Minutes()
	b.tokens += elapsed * l.rpm
	if b.tokens > l.burst {
		b.tokens = l.burst
	}
	if b.tokens < 1 {
		b.last = now
		return false
	}
	b.tokens--
	b.last = now
	return true
}
