package mcp

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mcouto/jira-mcp-server/internal/agent"
	"github.com/mcouto/jira-mcp-server/internal/jira"
)

const (
	ServerName    = "jira-mcp-server"
	ServerVersion = "1.0.0"
)

// Config holds MCP server configuration
type Config struct {
	JiraURL      string
	JiraUsername string
	JiraAPIToken string
	Port         int
	SSEMode      bool
}

// Server wraps the MCP server
type Server struct {
	config  Config
	mcp     *server.MCPServer
	handler *ToolHandlers
}

// NewServer creates a new MCP server
func NewServer(config Config) *Server {
	return &Server{
		config: config,
	}
}

// Run starts the MCP server
func (s *Server) Run() error {
	s.mcp = server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(false),
	)

	if s.config.SSEMode {
		// SSE mode - credentials come per request from headers
		return s.runSSE()
	}

	// Stdio mode - use env-provided credentials
	client := jira.NewClient(s.config.JiraURL, s.config.JiraUsername, s.config.JiraAPIToken)
	s.handler = NewToolHandlers(agent.New(client))
	s.handler.RegisterTools(s.mcp)

	slog.Info("Starting MCP server in stdio mode",
		"jira_url", s.config.JiraURL,
	)

	return server.ServeStdio(s.mcp)
}

// runSSE starts the server in SSE mode
func (s *Server) runSSE() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	slog.Info("Starting MCP server in SSE mode",
		"address", addr,
		"jira_url", s.config.JiraURL,
	)

	sseHandler := &sseHandler{
		jiraURL: s.config.JiraURL,
	}

	// Rate limiter: 100 requests per minute per IP
	rateLimiter := newSimpleRateLimiter(100, time.Minute)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(securityHeadersMiddleware)
	r.Use(rateLimiter.middleware)

	r.Handle("/sse", sseHandler)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return http.ListenAndServe(addr, r)
}

// sseHandler handles SSE connections with per-request credentials
type sseHandler struct {
	jiraURL string
}

func (h *sseHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	username := r.Header.Get("X-Jira-Username")
	apiToken := r.Header.Get("X-Jira-API-Token")
	if username == "" || apiToken == "" {
		http.Error(w, "Missing X-Jira-Username or X-Jira-API-Token header", http.StatusUnauthorized)
		return
	}

	// Create client for this request
	client := jira.NewClient(h.jiraURL, username, apiToken)

	// Create MCP server for this connection
	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(false),
	)

	handler := NewToolHandlers(agent.New(client))
	handler.RegisterTools(mcpServer)

	sseServer := server.NewSSEServer(mcpServer)
	sseServer.ServeHTTP(w, r)
}

// securityHeaders middleware adds security headers
func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// simpleRateLimiter for SSE mode
type simpleRateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
}

func newSimpleRateLimiter(limit int, window time.Duration) *simpleRateLimiter {
	return &simpleRateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

func (rl *simpleRateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-rl.window)

	// Filter old requests
	var recent []time.Time
	for _, t := range rl.requests[key] {
		if t.After(windowStart) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= rl.limit {
		rl.requests[key] = recent
		return false
	}

	rl.requests[key] = append(recent, now)
	return true
}

func (rl *simpleRateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.RemoteAddr
		if !rl.allow(key) {
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
