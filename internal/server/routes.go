package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - Accounts
	mux.HandleFunc("/api/auth/register", s.app.AuthHandler.RegisterHandler) // POST - create account
	mux.HandleFunc("/api/auth/login", s.app.AuthHandler.LoginHandler)       // POST - issue session token
	mux.HandleFunc("/api/auth/logout", s.app.AuthHandler.LogoutHandler)     // POST - revoke session token

	// API routes - Portfolio
	mux.HandleFunc("/api/portfolio", s.app.PortfolioHandler.PortfolioHandler)      // POST (save), GET (latest + refreshed prices)
	mux.HandleFunc("/api/portfolio/prices", s.app.PortfolioHandler.PricesHandler)  // GET - realtime price polling
	mux.HandleFunc("/api/portfolio/analyze", s.app.PortfolioHandler.AnalyzeHandler) // POST - screenshot extraction
	mux.HandleFunc("/api/portfolio/insight", s.app.PortfolioHandler.InsightHandler) // POST - aggregate AI insight

	// API routes - Reports
	mux.HandleFunc("/api/report/download", s.app.ReportHandler.DownloadHandler) // GET - synchronous PDF
	mux.HandleFunc("/api/report/email", s.app.ReportHandler.EmailHandler)       // POST - async email delivery
	mux.HandleFunc("/api/report/history", s.app.ReportHandler.HistoryHandler)   // GET - stored report history

	// API routes - Knowledge base
	mux.HandleFunc("/api/rag/query", s.app.KnowledgeHandler.QueryHandler) // POST - grounded Q&A

	// API routes - Mail configuration
	mux.HandleFunc("/api/mail/config", s.handleMailConfig) // GET (read), POST (save)
	mux.HandleFunc("/api/mail/test", s.app.MailerHandler.SendTestHandler)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// Catch-all for unmatched API routes
	mux.HandleFunc("/api/", s.handleAPINotFound)

	return mux
}

// handleMailConfig routes /api/mail/config by method
func (s *Server) handleMailConfig(w http.ResponseWriter, r *http.Request) {
	RouteByMethod(w, r, MethodRouter{
		"GET":  s.app.MailerHandler.GetConfigHandler,
		"POST": s.app.MailerHandler.SetConfigHandler,
	})
}

// handleAPINotFound returns JSON 404 for unmatched API routes
func (s *Server) handleAPINotFound(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		s.app.APIHandler.NotFoundHandler(w, r)
		return
	}
	http.NotFound(w, r)
}
