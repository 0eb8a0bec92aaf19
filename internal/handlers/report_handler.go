package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
	"github.com/ternarybob/folio/internal/services/mailer"
)

// defaultHistoryLimit bounds the history listing.
const defaultHistoryLimit = 20

// ReportDispatcherInterface defines the methods needed from the report dispatcher
type ReportDispatcherInterface interface {
	Deliver(ctx context.Context, recipient string, holdings []models.Holding) ([]byte, error)
	DeliverAsync(recipient string, holdings []models.Holding)
}

// ReportHistoryInterface defines the storage reads behind report history
type ReportHistoryInterface interface {
	GetReport(ctx context.Context, id string) (*models.Report, error)
	ListReports(ctx context.Context, userEmail string, limit int) ([]*models.Report, error)
}

// ReportHandler handles report generation HTTP requests
type ReportHandler struct {
	dispatcher       ReportDispatcherInterface
	portfolioService PortfolioServiceInterface
	history          ReportHistoryInterface
	sessions         SessionValidator
	logger           arbor.ILogger
}

// NewReportHandler creates a new report handler
func NewReportHandler(dispatcher ReportDispatcherInterface, portfolioService PortfolioServiceInterface, history ReportHistoryInterface, sessions SessionValidator, logger arbor.ILogger) *ReportHandler {
	return &ReportHandler{
		dispatcher:       dispatcher,
		portfolioService: portfolioService,
		history:          history,
		sessions:         sessions,
		logger:           logger,
	}
}

// DownloadHandler handles GET /api/report/download - builds the report
// synchronously and streams the PDF back.
func (h *ReportHandler) DownloadHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	email := requesterEmail(r, h.sessions)
	holdings, ok := h.loadHoldings(w, r, email)
	if !ok {
		return
	}

	pdfBytes, err := h.dispatcher.Deliver(r.Context(), email, holdings)
	if err != nil {
		h.logger.Error().Err(err).Msg("Report generation failed")
		WriteError(w, http.StatusInternalServerError, "Failed to generate report")
		return
	}

	h.logger.Info().Int("bytes", len(pdfBytes)).Msg("Report downloaded")

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename="+mailer.DefaultReportFilename)
	w.WriteHeader(http.StatusOK)
	w.Write(pdfBytes)
}

// EmailHandler handles POST /api/report/email - kicks off background
// report generation and delivery, acknowledging immediately.
func (h *ReportHandler) EmailHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	email := requesterEmail(r, h.sessions)

	// Optional recipient override
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.Email != "" {
		email = req.Email
	}

	holdings, ok := h.loadHoldings(w, r, requesterEmail(r, h.sessions))
	if !ok {
		return
	}

	h.dispatcher.DeliverAsync(email, holdings)

	WriteStarted(w, "Report generation started. The report will be emailed when ready.")
}

// HistoryHandler handles GET /api/report/history - lists stored reports
// for the requester, or returns one full report when id is supplied.
func (h *ReportHandler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	if id := r.URL.Query().Get("id"); id != "" {
		rpt, err := h.history.GetReport(r.Context(), id)
		if err != nil {
			if errors.Is(err, interfaces.ErrNotFound) {
				WriteError(w, http.StatusNotFound, "Report not found")
				return
			}
			h.logger.Error().Err(err).Str("id", id).Msg("Failed to load report")
			WriteError(w, http.StatusInternalServerError, "Failed to load report")
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{"report": rpt})
		return
	}

	email := requesterEmail(r, h.sessions)
	reports, err := h.history.ListReports(r.Context(), email, defaultHistoryLimit)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list reports")
		WriteError(w, http.StatusInternalServerError, "Failed to list reports")
		return
	}

	entries := make([]map[string]interface{}, 0, len(reports))
	for _, rpt := range reports {
		entries = append(entries, map[string]interface{}{
			"id":           rpt.ID,
			"generated_at": rpt.GeneratedAt,
			"total_value":  rpt.TotalValue,
			"holdings":     len(rpt.Lines),
		})
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{"reports": entries})
}

// loadHoldings fetches the latest snapshot and writes the 404 response
// itself when there is nothing to report on.
func (h *ReportHandler) loadHoldings(w http.ResponseWriter, r *http.Request, email string) ([]models.Holding, bool) {
	latest, err := h.portfolioService.GetLatest(r.Context(), email)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "No portfolio found. Save holdings first.")
			return nil, false
		}
		h.logger.Error().Err(err).Msg("Failed to load portfolio")
		WriteError(w, http.StatusInternalServerError, "Failed to load portfolio")
		return nil, false
	}
	if len(latest.Holdings) == 0 {
		WriteError(w, http.StatusNotFound, "Portfolio has no holdings. Save holdings first.")
		return nil, false
	}
	return latest.Holdings, true
}
