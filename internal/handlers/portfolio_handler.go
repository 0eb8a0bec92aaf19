package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
	"github.com/ternarybob/folio/internal/services/portfolio"
)

// maxUploadBytes caps brokerage screenshot uploads at 10MB.
const maxUploadBytes = 10 << 20

// PortfolioServiceInterface defines the methods needed from the portfolio service
type PortfolioServiceInterface interface {
	Save(ctx context.Context, userEmail string, holdings []models.Holding) (*models.Portfolio, error)
	GetLatest(ctx context.Context, userEmail string) (*models.Portfolio, error)
	RealtimePrices(ctx context.Context, userEmail string) (map[string]portfolio.PriceEntry, error)
}

// HoldingsExtractor reads a brokerage screenshot into structured holdings.
type HoldingsExtractor interface {
	ExtractHoldings(ctx context.Context, image []byte, mimeType string) ([]models.Holding, error)
}

// InsightGenerator produces an aggregate narrative over a holdings list.
type InsightGenerator interface {
	GeneratePortfolioInsight(ctx context.Context, holdings []models.Holding) string
}

// PortfolioHandler handles portfolio HTTP requests
type PortfolioHandler struct {
	portfolioService PortfolioServiceInterface
	extractor        HoldingsExtractor
	insights         InsightGenerator
	sessions         SessionValidator
	logger           arbor.ILogger
}

// NewPortfolioHandler creates a new portfolio handler. The extractor may be
// nil when no vision-capable provider is available.
func NewPortfolioHandler(portfolioService PortfolioServiceInterface, extractor HoldingsExtractor, insights InsightGenerator, sessions SessionValidator, logger arbor.ILogger) *PortfolioHandler {
	return &PortfolioHandler{
		portfolioService: portfolioService,
		extractor:        extractor,
		insights:         insights,
		sessions:         sessions,
		logger:           logger,
	}
}

// PortfolioHandler handles /api/portfolio - POST saves a snapshot, GET
// returns the latest snapshot with refreshed prices.
func (h *PortfolioHandler) PortfolioHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.saveHandler(w, r)
	case http.MethodGet:
		h.getLatestHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *PortfolioHandler) saveHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Holdings []models.Holding `json:"holdings"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	saved, err := h.portfolioService.Save(r.Context(), requesterEmail(r, h.sessions), req.Holdings)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Portfolio save rejected")
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.Info().
		Str("portfolio_id", saved.ID).
		Int("holdings", len(saved.Holdings)).
		Msg("Portfolio saved")

	WriteJSON(w, http.StatusCreated, saved)
}

func (h *PortfolioHandler) getLatestHandler(w http.ResponseWriter, r *http.Request) {
	latest, err := h.portfolioService.GetLatest(r.Context(), requesterEmail(r, h.sessions))
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "No portfolio found. Save holdings first.")
			return
		}
		h.logger.Error().Err(err).Msg("Failed to load portfolio")
		WriteError(w, http.StatusInternalServerError, "Failed to load portfolio")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"portfolio":   latest,
		"total_value": latest.TotalValue(),
	})
}

// PricesHandler handles GET /api/portfolio/prices - current prices for the
// saved holdings, suitable for client-side polling.
func (h *PortfolioHandler) PricesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	prices, err := h.portfolioService.RealtimePrices(r.Context(), requesterEmail(r, h.sessions))
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "No portfolio found. Save holdings first.")
			return
		}
		h.logger.Error().Err(err).Msg("Failed to fetch prices")
		WriteError(w, http.StatusInternalServerError, "Failed to fetch prices")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"prices": prices,
	})
}

// AnalyzeHandler handles POST /api/portfolio/analyze - extracts holdings
// from an uploaded brokerage screenshot. The extracted holdings are
// returned for review, not saved.
func (h *PortfolioHandler) AnalyzeHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	if h.extractor == nil {
		WriteError(w, http.StatusServiceUnavailable, "Image analysis is not available. Check AI provider configuration.")
		return
	}

	image, mimeType, err := readUploadedImage(w, r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	holdings, err := h.extractor.ExtractHoldings(r.Context(), image, mimeType)
	if err != nil {
		h.logger.Error().Err(err).Msg("Screenshot analysis failed")
		WriteError(w, http.StatusInternalServerError, "Failed to analyze image: "+err.Error())
		return
	}

	h.logger.Info().Int("holdings", len(holdings)).Msg("Screenshot analyzed")

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"holdings": holdings,
	})
}

// InsightHandler handles POST /api/portfolio/insight - generates an
// aggregate AI narrative over the saved holdings.
func (h *PortfolioHandler) InsightHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	latest, err := h.portfolioService.GetLatest(r.Context(), requesterEmail(r, h.sessions))
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "No portfolio found. Save holdings first.")
			return
		}
		h.logger.Error().Err(err).Msg("Failed to load portfolio")
		WriteError(w, http.StatusInternalServerError, "Failed to load portfolio")
		return
	}

	insight := h.insights.GeneratePortfolioInsight(r.Context(), latest.Holdings)

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"insight": insight,
	})
}

// readUploadedImage accepts either a multipart form with an "image" file
// field or a raw image body, returning the bytes and sniffed MIME type.
func readUploadedImage(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return nil, "", errors.New("invalid multipart upload")
		}
		file, _, err := r.FormFile("image")
		if err != nil {
			return nil, "", errors.New("missing image file field")
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return nil, "", errors.New("failed to read uploaded image")
		}
		if len(data) == 0 {
			return nil, "", errors.New("uploaded image is empty")
		}
		return data, http.DetectContentType(data), nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil || len(data) == 0 {
		return nil, "", errors.New("uploaded image is empty")
	}
	return data, http.DetectContentType(data), nil
}
