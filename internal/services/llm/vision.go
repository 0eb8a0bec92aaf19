package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/ternarybob/folio/internal/models"
	"google.golang.org/genai"
)

// extractionPrompt instructs the vision model to read brokerage screenshots.
// The structured output schema enforces the JSON shape.
const extractionPrompt = `You are a financial portfolio analyzer. Your task is to extract portfolio holdings from a screenshot.
Identify the Ticker Symbol (e.g., AAPL, TSLA, 005930.KS), Quantity (Shares), Average Price, and when visible, the Current Price.
If you cannot identify specific numbers, make a reasonable estimate or return 0, but always try to find the Ticker.
If the image is not a portfolio, return an empty items list.`

// extractedHolding is the JSON shape returned by the vision model.
type extractedHolding struct {
	Symbol       string  `json:"symbol"`
	Name         string  `json:"name"`
	Quantity     float64 `json:"quantity"`
	AvgPrice     float64 `json:"avg_price"`
	CurrentPrice float64 `json:"current_price"`
}

// extractionResult wraps the holdings list so the model can signal a
// non-portfolio image with an empty list.
type extractionResult struct {
	Items []extractedHolding `json:"items"`
}

// holdingsSchema constrains the vision output to the extraction shape.
var holdingsSchema = &genai.Schema{
	Type:     genai.TypeObject,
	Required: []string{"items"},
	Properties: map[string]*genai.Schema{
		"items": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type:     genai.TypeObject,
				Required: []string{"symbol", "quantity"},
				Properties: map[string]*genai.Schema{
					"symbol":        {Type: genai.TypeString, Description: "Ticker symbol, e.g. AAPL or 005930.KS"},
					"name":          {Type: genai.TypeString, Description: "Company name when visible"},
					"quantity":      {Type: genai.TypeNumber, Description: "Number of shares held"},
					"avg_price":     {Type: genai.TypeNumber, Description: "Average purchase price per share"},
					"current_price": {Type: genai.TypeNumber, Description: "Current price per share when visible"},
				},
			},
		},
	},
}

// ExtractHoldings reads a brokerage screenshot and returns the holdings
// visible in it. A readable image that is not a portfolio yields an empty
// slice rather than an error.
func (s *Service) ExtractHoldings(ctx context.Context, image []byte, mimeType string) ([]models.Holding, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("image cannot be empty")
	}
	if mimeType == "" {
		mimeType = "image/png"
	}

	model := s.geminiConfig.VisionModel
	if model == "" {
		model = s.geminiConfig.Model
	}

	contents := []*genai.Content{
		{
			Role: genai.RoleUser,
			Parts: []*genai.Part{
				genai.NewPartFromBytes(image, mimeType),
				genai.NewPartFromText("Analyze this portfolio screenshot and extract holdings."),
			},
		},
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(extractionPrompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    holdingsSchema,
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.geminiTimeout)
	defer cancel()

	startTime := time.Now()
	resp, err := s.generateGeminiContent(timeoutCtx, model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("screenshot extraction failed: %w", err)
	}

	text, err := extractGeminiText(resp)
	if err != nil {
		return nil, fmt.Errorf("screenshot extraction failed: %w", err)
	}

	holdings, err := parseExtractedHoldings(text)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("model", model).
		Int("holdings", len(holdings)).
		Dur("duration", time.Since(startTime)).
		Msg("Extracted holdings from screenshot")

	return holdings, nil
}

// parseExtractedHoldings decodes the model output into holdings. Entries
// without a symbol are dropped.
func parseExtractedHoldings(text string) ([]models.Holding, error) {
	text = stripCodeFences(text)

	var result extractionResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("failed to parse extraction response: %w", err)
	}

	holdings := make([]models.Holding, 0, len(result.Items))
	for _, item := range result.Items {
		symbol := strings.TrimSpace(item.Symbol)
		if symbol == "" {
			continue
		}
		holdings = append(holdings, models.Holding{
			Symbol:       symbol,
			Name:         strings.TrimSpace(item.Name),
			Quantity:     decimal.NewFromFloat(item.Quantity),
			AvgPrice:     decimal.NewFromFloat(item.AvgPrice),
			CurrentPrice: decimal.NewFromFloat(item.CurrentPrice),
		})
	}

	return holdings, nil
}

// stripCodeFences removes markdown code fences some models wrap around
// JSON output despite the response MIME type.
func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	return strings.TrimSpace(text)
}
