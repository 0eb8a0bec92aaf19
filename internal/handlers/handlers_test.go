package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
	"github.com/ternarybob/folio/internal/services/auth"
	"github.com/ternarybob/folio/internal/services/knowledge"
	"github.com/ternarybob/folio/internal/services/mailer"
	"github.com/ternarybob/folio/internal/services/portfolio"
)

// mockAuthService implements AuthServiceInterface for testing
type mockAuthService struct {
	registerFunc func(ctx context.Context, email, password string) (*models.User, error)
	loginFunc    func(ctx context.Context, email, password string) (*models.Session, error)
	loggedOut    []string
}

func (m *mockAuthService) Register(ctx context.Context, email, password string) (*models.User, error) {
	if m.registerFunc != nil {
		return m.registerFunc(ctx, email, password)
	}
	return &models.User{Email: email}, nil
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*models.Session, error) {
	if m.loginFunc != nil {
		return m.loginFunc(ctx, email, password)
	}
	return &models.Session{Token: "tok", Email: email, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (m *mockAuthService) Logout(ctx context.Context, token string) {
	m.loggedOut = append(m.loggedOut, token)
}

// mockPortfolioService implements PortfolioServiceInterface for testing
type mockPortfolioService struct {
	saveFunc      func(ctx context.Context, userEmail string, holdings []models.Holding) (*models.Portfolio, error)
	getLatestFunc func(ctx context.Context, userEmail string) (*models.Portfolio, error)
	pricesFunc    func(ctx context.Context, userEmail string) (map[string]portfolio.PriceEntry, error)
}

func (m *mockPortfolioService) Save(ctx context.Context, userEmail string, holdings []models.Holding) (*models.Portfolio, error) {
	if m.saveFunc != nil {
		return m.saveFunc(ctx, userEmail, holdings)
	}
	return &models.Portfolio{ID: "pf_1", UserEmail: userEmail, Holdings: holdings}, nil
}

func (m *mockPortfolioService) GetLatest(ctx context.Context, userEmail string) (*models.Portfolio, error) {
	if m.getLatestFunc != nil {
		return m.getLatestFunc(ctx, userEmail)
	}
	return nil, interfaces.ErrNotFound
}

func (m *mockPortfolioService) RealtimePrices(ctx context.Context, userEmail string) (map[string]portfolio.PriceEntry, error) {
	if m.pricesFunc != nil {
		return m.pricesFunc(ctx, userEmail)
	}
	return nil, interfaces.ErrNotFound
}

// mockDispatcher implements ReportDispatcherInterface for testing
type mockDispatcher struct {
	deliverFunc    func(ctx context.Context, recipient string, holdings []models.Holding) ([]byte, error)
	asyncRecipient string
	asyncCalls     int
}

func (m *mockDispatcher) Deliver(ctx context.Context, recipient string, holdings []models.Holding) ([]byte, error) {
	if m.deliverFunc != nil {
		return m.deliverFunc(ctx, recipient, holdings)
	}
	return []byte("%PDF-1.4 test"), nil
}

func (m *mockDispatcher) DeliverAsync(recipient string, holdings []models.Holding) {
	m.asyncRecipient = recipient
	m.asyncCalls++
}

// mockReportHistory implements ReportHistoryInterface for testing
type mockReportHistory struct {
	getFunc  func(ctx context.Context, id string) (*models.Report, error)
	listFunc func(ctx context.Context, userEmail string, limit int) ([]*models.Report, error)
}

func (m *mockReportHistory) GetReport(ctx context.Context, id string) (*models.Report, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id)
	}
	return nil, interfaces.ErrNotFound
}

func (m *mockReportHistory) ListReports(ctx context.Context, userEmail string, limit int) ([]*models.Report, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, userEmail, limit)
	}
	return nil, nil
}

// mockValidator implements SessionValidator for testing
type mockValidator struct {
	email string
}

func (m *mockValidator) Validate(ctx context.Context, token string) (string, error) {
	if m.email == "" {
		return "", auth.ErrInvalidToken
	}
	return m.email, nil
}

func testPortfolio(userEmail string) *models.Portfolio {
	return &models.Portfolio{
		ID:        "pf_1",
		UserEmail: userEmail,
		Holdings: []models.Holding{
			{Symbol: "AAPL", Name: "Apple Inc.", Quantity: decimal.NewFromInt(10), AvgPrice: decimal.NewFromInt(150)},
		},
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	return body
}

func TestRegisterHandler(t *testing.T) {
	handler := NewAuthHandler(&mockAuthService{}, arbor.NewLogger())

	req := httptest.NewRequest("POST", "/api/auth/register", strings.NewReader(`{"email":"a@b.com","password":"longenough"}`))
	rec := httptest.NewRecorder()
	handler.RegisterHandler(rec, req)

	if rec.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["email"] != "a@b.com" {
		t.Errorf("expected email a@b.com, got %v", body["email"])
	}
}

func TestRegisterHandler_EmailTaken(t *testing.T) {
	handler := NewAuthHandler(&mockAuthService{
		registerFunc: func(ctx context.Context, email, password string) (*models.User, error) {
			return nil, auth.ErrEmailTaken
		},
	}, arbor.NewLogger())

	req := httptest.NewRequest("POST", "/api/auth/register", strings.NewReader(`{"email":"a@b.com","password":"longenough"}`))
	rec := httptest.NewRecorder()
	handler.RegisterHandler(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d", rec.Code)
	}
}

func TestLoginHandler_BadCredentials(t *testing.T) {
	handler := NewAuthHandler(&mockAuthService{
		loginFunc: func(ctx context.Context, email, password string) (*models.Session, error) {
			return nil, auth.ErrInvalidCredentials
		},
	}, arbor.NewLogger())

	req := httptest.NewRequest("POST", "/api/auth/login", strings.NewReader(`{"email":"a@b.com","password":"wrong"}`))
	rec := httptest.NewRecorder()
	handler.LoginHandler(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rec.Code)
	}
}

func TestLoginHandler_IssuesToken(t *testing.T) {
	handler := NewAuthHandler(&mockAuthService{}, arbor.NewLogger())

	req := httptest.NewRequest("POST", "/api/auth/login", strings.NewReader(`{"email":"a@b.com","password":"longenough"}`))
	rec := httptest.NewRecorder()
	handler.LoginHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["token"] != "tok" {
		t.Errorf("expected token in response, got %v", body["token"])
	}
}

func TestPortfolioHandler_Save(t *testing.T) {
	svc := &mockPortfolioService{}
	handler := NewPortfolioHandler(svc, nil, nil, &mockValidator{}, arbor.NewLogger())

	payload := `{"holdings":[{"symbol":"AAPL","quantity":"10","avg_price":"150"}]}`
	req := httptest.NewRequest("POST", "/api/portfolio", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	handler.PortfolioHandler(rec, req)

	if rec.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var saved models.Portfolio
	if err := json.Unmarshal(rec.Body.Bytes(), &saved); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if saved.UserEmail != portfolio.DemoUserEmail {
		t.Errorf("expected demo user fallback, got %s", saved.UserEmail)
	}
}

func TestPortfolioHandler_SaveUsesSessionEmail(t *testing.T) {
	var gotEmail string
	svc := &mockPortfolioService{
		saveFunc: func(ctx context.Context, userEmail string, holdings []models.Holding) (*models.Portfolio, error) {
			gotEmail = userEmail
			return &models.Portfolio{ID: "pf_1", UserEmail: userEmail, Holdings: holdings}, nil
		},
	}
	handler := NewPortfolioHandler(svc, nil, nil, &mockValidator{email: "user@example.com"}, arbor.NewLogger())

	payload := `{"holdings":[{"symbol":"AAPL","quantity":"10"}]}`
	req := httptest.NewRequest("POST", "/api/portfolio", strings.NewReader(payload))
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	handler.PortfolioHandler(rec, req)

	if gotEmail != "user@example.com" {
		t.Errorf("expected session email, got %s", gotEmail)
	}
}

func TestPortfolioHandler_GetLatest_NotFound(t *testing.T) {
	handler := NewPortfolioHandler(&mockPortfolioService{}, nil, nil, &mockValidator{}, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/portfolio", nil)
	rec := httptest.NewRecorder()
	handler.PortfolioHandler(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "error" {
		t.Errorf("expected structured error, got %v", body)
	}
}

func TestPortfolioHandler_MethodNotAllowed(t *testing.T) {
	handler := NewPortfolioHandler(&mockPortfolioService{}, nil, nil, &mockValidator{}, arbor.NewLogger())

	req := httptest.NewRequest("DELETE", "/api/portfolio", nil)
	rec := httptest.NewRecorder()
	handler.PortfolioHandler(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", rec.Code)
	}
}

func TestPricesHandler(t *testing.T) {
	svc := &mockPortfolioService{
		pricesFunc: func(ctx context.Context, userEmail string) (map[string]portfolio.PriceEntry, error) {
			return map[string]portfolio.PriceEntry{
				"AAPL": {CurrentPrice: decimal.NewFromFloat(190.5), ChangePct: 1.2},
			}, nil
		},
	}
	handler := NewPortfolioHandler(svc, nil, nil, &mockValidator{}, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/portfolio/prices", nil)
	rec := httptest.NewRecorder()
	handler.PricesHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "AAPL") {
		t.Errorf("expected AAPL in response, got %s", rec.Body.String())
	}
}

func TestAnalyzeHandler_NoExtractor(t *testing.T) {
	handler := NewPortfolioHandler(&mockPortfolioService{}, nil, nil, &mockValidator{}, arbor.NewLogger())

	req := httptest.NewRequest("POST", "/api/portfolio/analyze", strings.NewReader("fake image"))
	rec := httptest.NewRecorder()
	handler.AnalyzeHandler(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rec.Code)
	}
}

type stubExtractor struct {
	holdings []models.Holding
}

func (s *stubExtractor) ExtractHoldings(ctx context.Context, image []byte, mimeType string) ([]models.Holding, error) {
	return s.holdings, nil
}

func TestAnalyzeHandler_RawBody(t *testing.T) {
	extractor := &stubExtractor{holdings: []models.Holding{{Symbol: "TSLA", Quantity: decimal.NewFromInt(3)}}}
	handler := NewPortfolioHandler(&mockPortfolioService{}, extractor, nil, &mockValidator{}, arbor.NewLogger())

	req := httptest.NewRequest("POST", "/api/portfolio/analyze", strings.NewReader("\x89PNG fake image bytes"))
	rec := httptest.NewRecorder()
	handler.AnalyzeHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "TSLA") {
		t.Errorf("expected extracted holdings, got %s", rec.Body.String())
	}
}

type stubInsights struct {
	insight string
}

func (s *stubInsights) GeneratePortfolioInsight(ctx context.Context, holdings []models.Holding) string {
	return s.insight
}

func TestInsightHandler(t *testing.T) {
	svc := &mockPortfolioService{
		getLatestFunc: func(ctx context.Context, userEmail string) (*models.Portfolio, error) {
			return testPortfolio(userEmail), nil
		},
	}
	handler := NewPortfolioHandler(svc, nil, &stubInsights{insight: "Diversify."}, &mockValidator{}, arbor.NewLogger())

	req := httptest.NewRequest("POST", "/api/portfolio/insight", nil)
	rec := httptest.NewRecorder()
	handler.InsightHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["insight"] != "Diversify." {
		t.Errorf("expected insight, got %v", body["insight"])
	}
}

func TestDownloadHandler(t *testing.T) {
	svc := &mockPortfolioService{
		getLatestFunc: func(ctx context.Context, userEmail string) (*models.Portfolio, error) {
			return testPortfolio(userEmail), nil
		},
	}
	handler := NewReportHandler(&mockDispatcher{}, svc, &mockReportHistory{}, &mockValidator{}, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/report/download", nil)
	rec := httptest.NewRecorder()
	handler.DownloadHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("expected application/pdf, got %s", ct)
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), mailer.DefaultReportFilename) {
		t.Errorf("expected attachment filename, got %s", rec.Header().Get("Content-Disposition"))
	}
	if !strings.HasPrefix(rec.Body.String(), "%PDF") {
		t.Errorf("expected PDF body, got %q", rec.Body.String()[:10])
	}
}

func TestDownloadHandler_NoPortfolio(t *testing.T) {
	handler := NewReportHandler(&mockDispatcher{}, &mockPortfolioService{}, &mockReportHistory{}, &mockValidator{}, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/report/download", nil)
	rec := httptest.NewRecorder()
	handler.DownloadHandler(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
}

func TestEmailHandler_StartsAsync(t *testing.T) {
	svc := &mockPortfolioService{
		getLatestFunc: func(ctx context.Context, userEmail string) (*models.Portfolio, error) {
			return testPortfolio(userEmail), nil
		},
	}
	dispatcher := &mockDispatcher{}
	handler := NewReportHandler(dispatcher, svc, &mockReportHistory{}, &mockValidator{email: "user@example.com"}, arbor.NewLogger())

	req := httptest.NewRequest("POST", "/api/report/email", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	handler.EmailHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "started" {
		t.Errorf("expected started status, got %v", body["status"])
	}
	if dispatcher.asyncCalls != 1 {
		t.Errorf("expected one async dispatch, got %d", dispatcher.asyncCalls)
	}
	if dispatcher.asyncRecipient != "user@example.com" {
		t.Errorf("expected session recipient, got %s", dispatcher.asyncRecipient)
	}
}

func TestEmailHandler_RecipientOverride(t *testing.T) {
	svc := &mockPortfolioService{
		getLatestFunc: func(ctx context.Context, userEmail string) (*models.Portfolio, error) {
			return testPortfolio(userEmail), nil
		},
	}
	dispatcher := &mockDispatcher{}
	handler := NewReportHandler(dispatcher, svc, &mockReportHistory{}, &mockValidator{}, arbor.NewLogger())

	req := httptest.NewRequest("POST", "/api/report/email", strings.NewReader(`{"email":"other@example.com"}`))
	rec := httptest.NewRecorder()
	handler.EmailHandler(rec, req)

	if dispatcher.asyncRecipient != "other@example.com" {
		t.Errorf("expected override recipient, got %s", dispatcher.asyncRecipient)
	}
}

func TestEmailHandler_EmptyHoldings(t *testing.T) {
	svc := &mockPortfolioService{
		getLatestFunc: func(ctx context.Context, userEmail string) (*models.Portfolio, error) {
			return &models.Portfolio{ID: "pf_1", UserEmail: userEmail}, nil
		},
	}
	dispatcher := &mockDispatcher{}
	handler := NewReportHandler(dispatcher, svc, &mockReportHistory{}, &mockValidator{}, arbor.NewLogger())

	req := httptest.NewRequest("POST", "/api/report/email", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	handler.EmailHandler(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
	if dispatcher.asyncCalls != 0 {
		t.Errorf("expected no dispatch for empty holdings, got %d", dispatcher.asyncCalls)
	}
}

func TestHistoryHandler_ListsForRequester(t *testing.T) {
	var gotEmail string
	history := &mockReportHistory{
		listFunc: func(ctx context.Context, userEmail string, limit int) ([]*models.Report, error) {
			gotEmail = userEmail
			return []*models.Report{
				{ID: "rpt_2", UserEmail: userEmail, TotalValue: decimal.NewFromInt(1900)},
				{ID: "rpt_1", UserEmail: userEmail, TotalValue: decimal.NewFromInt(1500)},
			}, nil
		},
	}
	handler := NewReportHandler(&mockDispatcher{}, &mockPortfolioService{}, history, &mockValidator{email: "user@example.com"}, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/report/history", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	handler.HistoryHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotEmail != "user@example.com" {
		t.Errorf("expected session email, got %s", gotEmail)
	}
	body := decodeBody(t, rec)
	reports, ok := body["reports"].([]interface{})
	if !ok || len(reports) != 2 {
		t.Fatalf("expected 2 history entries, got %v", body["reports"])
	}
	first, _ := reports[0].(map[string]interface{})
	if first["id"] != "rpt_2" {
		t.Errorf("expected newest report first, got %v", first["id"])
	}
}

func TestHistoryHandler_ByID(t *testing.T) {
	history := &mockReportHistory{
		getFunc: func(ctx context.Context, id string) (*models.Report, error) {
			if id != "rpt_1" {
				return nil, interfaces.ErrNotFound
			}
			return &models.Report{ID: "rpt_1", Insight: "Diversify."}, nil
		},
	}
	handler := NewReportHandler(&mockDispatcher{}, &mockPortfolioService{}, history, &mockValidator{}, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/report/history?id=rpt_1", nil)
	rec := httptest.NewRecorder()
	handler.HistoryHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Diversify.") {
		t.Errorf("expected full report body, got %s", rec.Body.String())
	}
}

func TestHistoryHandler_ByID_NotFound(t *testing.T) {
	handler := NewReportHandler(&mockDispatcher{}, &mockPortfolioService{}, &mockReportHistory{}, &mockValidator{}, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/report/history?id=missing", nil)
	rec := httptest.NewRecorder()
	handler.HistoryHandler(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "error" {
		t.Errorf("expected structured error, got %v", body)
	}
}

// mockKnowledgeService implements KnowledgeServiceInterface for testing
type mockKnowledgeService struct {
	queryFunc func(ctx context.Context, question string) (*knowledge.Answer, error)
}

func (m *mockKnowledgeService) Query(ctx context.Context, question string) (*knowledge.Answer, error) {
	if m.queryFunc != nil {
		return m.queryFunc(ctx, question)
	}
	return &knowledge.Answer{Text: "An ETF is a pooled fund.", Sources: []string{"Investment Basics"}}, nil
}

func TestKnowledgeQueryHandler(t *testing.T) {
	handler := NewKnowledgeHandler(&mockKnowledgeService{}, arbor.NewLogger())

	req := httptest.NewRequest("POST", "/api/rag/query", strings.NewReader(`{"question":"What is an ETF?"}`))
	rec := httptest.NewRecorder()
	handler.QueryHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["answer"] != "An ETF is a pooled fund." {
		t.Errorf("expected answer, got %v", body["answer"])
	}
}

func TestKnowledgeQueryHandler_EmptyQuestion(t *testing.T) {
	handler := NewKnowledgeHandler(&mockKnowledgeService{}, arbor.NewLogger())

	req := httptest.NewRequest("POST", "/api/rag/query", strings.NewReader(`{"question":""}`))
	rec := httptest.NewRecorder()
	handler.QueryHandler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
}

func TestKnowledgeQueryHandler_Unavailable(t *testing.T) {
	handler := NewKnowledgeHandler(nil, arbor.NewLogger())

	req := httptest.NewRequest("POST", "/api/rag/query", strings.NewReader(`{"question":"What is an ETF?"}`))
	rec := httptest.NewRecorder()
	handler.QueryHandler(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rec.Code)
	}
}

// mockMailerService implements MailerServiceInterface for testing
type mockMailerService struct {
	config    *mailer.Config
	saved     *mailer.Config
	testEmail string
}

func (m *mockMailerService) GetConfig(ctx context.Context) (*mailer.Config, error) {
	if m.config == nil {
		return &mailer.Config{Port: 587, UseTLS: true, FromName: "Folio"}, nil
	}
	return m.config, nil
}

func (m *mockMailerService) SetConfig(ctx context.Context, config *mailer.Config) error {
	m.saved = config
	return nil
}

func (m *mockMailerService) IsConfigured(ctx context.Context) bool {
	return m.config != nil && m.config.Host != ""
}

func (m *mockMailerService) SendTestEmail(ctx context.Context, to string) error {
	m.testEmail = to
	return nil
}

func TestMailerGetConfig_MasksPassword(t *testing.T) {
	svc := &mockMailerService{
		config: &mailer.Config{Host: "smtp.example.com", Port: 587, Username: "user", Password: "secret", From: "noreply@example.com"},
	}
	handler := NewMailerHandler(svc, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/mail/config", nil)
	rec := httptest.NewRecorder()
	handler.GetConfigHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["smtp_password"] != "********" {
		t.Errorf("expected masked password, got %v", body["smtp_password"])
	}
	if body["configured"] != true {
		t.Errorf("expected configured true, got %v", body["configured"])
	}
}

func TestMailerSetConfig_PreservesPassword(t *testing.T) {
	svc := &mockMailerService{
		config: &mailer.Config{Host: "smtp.example.com", Port: 587, Username: "user", Password: "secret", From: "noreply@example.com"},
	}
	handler := NewMailerHandler(svc, arbor.NewLogger())

	payload := `{"smtp_host":"smtp.example.com","smtp_username":"user","smtp_password":"********","smtp_from":"noreply@example.com"}`
	req := httptest.NewRequest("POST", "/api/mail/config", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	handler.SetConfigHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if svc.saved == nil {
		t.Fatal("expected config to be saved")
	}
	if svc.saved.Password != "secret" {
		t.Errorf("expected preserved password, got %q", svc.saved.Password)
	}
	if svc.saved.Port != 587 {
		t.Errorf("expected default port 587, got %d", svc.saved.Port)
	}
	if svc.saved.FromName != "Folio" {
		t.Errorf("expected default from name, got %q", svc.saved.FromName)
	}
}

func TestMailerSendTest_NotConfigured(t *testing.T) {
	handler := NewMailerHandler(&mockMailerService{}, arbor.NewLogger())

	req := httptest.NewRequest("POST", "/api/mail/test", strings.NewReader(`{"to":"a@b.com"}`))
	rec := httptest.NewRecorder()
	handler.SendTestHandler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
}

func TestAPIHandler_Health(t *testing.T) {
	handler := NewAPIHandler()

	req := httptest.NewRequest("GET", "/api/health", nil)
	rec := httptest.NewRecorder()
	handler.HealthHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "ok" {
		t.Errorf("expected ok status, got %v", body["status"])
	}
}

func TestRequesterEmail_FallsBackToDemo(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/portfolio", nil)
	if email := requesterEmail(req, &mockValidator{}); email != portfolio.DemoUserEmail {
		t.Errorf("expected demo fallback, got %s", email)
	}

	req.Header.Set("Authorization", "Bearer badtoken")
	if email := requesterEmail(req, &mockValidator{}); email != portfolio.DemoUserEmail {
		t.Errorf("expected demo fallback on invalid token, got %s", email)
	}
}
