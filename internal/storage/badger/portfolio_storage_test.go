package badger

import (
	"context"
	"os"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

func newTestDB(t *testing.T) *BadgerDB {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "folio-badger-test")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	options := badgerhold.DefaultOptions
	options.Dir = tmpDir
	options.ValueDir = tmpDir
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	return &BadgerDB{store: store}
}

func TestPortfolioStorage_SaveReplacesSnapshot(t *testing.T) {
	db := newTestDB(t)
	logger := arbor.NewLogger()
	storage := NewPortfolioStorage(db, logger)
	ctx := context.Background()

	first := &models.Portfolio{
		UserEmail: "Alice@Example.com",
		Holdings: []models.Holding{
			{Symbol: "AAPL", Quantity: decimal.NewFromInt(10), AvgPrice: decimal.NewFromInt(100)},
		},
	}
	if err := storage.SavePortfolio(ctx, first); err != nil {
		t.Fatalf("SavePortfolio failed: %v", err)
	}

	second := &models.Portfolio{
		UserEmail: "alice@example.com",
		Holdings: []models.Holding{
			{Symbol: "MSFT", Quantity: decimal.NewFromInt(5), AvgPrice: decimal.NewFromInt(200)},
			{Symbol: "AAPL", Quantity: decimal.NewFromInt(2), AvgPrice: decimal.NewFromInt(150)},
		},
	}
	if err := storage.SavePortfolio(ctx, second); err != nil {
		t.Fatalf("SavePortfolio (second) failed: %v", err)
	}

	// Second save replaces the first and keeps its ID
	latest, err := storage.GetLatestPortfolio(ctx, "ALICE@example.com")
	if err != nil {
		t.Fatalf("GetLatestPortfolio failed: %v", err)
	}
	if latest.ID != first.ID {
		t.Errorf("snapshot ID = %q, want original %q", latest.ID, first.ID)
	}
	if len(latest.Holdings) != 2 {
		t.Fatalf("holdings = %d, want 2", len(latest.Holdings))
	}
	if latest.Holdings[0].Symbol != "MSFT" {
		t.Errorf("first holding = %q, want MSFT", latest.Holdings[0].Symbol)
	}
}

func TestPortfolioStorage_GetLatestPortfolio_NotFound(t *testing.T) {
	db := newTestDB(t)
	storage := NewPortfolioStorage(db, arbor.NewLogger())

	_, err := storage.GetLatestPortfolio(context.Background(), "nobody@example.com")
	if err != interfaces.ErrNotFound {
		t.Errorf("err = %v, want interfaces.ErrNotFound", err)
	}
}

func TestUserStorage_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	storage := NewUserStorage(db, arbor.NewLogger())
	ctx := context.Background()

	user := &models.User{Email: "Bob@Example.com", PasswordHash: "hash"}
	if err := storage.SaveUser(ctx, user); err != nil {
		t.Fatalf("SaveUser failed: %v", err)
	}

	got, err := storage.GetUser(ctx, "bob@example.com")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got.Email != "bob@example.com" {
		t.Errorf("email = %q, want normalized bob@example.com", got.Email)
	}
	if got.PasswordHash != "hash" {
		t.Errorf("password hash not persisted")
	}

	if _, err := storage.GetUser(ctx, "missing@example.com"); err != interfaces.ErrNotFound {
		t.Errorf("err = %v, want interfaces.ErrNotFound", err)
	}
}

func TestReportStorage_ListNewestFirst(t *testing.T) {
	db := newTestDB(t)
	storage := NewReportStorage(db, arbor.NewLogger())
	ctx := context.Background()

	for _, id := range []string{"rpt_a", "rpt_b", "rpt_c"} {
		report := &models.Report{
			ID:         id,
			UserEmail:  "alice@example.com",
			TotalValue: decimal.NewFromInt(1000),
		}
		if err := storage.SaveReport(ctx, report); err != nil {
			t.Fatalf("SaveReport failed: %v", err)
		}
	}

	reports, err := storage.ListReports(ctx, "alice@example.com", 2)
	if err != nil {
		t.Fatalf("ListReports failed: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("reports = %d, want 2", len(reports))
	}
	if reports[0].ID != "rpt_c" {
		t.Errorf("newest report = %q, want rpt_c", reports[0].ID)
	}

	got, err := storage.GetReport(ctx, "rpt_b")
	if err != nil {
		t.Fatalf("GetReport failed: %v", err)
	}
	if got.ID != "rpt_b" {
		t.Errorf("report = %q, want rpt_b", got.ID)
	}

	if _, err := storage.GetReport(ctx, "missing"); err != interfaces.ErrNotFound {
		t.Errorf("err = %v, want interfaces.ErrNotFound", err)
	}
}
