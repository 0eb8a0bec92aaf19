// -----------------------------------------------------------------------
// Report Dispatcher - sync and async delivery of rendered reports
// -----------------------------------------------------------------------

package report

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
	"github.com/ternarybob/folio/internal/services/render"
)

// DefaultAsyncTimeout bounds one background delivery run.
const DefaultAsyncTimeout = 5 * time.Minute

// Mailer is the slice of the mail service the dispatcher needs.
type Mailer interface {
	IsConfigured(ctx context.Context) bool
	SendReportEmail(ctx context.Context, to string, pdfBytes []byte, filename string) error
}

// Dispatcher runs the full report pipeline and delivers the result. The
// sync path always returns a usable PDF: any pipeline failure is replaced
// with a minimal emergency document. The async path returns immediately
// and swallows all failures after logging them.
type Dispatcher struct {
	orchestrator *Orchestrator
	renderer     *render.Renderer
	mailer       Mailer
	reports      interfaces.ReportStorage
	logger       arbor.ILogger
	asyncTimeout time.Duration
}

func NewDispatcher(orchestrator *Orchestrator, renderer *render.Renderer, mailer Mailer, reports interfaces.ReportStorage, logger arbor.ILogger) *Dispatcher {
	return &Dispatcher{
		orchestrator: orchestrator,
		renderer:     renderer,
		mailer:       mailer,
		reports:      reports,
		logger:       logger,
		asyncTimeout: DefaultAsyncTimeout,
	}
}

// Deliver runs the pipeline synchronously and returns the PDF bytes.
// A pipeline failure yields the emergency document instead of an error;
// only a failure to render even that is surfaced.
func (d *Dispatcher) Deliver(ctx context.Context, recipient string, holdings []models.Holding) ([]byte, error) {
	pdfBytes, err := d.run(ctx, recipient, holdings)
	if err == nil {
		return pdfBytes, nil
	}

	d.logger.Error().Err(err).Str("recipient", recipient).Msg("Report pipeline failed, producing emergency document")

	emergency, emergencyErr := d.renderer.RenderEmergency(recipient, err.Error())
	if emergencyErr != nil {
		return nil, fmt.Errorf("report pipeline failed and emergency render failed: %w", emergencyErr)
	}
	return emergency, nil
}

// DeliverAsync schedules a background build-and-email run and returns
// immediately. Failures are logged and swallowed; the caller is never
// notified.
func (d *Dispatcher) DeliverAsync(recipient string, holdings []models.Holding) {
	d.logger.Info().Str("recipient", recipient).Str("state", "scheduled").Msg("Report delivery scheduled")

	// The request context is gone by now; the run gets its own deadline.
	ctx, cancel := context.WithTimeout(context.Background(), d.asyncTimeout)

	common.SafeGoWithContext(ctx, d.logger, "report-delivery", func() {
		defer cancel()

		d.logger.Info().Str("recipient", recipient).Str("state", "running").Msg("Report delivery running")

		pdfBytes, err := d.Deliver(ctx, recipient, holdings)
		if err != nil {
			d.logger.Error().Err(err).Str("recipient", recipient).Str("state", "failed").Msg("Report delivery failed")
			return
		}

		if !d.mailer.IsConfigured(ctx) {
			d.logger.Error().Str("recipient", recipient).Str("state", "failed").Msg("Report delivery failed: mail not configured")
			return
		}

		if err := d.mailer.SendReportEmail(ctx, recipient, pdfBytes, ""); err != nil {
			d.logger.Error().Err(err).Str("recipient", recipient).Str("state", "failed").Msg("Report delivery failed")
			return
		}

		d.logger.Info().Str("recipient", recipient).Str("state", "delivered").Msg("Report delivered")
	})
}

// run executes build, persist and render. A panic anywhere inside is
// converted into an error so Deliver can fall back to the emergency
// document.
func (d *Dispatcher) run(ctx context.Context, recipient string, holdings []models.Holding) (pdfBytes []byte, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("report pipeline panic: %v", rec)
		}
	}()

	lines, insight := d.orchestrator.BuildReport(ctx, holdings)

	d.persist(ctx, recipient, lines, insight)

	pdfBytes, err = d.renderer.Render(recipient, insight, lines)
	if err != nil {
		return nil, fmt.Errorf("render failed: %w", err)
	}
	return pdfBytes, nil
}

// persist stores the assembled report. History is best effort; a storage
// failure must not block delivery.
func (d *Dispatcher) persist(ctx context.Context, recipient string, lines []models.StockReportLine, insight string) {
	if d.reports == nil {
		return
	}

	rpt := &models.Report{
		ID:          common.NewReportID(),
		UserEmail:   recipient,
		GeneratedAt: time.Now(),
		TotalValue:  totalValue(lines),
		Lines:       lines,
		Insight:     insight,
	}

	if err := d.reports.SaveReport(ctx, rpt); err != nil {
		d.logger.Warn().Err(err).Str("recipient", recipient).Msg("Failed to persist report history")
		return
	}

	d.logger.Debug().Str("report_id", rpt.ID).Str("recipient", recipient).Msg("Report persisted")
}
