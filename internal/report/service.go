package report

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/tracker-workorders/internal"
	"github.com/frahmantamala/tracker-workorders/internal/auth"
	"github.com/frahmantamala/tracker-workorders/internal/workorder"
)

const (
	PDFContentType = "application/pdf"
	exportPageSize = 100
)

// Document is a generated file ready to be served.
type Document struct {
	Filename    string
	ContentType string
	Content     []byte
}

type OrderSource interface {
	Get(ctx context.Context, session *auth.Session, id string) (*workorder.WorkOrder, error)
	Query(ctx context.Context, session *auth.Session, filter workorder.QueryFilter) ([]*workorder.WorkOrder, error)
}

// Generator merges one order into the report layout.
type Generator struct {
	assets     AssetFetcher
	renderer   Renderer
	layoutPath string
	logger     *slog.Logger
}

func NewGenerator(assets AssetFetcher, renderer Renderer, layoutPath string, logger *slog.Logger) *Generator {
	return &Generator{assets: assets, renderer: renderer, layoutPath: layoutPath, logger: logger}
}

// OrderFilename is OS_<PLATE>_<first 8 chars of id>.pdf.
func OrderFilename(wo *workorder.WorkOrder) string {
	plate := strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		}
		return -1
	}, wo.VehiclePlate)
	if plate == "" {
		plate = "NOPLATE"
	}
	return fmt.Sprintf("OS_%s_%s.pdf", plate, shortID(wo.ID))
}

// Generate renders the report of an order whose field work is done.
func (g *Generator) Generate(ctx context.Context, wo *workorder.WorkOrder) (*Document, error) {
	if !wo.HasFieldReport() {
		return nil, internal.NewInvalidStateError(
			"a report is only available once field work is complete",
			internal.ErrCodeInvalidTransition,
		).WithDetails(map[string]string{"current_status": string(wo.Status)})
	}

	layout, err := LoadLayout(g.layoutPath)
	if err != nil {
		g.logger.Error("report layout unavailable", "error", err, "layout_path", g.layoutPath)
		return nil, internal.NewGenerationError("report layout is unavailable", internal.ErrCodeLayoutUnavailable, err)
	}

	mc := BuildContext(ctx, wo, g.assets, g.logger)

	content, err := g.renderer.Render(layout, mc)
	if err != nil {
		g.logger.Error("report rendering failed", "error", err, "work_order_id", wo.ID)
		return nil, internal.NewGenerationError("failed to render report", internal.ErrCodeRenderFailed, err)
	}

	g.logger.Info("report generated",
		"work_order_id", wo.ID,
		"images", len(mc.Images),
		"checklist_items", len(mc.Checklist),
		"bytes", len(content))

	return &Document{Filename: OrderFilename(wo), ContentType: PDFContentType, Content: content}, nil
}

type Service struct {
	orders    OrderSource
	gate      auth.Authorizer
	generator *Generator
	logger    *slog.Logger
}

func NewService(orders OrderSource, gate auth.Authorizer, generator *Generator, logger *slog.Logger) *Service {
	return &Service{orders: orders, gate: gate, generator: generator, logger: logger}
}

// OrderReport produces the PDF of one order for back-office staff.
func (s *Service) OrderReport(ctx context.Context, session *auth.Session, id string) (*Document, error) {
	if _, err := s.gate.Can(ctx, session, auth.ActionDownloadReport); err != nil {
		return nil, err
	}
	wo, err := s.orders.Get(ctx, session, id)
	if err != nil {
		return nil, err
	}
	return s.generator.Generate(ctx, wo)
}

func (s *Service) Summary(ctx context.Context, session *auth.Session, from, to time.Time) (*Summary, error) {
	orders, err := s.finalizedBetween(ctx, session, from, to)
	if err != nil {
		return nil, err
	}
	summary := Summarize(orders, from, to)
	return &summary, nil
}

// Export builds the spreadsheet of orders finalized in [from, to].
func (s *Service) Export(ctx context.Context, session *auth.Session, from, to time.Time) (*Document, error) {
	orders, err := s.finalizedBetween(ctx, session, from, to)
	if err != nil {
		return nil, err
	}

	buf, err := ExportWorkbook(orders)
	if err != nil {
		s.logger.Error("spreadsheet export failed", "error", err, "orders", len(orders))
		return nil, internal.NewGenerationError("failed to build spreadsheet", internal.ErrCodeRenderFailed, err)
	}

	s.logger.Info("work orders exported", "orders", len(orders), "from", from, "to", to)
	return &Document{Filename: ExportFilename(from, to), ContentType: XLSXContentType, Content: buf.Bytes()}, nil
}

func (s *Service) finalizedBetween(ctx context.Context, session *auth.Session, from, to time.Time) ([]*workorder.WorkOrder, error) {
	if _, err := s.gate.Can(ctx, session, auth.ActionViewReports); err != nil {
		return nil, err
	}
	if from.After(to) {
		return nil, internal.NewValidationFieldError("from", "from must not be after to", internal.ErrCodeInvalidDateRange)
	}

	var all []*workorder.WorkOrder
	for offset := 0; ; offset += exportPageSize {
		page, err := s.orders.Query(ctx, session, workorder.QueryFilter{
			Status:        workorder.StatusFinalized,
			FinalizedFrom: &from,
			FinalizedTo:   &to,
			Limit:         exportPageSize,
			Offset:        offset,
		})
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < exportPageSize {
			return all, nil
		}
	}
}
