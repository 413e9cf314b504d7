// Package service реализует конвейер обработки заказа:
// проверка формы, расчёт показателей, отрисовка сводки и рассылка.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/flexylabel-order/internal/calc"
	"github.com/mmeshcher/flexylabel-order/internal/dispatch"
	"github.com/mmeshcher/flexylabel-order/internal/document"
	"github.com/mmeshcher/flexylabel-order/internal/metrics"
	"github.com/mmeshcher/flexylabel-order/internal/model"
	"github.com/mmeshcher/flexylabel-order/internal/validation"
)

// Renderer описывает формирование PDF-сводки, используемое сервисом.
type Renderer interface {
	RenderSummary(order model.OrderRecord, m model.DerivedMetrics) (*document.Document, error)
}

// Dispatcher описывает рассылку сводки, используемую сервисом.
type Dispatcher interface {
	Send(ctx context.Context, env dispatch.Envelope, doc *document.Document, design *model.Attachment, recipients []dispatch.Recipient) (*dispatch.Result, error)
}

// Options содержит бизнес-настройки конвейера.
type Options struct {
	ShopAddress    string
	NotifyCustomer bool
	RequireDesign  bool
	LeadDays       int
	Now            func() time.Time
}

// Service содержит бизнес-логику приёма заказов.
type Service struct {
	renderer   Renderer
	dispatcher Dispatcher
	opts       Options
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// NewService создаёт сервис с указанными рендерером, рассыльщиком и настройками.
func NewService(r Renderer, d Dispatcher, opts Options, logger *zap.Logger, m *metrics.Metrics) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		renderer:   r,
		dispatcher: d,
		opts:       opts,
		logger:     logger,
		metrics:    m,
	}
}

// Submit проводит одну отправку формы через весь конвейер.
// Ошибка проверки возвращается как *validation.Error, сбой рассылки как *dispatch.Error.
// Submission возвращается и при ошибке: в нём видно, на каком этапе обработка остановилась.
func (s *Service) Submit(ctx context.Context, form validation.Form) (*model.Submission, error) {
	sub := &model.Submission{Stage: model.StageIdle}

	s.advance(sub, model.StageValidating)
	order, warnings, err := validation.ValidateAndBuild(form, validation.Options{
		RequireDesign: s.opts.RequireDesign,
		LeadDays:      s.opts.LeadDays,
		Now:           s.opts.Now,
	})
	if err != nil {
		s.advance(sub, model.StageRejected)
		s.metrics.RecordSubmission(metrics.OutcomeRejected)
		s.logger.Info("order rejected", zap.String("reason", err.Error()))
		return sub, err
	}

	sub.Reference = order.Identity.Reference
	sub.Warnings = warnings
	s.advance(sub, model.StageValidated)

	sub.Metrics = calc.Derive(order.Specs)

	s.advance(sub, model.StageRendering)
	doc, err := s.renderer.RenderSummary(order, sub.Metrics)
	if err != nil {
		s.advance(sub, model.StageRenderFailed)
		s.metrics.RecordSubmission(metrics.OutcomeRenderFailed)
		s.logger.Error("render summary error", zap.Error(err), zap.String("reference", sub.Reference))
		return sub, fmt.Errorf("render summary: %w", err)
	}
	sub.Document = doc.Name
	sub.Sections = doc.Sections
	if doc.Lossy {
		sub.Warnings = append(sub.Warnings, document.WarningLossyText)
	}
	s.advance(sub, model.StageRendered)

	s.advance(sub, model.StageDispatching)
	env := dispatch.Envelope{
		Reference:  order.Identity.Reference,
		ClientName: order.Identity.ClientName,
		ReplyTo:    order.Identity.Email,
		Summary:    summaryText(order, sub.Metrics),
	}
	res, err := s.dispatcher.Send(ctx, env, doc, order.Design, s.recipients(order))
	if err != nil {
		var dErr *dispatch.Error
		if !errors.As(err, &dErr) {
			dErr = &dispatch.Error{Err: err}
		}
		sub.Recipients = addresses(dErr.Delivered)
		s.advance(sub, model.StageDispatchFailed)

		outcome := metrics.OutcomeDispatchFailed
		if dErr.Partial() {
			outcome = metrics.OutcomePartial
		}
		s.metrics.RecordSubmission(outcome)
		s.logger.Error("dispatch order error",
			zap.Error(dErr),
			zap.String("reference", sub.Reference),
			zap.Strings("delivered", sub.Recipients),
		)
		return sub, dErr
	}

	sub.Recipients = addresses(res.Delivered)
	s.advance(sub, model.StageSent)
	s.metrics.RecordSubmission(metrics.OutcomeSent)
	s.metrics.RecordLinearMeters(sub.Metrics.LinearMeters)
	s.logger.Info("order dispatched",
		zap.String("reference", sub.Reference),
		zap.Float64("linear_meters", sub.Metrics.LinearMeters),
		zap.Float64("area_m2", sub.Metrics.AreaM2),
		zap.Strings("recipients", sub.Recipients),
	)

	return sub, nil
}

// Estimate считает показатели по техническим параметрам без отправки заказа.
func (s *Service) Estimate(form validation.Form) (model.Specs, model.DerivedMetrics, error) {
	specs, err := validation.ValidateSpecs(form)
	if err != nil {
		return model.Specs{}, model.DerivedMetrics{}, err
	}
	return specs, calc.Derive(specs), nil
}

// Materials возвращает каталог материалов.
func (s *Service) Materials() []model.Material {
	return model.Materials()
}

func (s *Service) recipients(order model.OrderRecord) []dispatch.Recipient {
	out := []dispatch.Recipient{{Address: s.opts.ShopAddress, Role: dispatch.RoleShop}}
	if s.opts.NotifyCustomer {
		out = append(out, dispatch.Recipient{Address: order.Identity.Email, Role: dispatch.RoleCustomer})
	}
	return out
}

func (s *Service) advance(sub *model.Submission, stage model.Stage) {
	s.logger.Debug("submission stage",
		zap.String("from", string(sub.Stage)),
		zap.String("to", string(stage)),
		zap.String("reference", sub.Reference),
	)
	sub.Stage = stage
}

func addresses(rs []dispatch.Recipient) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.Address)
	}
	return out
}

func summaryText(order model.OrderRecord, m model.DerivedMetrics) string {
	g := order.Specs.Geometry
	w := order.Specs.Winding
	lines := []string{
		fmt.Sprintf("Client: %s <%s>", order.Identity.ClientName, order.Identity.Email),
		fmt.Sprintf("Label: %g x %g mm, %d uds, %s", g.WidthMM, g.LengthMM, g.Quantity, order.Specs.Material.Name),
		fmt.Sprintf("Winding: position %d (%s), mandril %d mm", w.Position, w.Orientation.Label(), w.MandrilMM),
		fmt.Sprintf("Linear meters: %.2f m", m.LinearMeters),
		fmt.Sprintf("Area: %.2f m²", m.AreaM2),
		fmt.Sprintf("Delivery date: %s", order.DeliveryDate.Format("2006-01-02")),
	}
	return strings.Join(lines, "\n")
}
