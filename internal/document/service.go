package document

import (
	"context"

	"seo-offers/internal/common/errors"
	"seo-offers/internal/common/metrics"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Service renders offers and optionally exports them.
type Service struct {
	renderer *Renderer
	exporter Exporter
	tracer   trace.Tracer
}

// NewService wires a renderer and exporter. tracer may be nil.
func NewService(renderer *Renderer, exporter Exporter, tracer trace.Tracer) *Service {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("document")
	}
	return &Service{renderer: renderer, exporter: exporter, tracer: tracer}
}

func (s *Service) HTML(data OfferData) ([]byte, error) {
	out, err := s.renderer.Render(data)
	if err != nil {
		metrics.DocumentsRendered.WithLabelValues("html", "error").Inc()
		return nil, errors.NewDocumentRenderFailedError(err)
	}
	metrics.DocumentsRendered.WithLabelValues("html", "ok").Inc()
	return out, nil
}

// PDF renders and exports the offer, returning the bytes and download name.
func (s *Service) PDF(ctx context.Context, data OfferData) ([]byte, string, error) {
	ctx, span := s.tracer.Start(ctx, "document.pdf", trace.WithAttributes(
		attribute.String("offer.domain", data.Domain),
		attribute.String("offer.package", data.Package),
	))
	defer span.End()

	html, err := s.renderer.Render(data)
	if err != nil {
		span.RecordError(err)
		metrics.DocumentsRendered.WithLabelValues("pdf", "error").Inc()
		return nil, "", errors.NewDocumentRenderFailedError(err)
	}

	pdf, err := s.exporter.Export(ctx, html)
	if err != nil {
		span.RecordError(err)
		metrics.DocumentsRendered.WithLabelValues("pdf", "error").Inc()
		return nil, "", errors.NewDocumentRenderFailedError(err)
	}

	metrics.DocumentsRendered.WithLabelValues("pdf", "ok").Inc()
	return pdf, FileName(data.Domain, data.Date), nil
}
