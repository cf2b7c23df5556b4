// Package submission turns a reviewed project request into a stored project
// and offer, and announces the result.
package submission

import (
	"context"
	stderrors "errors"
	"sort"
	"time"

	"seo-offers/internal/common/errors"
	"seo-offers/internal/common/logger"
	"seo-offers/internal/common/metrics"
	"seo-offers/internal/models"
	"seo-offers/internal/offer"

	ozzo "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Authenticator resolves a bearer token to a user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (models.User, error)
}

// Store persists projects and offers.
type Store interface {
	CreateProject(ctx context.Context, p models.Project) (models.Project, error)
	CreateOffer(ctx context.Context, o models.Offer) (models.Offer, error)
}

// Notifier receives an event after both writes have succeeded.
type Notifier interface {
	OfferSubmitted(ctx context.Context, ev models.OfferSubmitted) error
}

// Gateway is the only writer of new projects and offers.
type Gateway struct {
	auth     Authenticator
	store    Store
	notifier Notifier
	logger   logger.Logger
	tracer   trace.Tracer
	now      func() time.Time
	newID    func() string
}

type Option func(*Gateway)

func WithTracer(t trace.Tracer) Option {
	return func(g *Gateway) { g.tracer = t }
}

func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

// WithIDGenerator replaces uuid.NewString for record ids.
func WithIDGenerator(fn func() string) Option {
	return func(g *Gateway) { g.newID = fn }
}

// NewGateway wires the gateway. notifier may be nil, in which case results
// always report notification_queued=false.
func NewGateway(auth Authenticator, store Store, notifier Notifier, log logger.Logger, opts ...Option) *Gateway {
	g := &Gateway{
		auth:     auth,
		store:    store,
		notifier: notifier,
		logger:   logger.Component(log, "submission"),
		tracer:   noop.NewTracerProvider().Tracer("submission"),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Submit persists a wizard session. The estimate on the state is stored as is.
func (g *Gateway) Submit(ctx context.Context, token string, st models.WizardState) (models.SubmissionResult, error) {
	if st.Estimate == nil {
		return models.SubmissionResult{}, errors.NewValidationError("estimate", "estimate has not been calculated")
	}
	return g.Create(ctx, token, FromWizard(st))
}

// Create authenticates the caller, validates the request and writes the
// project then the offer.
func (g *Gateway) Create(ctx context.Context, token string, req Request) (models.SubmissionResult, error) {
	ctx, span := g.tracer.Start(ctx, "submission.create")
	defer span.End()

	res, err := g.create(ctx, token, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.Submissions.WithLabelValues(outcome(err)).Inc()
		return res, err
	}

	span.SetAttributes(
		attribute.String("project.id", res.ProjectID),
		attribute.String("offer.id", res.OfferID),
		attribute.Bool("notification.queued", res.NotificationQueued),
	)
	metrics.Submissions.WithLabelValues("succeeded").Inc()
	return res, nil
}

func (g *Gateway) create(ctx context.Context, token string, req Request) (models.SubmissionResult, error) {
	user, err := g.auth.Authenticate(ctx, token)
	if err != nil {
		return models.SubmissionResult{}, err
	}

	if err := req.Validate(); err != nil {
		return models.SubmissionResult{}, toValidationError(err)
	}

	now := g.now().UTC()
	project, err := g.store.CreateProject(ctx, models.Project{
		ID:               g.newID(),
		OwnerUserID:      user.ID,
		DomainURL:        req.DomainURL,
		Industry:         req.Industry,
		Cities:           nonNil(req.Cities),
		SelectedKeywords: req.SelectedKeywords,
		SelectedPackage:  req.SelectedPackage,
		Status:           models.ProjectSubmitted,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
	if err != nil {
		g.logger.Error("project insert failed", map[string]interface{}{"userId": user.ID, "error": err})
		return models.SubmissionResult{}, err
	}

	stored, err := g.store.CreateOffer(ctx, models.Offer{
		ID:              g.newID(),
		ProjectID:       project.ID,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		CustomerMessage: req.CustomerMessage,
		EstimatedPages:  req.Estimate.PagesNeeded,
		EstimatedLinks:  req.Estimate.BacklinksNeeded,
		EstimatedMonths: req.Estimate.MonthsNeeded,
		MonthlyPrice:    offer.PriceOf(req.SelectedPackage),
		Package:         req.SelectedPackage,
		Status:          models.OfferPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		metrics.PartialWrites.Inc()
		g.logger.Error("offer insert failed after project insert", map[string]interface{}{
			"projectId": project.ID,
			"error":     err,
		})
		return models.SubmissionResult{ProjectID: project.ID}, &PartialWriteError{ProjectID: project.ID, Cause: err}
	}

	res := models.SubmissionResult{ProjectID: project.ID, OfferID: stored.ID}
	res.NotificationQueued = g.notify(ctx, models.OfferSubmitted{
		ProjectID:       project.ID,
		OfferID:         stored.ID,
		OwnerID:         user.ID,
		CustomerEmail:   stored.CustomerEmail,
		CustomerPhone:   stored.CustomerPhone,
		CustomerMessage: stored.CustomerMessage,
		Domain:          project.DomainURL,
		Industry:        project.Industry,
		Cities:          project.Cities,
		Keywords:        project.SelectedKeywords,
		Package:         project.SelectedPackage,
		Estimate:        stored.Estimate(),
		SubmittedAt:     now,
	})

	g.logger.Info("offer submitted", map[string]interface{}{
		"projectId":          res.ProjectID,
		"offerId":            res.OfferID,
		"package":            string(req.SelectedPackage),
		"notificationQueued": res.NotificationQueued,
	})
	return res, nil
}

// notify never fails the submission.
func (g *Gateway) notify(ctx context.Context, ev models.OfferSubmitted) bool {
	if g.notifier == nil {
		return false
	}
	if err := g.notifier.OfferSubmitted(ctx, ev); err != nil {
		g.logger.Warn("offer notification not queued", map[string]interface{}{
			"offerId": ev.OfferID,
			"error":   err.Error(),
		})
		return false
	}
	return true
}

func outcome(err error) string {
	var pwe *PartialWriteError
	switch {
	case stderrors.As(err, &pwe):
		return "partial_write"
	case errors.HasCode(err, errors.ErrCodeValidationFailed):
		return "invalid"
	case errors.HasCode(err, errors.ErrCodeUnauthorized):
		return "unauthorized"
	default:
		return "failed"
	}
}

// toValidationError reduces ozzo field errors to the first field in name order.
func toValidationError(err error) error {
	var fieldErrs ozzo.Errors
	if !stderrors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return errors.NewValidationError("", err.Error())
	}

	fields := make([]string, 0, len(fieldErrs))
	for f := range fieldErrs {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	first := fields[0]
	return errors.NewValidationError(first, fieldErrs[first].Error())
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
