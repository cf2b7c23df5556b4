package sendofferemail

import (
	"context"
	"time"

	"seo-offers/internal/common/camunda"
	"seo-offers/internal/common/config"
	"seo-offers/internal/common/logger"
	"seo-offers/internal/models"
	"seo-offers/internal/notify"
	"seo-offers/internal/workers/offerjob"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

const (
	TaskType   = "offer.email.send"
	ConfigName = "send-offer-email"
)

type Mailer interface {
	Enabled() bool
	SendTyped(ctx context.Context, t notify.EmailType, to, domain, pkg string) (string, error)
}

type OfferStore interface {
	MarkOfferSent(ctx context.Context, id string, at time.Time) error
}

// Handler emails the customer their offer and stamps the offer as sent.
type Handler struct {
	runner *offerjob.Runner
	mailer Mailer
	offers OfferStore
	logger logger.Logger
	now    func() time.Time
}

type HandlerOptions struct {
	AppConfig    *config.Config
	CustomConfig *offerjob.Config
	Mailer       Mailer
	Offers       OfferStore
	Logger       logger.Logger
	Now          func() time.Time
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	cfg := offerjob.ConfigFor(opts.AppConfig, ConfigName)
	if opts.CustomConfig != nil {
		cfg = *opts.CustomConfig
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}

	h := &Handler{
		mailer: opts.Mailer,
		offers: opts.Offers,
		logger: log.WithFields(map[string]interface{}{"worker": TaskType}),
		now:    opts.Now,
	}
	if h.now == nil {
		h.now = func() time.Time { return time.Now().UTC() }
	}

	runner, err := offerjob.NewRunner(TaskType, cfg, h.Execute, map[string]interface{}{"offerEmailSent": false}, log)
	if err != nil {
		return nil, err
	}
	h.runner = runner
	return h, nil
}

// Execute sends the offer email. A failure to record the sent time is logged
// only, so a retried job never emails the customer twice.
func (h *Handler) Execute(ctx context.Context, ev models.OfferSubmitted) (map[string]interface{}, error) {
	if !h.mailer.Enabled() {
		h.logger.Info("email disabled, offer email skipped", map[string]interface{}{"offerId": ev.OfferID})
		return map[string]interface{}{"offerEmailSent": false}, nil
	}

	msgID, err := h.mailer.SendTyped(ctx, notify.EmailOffer, ev.CustomerEmail, ev.Domain, string(ev.Package))
	if err != nil {
		return nil, err
	}

	if err := h.offers.MarkOfferSent(ctx, ev.OfferID, h.now()); err != nil {
		h.logger.Warn("offer email sent but not recorded", map[string]interface{}{
			"offerId": ev.OfferID,
			"error":   err.Error(),
		})
	}

	return map[string]interface{}{
		"offerEmailSent":      true,
		"offerEmailMessageId": msgID,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.runner.Handle(client, job)
}

func (h *Handler) Register(client zbc.Client) *camunda.CamundaWorker {
	return h.runner.Register(client)
}

// Action runs the handler from the in-process dispatcher.
func (h *Handler) Action() notify.Action {
	return notify.Action{Name: TaskType, Run: func(ctx context.Context, ev models.OfferSubmitted) error {
		_, err := h.Execute(ctx, ev)
		return err
	}}
}

// Observe forwards job outcomes to rec.
func (h *Handler) Observe(rec offerjob.Recorder) {
	h.runner.Observe(rec)
}

func (h *Handler) IsEnabled() bool {
	return h.runner.Config().Enabled
}
