package notifystaff

import (
	"context"

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
	TaskType   = "offer.staff.notify"
	ConfigName = "notify-staff"
)

type Alerter interface {
	Alert(ctx context.Context, ev models.OfferSubmitted) (string, error)
}

// Handler publishes a staff alert for a new offer request.
type Handler struct {
	runner  *offerjob.Runner
	alerter Alerter
}

type HandlerOptions struct {
	AppConfig    *config.Config
	CustomConfig *offerjob.Config
	Alerter      Alerter
	Logger       logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	cfg := offerjob.ConfigFor(opts.AppConfig, ConfigName)
	if opts.CustomConfig != nil {
		cfg = *opts.CustomConfig
	}

	h := &Handler{alerter: opts.Alerter}
	runner, err := offerjob.NewRunner(TaskType, cfg, h.Execute, map[string]interface{}{"staffNotified": false}, opts.Logger)
	if err != nil {
		return nil, err
	}
	h.runner = runner
	return h, nil
}

func (h *Handler) Execute(ctx context.Context, ev models.OfferSubmitted) (map[string]interface{}, error) {
	msgID, err := h.alerter.Alert(ctx, ev)
	if err != nil {
		return nil, err
	}

	vars := map[string]interface{}{"staffNotified": msgID != ""}
	if msgID != "" {
		vars["staffAlertMessageId"] = msgID
	}
	return vars, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.runner.Handle(client, job)
}

func (h *Handler) Register(client zbc.Client) *camunda.CamundaWorker {
	return h.runner.Register(client)
}

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
