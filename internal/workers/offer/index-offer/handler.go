package indexoffer

import (
	"context"

	"seo-offers/internal/common/camunda"
	"seo-offers/internal/common/config"
	"seo-offers/internal/common/logger"
	"seo-offers/internal/models"
	"seo-offers/internal/notify"
	"seo-offers/internal/search"
	"seo-offers/internal/workers/offerjob"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

const (
	TaskType   = "offer.search.index"
	ConfigName = "index-offer"
)

type Indexer interface {
	Index(ctx context.Context, doc search.OfferDocument) error
}

// Handler adds a submitted offer to the admin search index.
type Handler struct {
	runner  *offerjob.Runner
	indexer Indexer
}

type HandlerOptions struct {
	AppConfig    *config.Config
	CustomConfig *offerjob.Config
	Indexer      Indexer
	Logger       logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	cfg := offerjob.ConfigFor(opts.AppConfig, ConfigName)
	if opts.CustomConfig != nil {
		cfg = *opts.CustomConfig
	}
	// Without a search cluster the task still has to complete.
	if opts.Indexer == nil {
		cfg.Enabled = false
	}

	h := &Handler{indexer: opts.Indexer}
	runner, err := offerjob.NewRunner(TaskType, cfg, h.Execute, map[string]interface{}{"offerIndexed": false}, opts.Logger)
	if err != nil {
		return nil, err
	}
	h.runner = runner
	return h, nil
}

func (h *Handler) Execute(ctx context.Context, ev models.OfferSubmitted) (map[string]interface{}, error) {
	if h.indexer == nil {
		return map[string]interface{}{"offerIndexed": false}, nil
	}
	if err := h.indexer.Index(ctx, search.DocumentFromEvent(ev)); err != nil {
		return nil, err
	}
	return map[string]interface{}{"offerIndexed": true}, nil
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
