package crmleadcreate

import (
	"context"
	"fmt"
	"strings"

	"seo-offers/internal/common/camunda"
	"seo-offers/internal/common/config"
	"seo-offers/internal/common/errors"
	"seo-offers/internal/common/logger"
	"seo-offers/internal/common/zoho"
	"seo-offers/internal/models"
	"seo-offers/internal/notify"
	"seo-offers/internal/workers/offerjob"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

const (
	TaskType   = "crm.lead.create"
	ConfigName = "crm-lead-create"

	defaultLeadSource = "SEO Offer Wizard"
)

type CRM interface {
	SearchLeads(ctx context.Context, email string) ([]zoho.Lead, error)
	CreateLead(ctx context.Context, lead *zoho.Lead) (string, error)
}

// Handler records the customer as a Zoho lead, reusing an existing lead with
// the same email.
type Handler struct {
	runner     *offerjob.Runner
	crm        CRM
	leadSource string
	logger     logger.Logger
}

type HandlerOptions struct {
	AppConfig    *config.Config
	CustomConfig *offerjob.Config
	CRM          CRM
	LeadSource   string
	Logger       logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	cfg := offerjob.ConfigFor(opts.AppConfig, ConfigName)
	if opts.CustomConfig != nil {
		cfg = *opts.CustomConfig
	}

	leadSource := opts.LeadSource
	if leadSource == "" && opts.AppConfig != nil {
		leadSource = opts.AppConfig.Integrations.Zoho.LeadSource
	}
	if leadSource == "" {
		leadSource = defaultLeadSource
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	h := &Handler{
		crm:        opts.CRM,
		leadSource: leadSource,
		logger:     log.WithFields(map[string]interface{}{"worker": TaskType}),
	}
	runner, err := offerjob.NewRunner(TaskType, cfg, h.Execute, map[string]interface{}{"crmLeadCreated": false}, log)
	if err != nil {
		return nil, err
	}
	h.runner = runner
	return h, nil
}

func (h *Handler) Execute(ctx context.Context, ev models.OfferSubmitted) (map[string]interface{}, error) {
	if h.crm == nil {
		return map[string]interface{}{"crmLeadCreated": false}, nil
	}

	existing, err := h.crm.SearchLeads(ctx, ev.CustomerEmail)
	if err != nil {
		return nil, errors.NewCRMError(err)
	}
	if len(existing) > 0 && existing[0].ID != "" {
		h.logger.Info("lead already exists", map[string]interface{}{"offerId": ev.OfferID, "leadId": existing[0].ID})
		return map[string]interface{}{"crmLeadCreated": false, "crmLeadId": existing[0].ID}, nil
	}

	id, err := h.crm.CreateLead(ctx, LeadFromEvent(ev, h.leadSource))
	if err != nil {
		return nil, errors.NewCRMError(err)
	}

	h.logger.Info("lead created", map[string]interface{}{"offerId": ev.OfferID, "leadId": id})
	return map[string]interface{}{"crmLeadCreated": true, "crmLeadId": id}, nil
}

// LeadFromEvent names the lead after the customer's domain, since the
// wizard collects no personal name.
func LeadFromEvent(ev models.OfferSubmitted, source string) *zoho.Lead {
	company := strings.TrimPrefix(strings.TrimPrefix(ev.Domain, "https://"), "http://")
	company = strings.TrimPrefix(strings.TrimSuffix(company, "/"), "www.")

	desc := fmt.Sprintf("Paket: %s (%d kr/mån)\nStäder: %s\nSökord: %s",
		strings.ToUpper(string(ev.Package)),
		ev.Estimate.MonthlyPrice,
		strings.Join(ev.Cities, ", "),
		strings.Join(ev.Keywords, ", "),
	)
	if ev.CustomerMessage != "" {
		desc += "\nMeddelande: " + ev.CustomerMessage
	}

	return &zoho.Lead{
		Email:       ev.CustomerEmail,
		LastName:    company,
		Company:     company,
		Phone:       ev.CustomerPhone,
		Website:     ev.Domain,
		Industry:    ev.Industry,
		Description: desc,
		Source:      source,
	}
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
