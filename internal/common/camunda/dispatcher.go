package camunda

import (
	"context"
	"fmt"

	"seo-offers/internal/common/logger"
	"seo-offers/internal/models"
)

// InstanceStarter starts a BPMN process instance.
type InstanceStarter interface {
	StartProcess(ctx context.Context, processID string, variables map[string]interface{}) (int64, error)
}

// OfferProcessDispatcher hands submitted offers to the offer-submitted process,
// whose service tasks send the customer email, create the CRM lead and index
// the offer.
type OfferProcessDispatcher struct {
	starter   InstanceStarter
	processID string
	logger    logger.Logger
}

func NewOfferProcessDispatcher(starter InstanceStarter, processID string, log logger.Logger) *OfferProcessDispatcher {
	return &OfferProcessDispatcher{
		starter:   starter,
		processID: processID,
		logger:    logger.Component(log, "offer-dispatcher"),
	}
}

// OfferSubmitted starts one process instance per event.
func (d *OfferProcessDispatcher) OfferSubmitted(ctx context.Context, event models.OfferSubmitted) error {
	vars, err := event.ToVariables()
	if err != nil {
		return fmt.Errorf("encode process variables: %w", err)
	}

	key, err := d.starter.StartProcess(ctx, d.processID, vars)
	if err != nil {
		return fmt.Errorf("start %s: %w", d.processID, err)
	}

	d.logger.Info("offer process started", map[string]interface{}{
		"processId":          d.processID,
		"processInstanceKey": key,
		"offerId":            event.OfferID,
	})
	return nil
}
