// Package offerjob runs the Zeebe job lifecycle shared by the offer-submitted
// workers: variable parsing, completion, failure and metrics.
package offerjob

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"seo-offers/internal/common/camunda"
	"seo-offers/internal/common/errors"
	"seo-offers/internal/common/logger"
	"seo-offers/internal/common/metrics"
	"seo-offers/internal/common/validation"
	"seo-offers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// ExecuteFunc performs the task for one event and returns the variables to
// complete the job with.
type ExecuteFunc func(ctx context.Context, ev models.OfferSubmitted) (map[string]interface{}, error)

// Recorder receives per-job OpenTelemetry measurements.
type Recorder interface {
	RecordJobProcessed(ctx context.Context, taskType, status string)
	RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string)
}

// Runner adapts an ExecuteFunc to a Zeebe job handler.
type Runner struct {
	taskType    string
	config      Config
	logger      logger.Logger
	execute     ExecuteFunc
	skippedVars map[string]interface{}
	recorder    Recorder
}

// NewRunner validates cfg. skippedVars complete jobs while the worker is
// disabled.
func NewRunner(taskType string, cfg Config, execute ExecuteFunc, skippedVars map[string]interface{}, log logger.Logger) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", taskType, err)
	}
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	return &Runner{
		taskType:    taskType,
		config:      cfg,
		logger:      log.WithFields(map[string]interface{}{"worker": taskType}),
		execute:     execute,
		skippedVars: skippedVars,
	}, nil
}

func (r *Runner) TaskType() string { return r.taskType }

func (r *Runner) Config() Config { return r.config }

// Observe sends job outcomes to rec in addition to the Prometheus counters.
func (r *Runner) Observe(rec Recorder) { r.recorder = rec }

func (r *Runner) record(ctx context.Context, status string, elapsed time.Duration) {
	if r.recorder == nil {
		return
	}
	r.recorder.RecordJobProcessed(ctx, r.taskType, status)
	r.recorder.RecordJobDuration(ctx, r.taskType, elapsed, status)
}

func (r *Runner) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(r.taskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(r.taskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), r.config.Timeout)
	defer cancel()

	r.logger.Info("Processing offer job", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	if !r.config.Enabled {
		r.logger.Info("Worker disabled by configuration", nil)
		r.completeJob(ctx, client, job, r.skippedVars)
		return
	}

	ev, err := ParseEvent(job)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(r.taskType, string(errors.CodeOf(err))).Inc()
		r.failJob(ctx, client, job, err)
		r.record(ctx, "failed", time.Since(startTime))
		return
	}

	output, err := r.execute(ctx, ev)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(r.taskType, string(errors.CodeOf(err))).Inc()
		r.failJob(ctx, client, job, err)
		r.record(ctx, "failed", time.Since(startTime))
		return
	}

	r.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(r.taskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(r.taskType).Observe(time.Since(startTime).Seconds())
	r.record(ctx, "completed", time.Since(startTime))
}

// Register opens a job subscription. A disabled worker still subscribes so
// its service task completes with the skipped variables instead of stalling
// the process.
func (r *Runner) Register(client zbc.Client) *camunda.CamundaWorker {
	if !r.config.Enabled {
		r.logger.Info("Worker is disabled, jobs complete with skipped variables", nil)
	}
	return camunda.NewWorker(client, r.taskType, camunda.WorkerOptions{
		MaxJobsActive: r.config.MaxJobsActive,
		Timeout:       r.config.Timeout,
	}, r.Handle, r.logger)
}

// ParseEvent validates the job variables against EventSchema and decodes them.
func ParseEvent(job entities.Job) (models.OfferSubmitted, error) {
	var ev models.OfferSubmitted

	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return ev, &errors.StandardError{
			Code:      "INPUT_PARSING_FAILED",
			Message:   "Failed to parse job variables",
			Details:   err.Error(),
			Retryable: false,
			Timestamp: time.Now().UTC(),
		}
	}

	result, err := validation.Validate(variables, EventSchema())
	if err != nil {
		return ev, errors.NewValidationError("variables", err.Error())
	}
	if !result.Valid {
		se := errors.NewValidationError(result.Errors[0].Field, "Input validation failed")
		se.Details = fmt.Sprintf("Validation errors: %v", result.GetErrorMessages())
		return ev, se
	}

	if err := json.Unmarshal([]byte(job.GetVariables()), &ev); err != nil {
		return ev, errors.NewValidationError("variables", err.Error())
	}
	return ev, nil
}

// EventSchema describes the process variables set when an offer process
// instance starts.
func EventSchema() validation.JSONSchema {
	packages := make([]interface{}, len(models.PackageTiers))
	for i, p := range models.PackageTiers {
		packages[i] = string(p)
	}

	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"projectId":     {Type: "string", MinLength: validation.Len(1)},
			"offerId":       {Type: "string", MinLength: validation.Len(1)},
			"customerEmail": {Type: "string", Format: "email"},
			"customerPhone": {Type: "string"},
			"domain":        {Type: "string", MinLength: validation.Len(1)},
			"industry":      {Type: "string"},
			"cities":        {Type: "array", Items: &validation.Property{Type: "string"}},
			"keywords":      {Type: "array", Items: &validation.Property{Type: "string"}},
			"package":       {Type: "string", Enum: packages},
			"estimate":      {Type: "object"},
		},
		Required: []string{"projectId", "offerId", "customerEmail", "domain", "package"},
	}
}

func (r *Runner) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, variables map[string]interface{}) {
	if variables == nil {
		variables = map[string]interface{}{}
	}

	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromMap(variables)
	if err != nil {
		r.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}

	if _, err := request.Send(ctx); err != nil {
		r.logger.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}

	r.logger.Info("Job completed", map[string]interface{}{"jobKey": job.GetKey()})
}

func (r *Runner) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr, ok := errors.AsStandard(err)
	if !ok {
		stdErr = &errors.StandardError{
			Code:      errors.ErrCodeInternal,
			Message:   "Offer job failed",
			Details:   err.Error(),
			Retryable: true,
			Timestamp: time.Now().UTC(),
		}
	}
	bpmnErr := errors.ConvertToBPMNError(stdErr)

	// Never hand back more retries than the job has left.
	retries := bpmnErr.Retries
	if remaining := int(job.GetRetries()) - 1; retries > remaining {
		retries = remaining
	}
	if retries < 0 {
		retries = 0
	}

	r.logger.Error("Offer job failed", map[string]interface{}{
		"jobKey":       job.GetKey(),
		"errorCode":    bpmnErr.Code,
		"errorMessage": bpmnErr.Message,
		"details":      bpmnErr.Details,
		"retryable":    bpmnErr.Retryable,
		"retries":      retries,
		"category":     errors.GetErrorCategory(stdErr.Code),
	})

	failCmd := client.NewFailJobCommand().
		JobKey(job.GetKey()).
		Retries(int32(retries)).
		ErrorMessage(fmt.Sprintf("[%s] %s", bpmnErr.Code, bpmnErr.Message))

	var finalCmd interface {
		Send(context.Context) (*pb.FailJobResponse, error)
	} = failCmd
	if varCmd, varErr := failCmd.VariablesFromMap(bpmnErr.ToErrorVariables()); varErr == nil {
		finalCmd = varCmd
	} else {
		r.logger.Error("Failed to set error variables, sending without them", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  varErr.Error(),
		})
	}

	if _, failErr := finalCmd.Send(ctx); failErr != nil {
		r.logger.Error("Failed to send job failure to Camunda", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  failErr.Error(),
		})
	}
}
