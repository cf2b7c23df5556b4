// internal/common/camunda/client.go
package camunda

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"seo-offers/internal/common/errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Client wraps the Zeebe gRPC client for deploying and starting the offer process.
type Client struct {
	client zbc.Client
	config *ClientConfig
}

// ClientConfig holds configuration for the Camunda/Zeebe client.
type ClientConfig struct {
	GatewayAddress         string
	UsePlaintextConnection bool
	ConnectionTimeout      time.Duration
	RequestTimeout         time.Duration
	RetryConfig            *RetryConfig
}

// RetryConfig defines retry behavior for transient failures.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryConfig retries three times between 1s and 10s.
var DefaultRetryConfig = &RetryConfig{
	MaxRetries: 3,
	BaseDelay:  1 * time.Second,
	MaxDelay:   10 * time.Second,
}

// NewClientWithConfig dials the gateway and verifies it with a topology request.
func NewClientWithConfig(config *ClientConfig) (*Client, error) {
	if config.RetryConfig == nil {
		config.RetryConfig = DefaultRetryConfig
	}

	zeebeClient, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         config.GatewayAddress,
		UsePlaintextConnection: config.UsePlaintextConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.ConnectionTimeout)
	defer cancel()

	if _, err := zeebeClient.NewTopologyCommand().Send(ctx); err != nil {
		zeebeClient.Close()
		return nil, fmt.Errorf("failed to connect to Zeebe broker at %s: %w", config.GatewayAddress, err)
	}

	return &Client{
		client: zeebeClient,
		config: config,
	}, nil
}

// GetClient returns the raw Zeebe client used to open job workers.
func (c *Client) GetClient() zbc.Client {
	return c.client
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// withRetry runs fn until it succeeds, fails with a non-transient gRPC status
// or exhausts the retry budget. The returned error is a StandardError.
func withRetry[T any](ctx context.Context, rc *RetryConfig, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	delay := rc.BaseDelay

	for attempt := 1; ; attempt++ {
		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		if !transient(err) || attempt > rc.MaxRetries {
			return zero, toStandardError(op, attempt, err)
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, errors.NewTimeoutError("zeebe", fmt.Errorf("%s interrupted after %d attempts: %w", op, attempt, ctx.Err()))
		}
		delay = min(delay*2, rc.MaxDelay)
	}
}

// transient reports gateway conditions worth another attempt.
func transient(err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return true
	}
	return false
}

func toStandardError(op string, attempts int, err error) error {
	wrapped := fmt.Errorf("zeebe %s (attempt %d): %w", op, attempts, err)
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewTimeoutError("zeebe", wrapped)
	}

	switch status.Code(err) {
	case codes.DeadlineExceeded:
		return errors.NewTimeoutError("zeebe", wrapped)
	case codes.NotFound:
		return errors.NewResourceNotFoundError("zeebe", wrapped.Error())
	case codes.AlreadyExists, codes.FailedPrecondition:
		return errors.NewBusinessRuleError(wrapped.Error(), status.Convert(err).Message())
	case codes.InvalidArgument:
		return errors.NewValidationError("", wrapped.Error())
	case codes.PermissionDenied, codes.Unauthenticated:
		return errors.NewUnauthorizedError(wrapped.Error())
	default:
		return errors.NewExternalServiceError("zeebe", wrapped)
	}
}

// HealthCheck sends a topology request to the gateway.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.ConnectionTimeout)
	defer cancel()

	_, err := c.client.NewTopologyCommand().Send(ctx)
	if err != nil {
		return fmt.Errorf("zeebe health check failed: %w", err)
	}
	return nil
}

// DeployResource deploys a BPMN file so the offer process can be started.
func (c *Client) DeployResource(ctx context.Context, path string) error {
	_, err := withRetry(ctx, c.config.RetryConfig, "deploy-resource", func(ctx context.Context) (*pb.DeployResourceResponse, error) {
		return c.client.NewDeployResourceCommand().AddResourceFile(path).Send(ctx)
	})
	return err
}

// StartProcess creates an instance of the latest version of processID.
func (c *Client) StartProcess(ctx context.Context, processID string, variables map[string]interface{}) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	cmd, err := c.client.NewCreateInstanceCommand().
		BPMNProcessId(processID).
		LatestVersion().
		VariablesFromMap(variables)
	if err != nil {
		return 0, errors.NewValidationError("variables", err.Error())
	}

	resp, err := withRetry(ctx, c.config.RetryConfig, "create-instance", cmd.Send)
	if err != nil {
		return 0, err
	}
	return resp.GetProcessInstanceKey(), nil
}
