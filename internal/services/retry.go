package services

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/url"
	"time"

	"github.com/AlexandruAndrita/webhippocrates-document-ocr-webapp/internal/metrics"
	"github.com/AlexandruAndrita/webhippocrates-document-ocr-webapp/internal/models"
	"google.golang.org/api/googleapi"
)

// RetryPolicy is a fixed-delay retry budget.
type RetryPolicy struct {
	MaxRetries     int
	Delay          time.Duration
	AttemptTimeout time.Duration
}

// Attempts is the total number of pipeline invocations allowed.
func (p RetryPolicy) Attempts() int { return p.MaxRetries + 1 }

// DocumentBudget is the longest one document can take across all attempts
// and delays.
func (p RetryPolicy) DocumentBudget() time.Duration {
	return p.AttemptTimeout*time.Duration(p.Attempts()) + p.Delay*time.Duration(p.MaxRetries)
}

// ClassifyError maps an attempt error to its failure kind.
func ClassifyError(err error) models.FailureKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return models.KindNetworkTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return models.KindNetworkTimeout
	}

	var (
		urlErr    *url.Error
		statusErr *StatusError
		apiErr    *googleapi.Error
	)
	if errors.As(err, &urlErr) || errors.As(err, &netErr) || errors.As(err, &statusErr) || errors.As(err, &apiErr) {
		return models.KindNetworkError
	}
	return models.KindProcessingError
}

func describeFailure(kind models.FailureKind, err error) string {
	switch kind {
	case models.KindNetworkTimeout:
		return "Network timeout: " + err.Error()
	case models.KindNetworkError:
		return "Network error: " + err.Error()
	default:
		return "Processing error: " + err.Error()
	}
}

// RetryController invokes a DocumentProcessor until it succeeds or the
// policy's attempts run out. Every failure kind is retried the same way.
type RetryController struct {
	processor DocumentProcessor
	policy    RetryPolicy
	logger    *slog.Logger
}

func NewRetryController(processor DocumentProcessor, policy RetryPolicy, logger *slog.Logger) *RetryController {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryController{processor: processor, policy: policy, logger: logger}
}

// Process returns the first successful result, or a terminal failure carrying
// the last error once all attempts failed. If ctx ends during the retry delay
// the document is abandoned with a non-final failure.
func (c *RetryController) Process(ctx context.Context, ref string) models.DocumentResult {
	logCtx := c.logger.With("document", DocumentName(ref))
	start := time.Now()
	attempts := c.policy.Attempts()

	var (
		lastErr  string
		lastKind models.FailureKind
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			logCtx.Warn("Retrying document.", "attempt", attempt, "maxAttempts", attempts, "delay", c.policy.Delay.String())
			select {
			case <-time.After(c.policy.Delay):
			case <-ctx.Done():
				kind := ClassifyError(ctx.Err())
				logCtx.Warn("Context ended during retry delay. Abandoning document.", "error", ctx.Err())
				return models.NewFailure(kind, describeFailure(kind, ctx.Err()))
			}
		}

		result, err := c.attempt(ctx, ref)
		if err == nil {
			logCtx.Info("Document processed.", "attempt", attempt, "duration", time.Since(start).String())
			return result
		}

		lastKind = ClassifyError(err)
		lastErr = describeFailure(lastKind, err)
		metrics.AttemptFailures.WithLabelValues(string(lastKind)).Inc()
		logCtx.Warn("Attempt failed.", "attempt", attempt, "kind", lastKind, "error", err)
	}

	metrics.TerminalFailures.Inc()
	logCtx.Error("All attempts failed.", "attempts", attempts, "duration", time.Since(start).String(), "error", lastErr)
	return models.TerminalFailure(lastKind, lastErr, attempts)
}

func (c *RetryController) attempt(ctx context.Context, ref string) (models.DocumentResult, error) {
	metrics.DocumentAttempts.Inc()
	if c.policy.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.policy.AttemptTimeout)
		defer cancel()
	}
	return c.processor.Process(ctx, ref)
}
