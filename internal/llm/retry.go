package llm

import (
	"context"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// RetryPolicy controls exponential backoff for retryable responses
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt
	MaxRetries int
	// BaseDelay doubles on each retry
	BaseDelay time.Duration
}

// DefaultRetryPolicy retries three times starting at half a second
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, BaseDelay: 500 * time.Millisecond}
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt))) * p.BaseDelay
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// do sends req and retries on 429 and 5xx. After exhausting retries the last
// response is returned for the caller to inspect. Transport errors are not
// retried.
func (p RetryPolicy) do(ctx context.Context, client *http.Client, req *http.Request, log logrus.FieldLogger) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		attemptReq := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			attemptReq.Body = body
		}

		resp, err := client.Do(attemptReq)
		if err != nil {
			return nil, err
		}
		if !retryable(resp.StatusCode) || attempt >= p.MaxRetries {
			return resp, nil
		}

		io.Copy(io.Discard, resp.Body) //nolint:errcheck // draining before retry
		resp.Body.Close()

		wait := p.backoff(attempt)
		log.WithFields(logrus.Fields{
			"status":  resp.StatusCode,
			"attempt": attempt + 1,
			"backoff": wait,
		}).Debug("retrying inference request")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}
