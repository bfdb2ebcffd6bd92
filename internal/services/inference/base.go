package inference

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	xhttp "FerryCast/pkg/http"
)

// RetryPolicy bounds how a JSON POST is retried.
type RetryPolicy struct {
	MaxAttempts    int
	AttemptTimeout time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// HTTPServiceBase centralizes client construction and JSON POST handling for model servers.
type HTTPServiceBase struct {
	client *xhttp.Client
	policy RetryPolicy
}

// NewHTTPServiceBase builds an HTTP client whose per-request timeout is the attempt timeout.
func NewHTTPServiceBase(policy RetryPolicy, opts ...xhttp.ClientOption) *HTTPServiceBase {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.AttemptTimeout <= 0 {
		policy.AttemptTimeout = 5 * time.Second
	}
	if policy.InitialBackoff <= 0 {
		policy.InitialBackoff = 100 * time.Millisecond
	}
	if policy.MaxBackoff < policy.InitialBackoff {
		policy.MaxBackoff = policy.InitialBackoff
	}
	opts = append([]xhttp.ClientOption{xhttp.WithTimeout(policy.AttemptTimeout)}, opts...)
	return &HTTPServiceBase{
		client: xhttp.NewClient(opts...),
		policy: policy,
	}
}

// PostJSON posts payload to url once and decodes the JSON answer into dest.
func (b *HTTPServiceBase) PostJSON(ctx context.Context, url string, payload, dest interface{}) error {
	if b.client == nil {
		return fmt.Errorf("model server http client not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, b.policy.AttemptTimeout)
	defer cancel()

	err := b.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    url,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: payload,
	}, dest)
	if err != nil {
		return fmt.Errorf("post %s: %w", url, err)
	}
	return nil
}

// PostJSONWithRetry retries PostJSON with exponential backoff while the failure is
// transient: transport errors, attempt timeouts and 5xx/429 answers. It stops at
// once on any other answer and when ctx is done. attempts is the number of
// requests sent.
func (b *HTTPServiceBase) PostJSONWithRetry(ctx context.Context, url string, payload, dest interface{}) (attempts int, err error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = b.policy.InitialBackoff
	bo.MaxInterval = b.policy.MaxBackoff

	op := func() (struct{}, error) {
		attempts++
		err := b.PostJSON(ctx, url, payload, dest)
		if err != nil && (ctx.Err() != nil || !isTransient(err)) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}

	_, err = backoff.Retry(ctx, op,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(b.policy.MaxAttempts)),
	)
	return attempts, err
}

func isTransient(err error) bool {
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return !errors.Is(err, xhttp.ErrDecode)
}
