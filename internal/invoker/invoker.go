package invoker

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/angeloszaimis/service-fabric/internal/registry"
)

// Request is the opaque payload addressed to a resolved instance.
type Request struct {
	Method string
	Path   string
	Body   []byte
}

// Outcome classifies a single invocation for the circuit breaker. The breaker
// reasons about reachability only; business-level errors carried inside a 2xx
// response body leave Succeeded true.
type Outcome struct {
	Succeeded  bool
	TimedOut   bool
	Latency    time.Duration
	StatusCode int
	Body       []byte
	Err        error
}

type Invoker interface {
	Invoke(ctx context.Context, instance registry.ServiceInstance, req Request) Outcome
}

// HTTPInvoker performs one synchronous HTTP request per invocation with a
// hard per-call timeout.
type HTTPInvoker struct {
	client  *http.Client
	timeout time.Duration
}

func NewHTTPInvoker(timeout time.Duration) *HTTPInvoker {
	return &HTTPInvoker{
		client:  &http.Client{},
		timeout: timeout,
	}
}

// Invoke sends the request to the instance and classifies the result. The
// caller never waits longer than the configured timeout; a response arriving
// at or after the deadline counts as a timeout and is discarded.
func (iv *HTTPInvoker) Invoke(ctx context.Context, instance registry.ServiceInstance, req Request) Outcome {
	callCtx, cancel := context.WithTimeout(ctx, iv.timeout)
	defer cancel()

	start := time.Now()

	var bodyReader io.Reader
	if len(req.Body) > 0 {
		bodyReader = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(callCtx, req.Method, instance.BaseURL()+req.Path, bodyReader)
	if err != nil {
		return Outcome{Latency: time.Since(start), Err: err}
	}
	if len(req.Body) > 0 {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	res, err := iv.client.Do(httpReq)
	latency := time.Since(start)

	if err != nil {
		return Outcome{
			TimedOut: errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil,
			Latency:  latency,
			Err:      err,
		}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	latency = time.Since(start)
	if err != nil {
		return Outcome{
			TimedOut: errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil,
			Latency:  latency,
			Err:      err,
		}
	}

	succeeded := res.StatusCode >= 200 && res.StatusCode < 300

	return Outcome{
		Succeeded:  succeeded,
		Latency:    latency,
		StatusCode: res.StatusCode,
		Body:       body,
	}
}
