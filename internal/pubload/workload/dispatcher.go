package workload

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/armadaproject/pubload/internal/common/build"
	"github.com/armadaproject/pubload/internal/common/publoaderrors"
	"github.com/armadaproject/pubload/internal/common/util"
)

const (
	maxResponseBytes  = 64 * 1024
	maxErrorBodyBytes = 256
)

// Dispatcher sends batches to the ingestion endpoint and classifies the outcome.
type Dispatcher struct {
	client    *http.Client
	targetUrl string
	timeout   time.Duration
	userAgent string
}

// NewDispatcher returns a dispatcher posting to targetUrl. If client is nil a new client with
// default transport settings is used. Each request is bounded by timeout independently of client.
func NewDispatcher(targetUrl string, timeout time.Duration, client *http.Client) *Dispatcher {
	if client == nil {
		client = &http.Client{}
	}
	return &Dispatcher{
		client:    client,
		targetUrl: targetUrl,
		timeout:   timeout,
		userAgent: build.UserAgent(),
	}
}

// IsAccepted reports whether an HTTP status counts as an accepted publish.
func IsAccepted(statusCode int) bool {
	return statusCode == http.StatusOK || statusCode == http.StatusAccepted
}

// Dispatch posts batch as a JSON array and classifies the response. It never panics on transport
// or protocol failures; those are reported through the result.
func (d *Dispatcher) Dispatch(ctx context.Context, batch Batch) IterationResult {
	result := IterationResult{
		VU:        batch.VU,
		Iteration: batch.Iteration,
		Events:    len(batch.Events),
		PoolHits:  batch.PoolHits,
	}

	body, err := json.Marshal(batch.Events)
	if err != nil {
		result.Err = errors.WithMessage(err, "encoding batch")
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.targetUrl, bytes.NewReader(body))
	if err != nil {
		result.Err = errors.WithMessage(err, "creating publish request")
		return result
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("X-Request-Id", util.NewRequestId())

	start := time.Now()
	resp, err := d.client.Do(req)
	if err != nil {
		result.Duration = time.Since(start)
		result.Timeout = isTimeout(err)
		result.Err = errors.WithMessage(err, "publishing batch")
		return result
	}
	defer resp.Body.Close()

	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	// Drain whatever is left so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)
	result.Duration = time.Since(start)
	result.StatusCode = resp.StatusCode

	if !IsAccepted(resp.StatusCode) {
		result.Err = &publoaderrors.ErrRejected{
			StatusCode: resp.StatusCode,
			Body:       truncate(string(respBody), maxErrorBodyBytes),
		}
		return result
	}
	result.Accepted = true
	if readErr == nil {
		result.Summary = decodeSummary(respBody)
	}
	return result
}

func decodeSummary(body []byte) *PublishSummary {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	var decoded publishSummaryBody
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil
	}
	return decoded.toSummary()
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
