package workload

import "time"

// IterationResult is the outcome of one dispatched batch.
type IterationResult struct {
	VU        int
	Iteration uint64
	// HTTP status, or 0 when no response was received.
	StatusCode int
	Accepted   bool
	// Why the batch was rejected. Nil when accepted.
	Err error
	// True when the request ran out of time.
	Timeout  bool
	Duration time.Duration
	Events   int
	PoolHits int
	// Counts reported by the endpoint, when it sent them.
	Summary *PublishSummary
}

// TransportError reports whether the batch failed before any response was received.
func (r IterationResult) TransportError() bool {
	return !r.Accepted && r.StatusCode == 0
}

// PublishSummary is the optional body an ingestion endpoint returns for a publish call.
// Some endpoints name the received count "accepted".
type PublishSummary struct {
	Received   int `json:"received"`
	Inserted   int `json:"inserted"`
	Duplicates int `json:"duplicates"`
}

type publishSummaryBody struct {
	Received   *int `json:"received"`
	Accepted   *int `json:"accepted"`
	Inserted   *int `json:"inserted"`
	Duplicates *int `json:"duplicates"`
}

func (b publishSummaryBody) toSummary() *PublishSummary {
	received := b.Received
	if received == nil {
		received = b.Accepted
	}
	if received == nil || b.Inserted == nil || b.Duplicates == nil {
		return nil
	}
	return &PublishSummary{
		Received:   *received,
		Inserted:   *b.Inserted,
		Duplicates: *b.Duplicates,
	}
}
