package workload

import "time"

type Topic string

const (
	TopicAuth    Topic = "auth"
	TopicPayment Topic = "payment"
	TopicOrders  Topic = "orders"
)

var DefaultTopics = []Topic{TopicAuth, TopicPayment, TopicOrders}

// TimestampFormat is ISO-8601 in UTC with millisecond precision.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// Event is one element of a published batch. Field names are part of the wire format.
type Event struct {
	Topic     Topic   `json:"topic"`
	EventId   string  `json:"event_id"`
	Timestamp string  `json:"timestamp"`
	Source    string  `json:"source"`
	Payload   Payload `json:"payload"`
}

// Payload carries enough metadata to trace an event back to the iteration that sent it.
type Payload struct {
	N  uint64 `json:"n"`
	VU int    `json:"vu"`
}

// Batch is the body of one publish request.
type Batch struct {
	VU        int
	Iteration uint64
	Events    []Event
	// Number of events whose identifier came from the pool.
	PoolHits int
}

// FormatTimestamp renders t the way every event timestamp is sent.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}

func toTopics(names []string) []Topic {
	topics := make([]Topic, len(names))
	for i, name := range names {
		topics[i] = Topic(name)
	}
	return topics
}
