package workload

import (
	"time"
)

// Builder assembles batches of events.
type Builder struct {
	selector *Selector
	topics   []Topic
	source   string
}

func NewBuilder(selector *Selector, topics []Topic, source string) *Builder {
	if len(topics) == 0 {
		topics = DefaultTopics
	}
	return &Builder{
		selector: selector,
		topics:   topics,
		source:   source,
	}
}

// Build returns size events for one publish call. Topic and identifier are drawn independently for
// every event; all events carry the same timestamp, taken from now.
func (b *Builder) Build(vu *VirtualUser, iteration uint64, size int, now time.Time) Batch {
	timestamp := FormatTimestamp(now)
	payload := Payload{N: iteration, VU: vu.Index}
	batch := Batch{
		VU:        vu.Index,
		Iteration: iteration,
		Events:    make([]Event, size),
	}
	for i := range batch.Events {
		topic := b.topics[vu.Rand().Intn(len(b.topics))]
		id, fromPool := b.selector.Select(vu, iteration)
		if fromPool {
			batch.PoolHits++
		}
		batch.Events[i] = Event{
			Topic:     topic,
			EventId:   id,
			Timestamp: timestamp,
			Source:    b.source,
			Payload:   payload,
		}
	}
	return batch
}
