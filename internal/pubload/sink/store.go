package sink

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/armadaproject/pubload/internal/common/util"
)

const (
	DefaultRecentEvents = 10000
	MaxListLimit        = 5000
)

// Store deduplicates events on (topic, event_id) and keeps running totals. An id is remembered for
// the dedup TTL, after which the same (topic, event_id) is inserted again.
type Store struct {
	dedup *cache.Cache
	clock util.Clock
	start time.Time

	mu         sync.Mutex
	received   uint64
	inserted   uint64
	duplicates uint64
	topics     map[string]uint64
	// Ring buffer of the most recently inserted events.
	recent     []StoredEvent
	recentNext int
	maxRecent  int

	eventsCounter *prometheus.CounterVec
}

// PublishResult is the reply to one publish call.
type PublishResult struct {
	Received   int `json:"received"`
	Inserted   int `json:"inserted"`
	Duplicates int `json:"duplicates"`
}

type TopicCount struct {
	Topic string `json:"topic"`
	Count uint64 `json:"count"`
}

type Stats struct {
	Received         uint64       `json:"received"`
	UniqueProcessed  uint64       `json:"unique_processed"`
	DuplicateDropped uint64       `json:"duplicate_dropped"`
	Topics           []TopicCount `json:"topics"`
	UptimeSeconds    int64        `json:"uptime_seconds"`
}

// NewStore creates a store remembering ids for dedupTtl and listing up to maxRecent events.
// Counters are registered with registerer unless it is nil.
func NewStore(dedupTtl time.Duration, maxRecent int, clock util.Clock, registerer prometheus.Registerer) *Store {
	if clock == nil {
		clock = &util.DefaultClock{}
	}
	s := &Store{
		dedup:     cache.New(dedupTtl, dedupTtl),
		clock:     clock,
		start:     clock.Now(),
		topics:    make(map[string]uint64),
		maxRecent: maxRecent,
		eventsCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pubload_sink_events_total",
				Help: "Events received by the sink by outcome",
			},
			[]string{"result"},
		),
	}
	if registerer != nil {
		registerer.MustRegister(s.eventsCounter)
	}
	return s
}

func dedupKey(e Event) string {
	return e.Topic + "\x00" + e.EventId
}

// Insert records events in order. An event whose (topic, event_id) is already known is counted as
// a duplicate, including repeats within the same call.
func (s *Store) Insert(events []Event) PublishResult {
	result := PublishResult{Received: len(events)}
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range events {
		if err := s.dedup.Add(dedupKey(e), struct{}{}, cache.DefaultExpiration); err != nil {
			result.Duplicates++
			continue
		}
		result.Inserted++
		s.topics[e.Topic]++
		s.remember(StoredEvent{Event: e, ReceivedAt: now})
	}
	s.received += uint64(result.Received)
	s.inserted += uint64(result.Inserted)
	s.duplicates += uint64(result.Duplicates)

	s.eventsCounter.WithLabelValues("inserted").Add(float64(result.Inserted))
	s.eventsCounter.WithLabelValues("duplicate").Add(float64(result.Duplicates))
	return result
}

// Must hold s.mu.
func (s *Store) remember(e StoredEvent) {
	if s.maxRecent <= 0 {
		return
	}
	if len(s.recent) < s.maxRecent {
		s.recent = append(s.recent, e)
		return
	}
	s.recent[s.recentNext] = e
	s.recentNext = (s.recentNext + 1) % s.maxRecent
}

func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := maps.Keys(s.topics)
	slices.Sort(names)
	topics := make([]TopicCount, 0, len(names))
	for _, topic := range names {
		topics = append(topics, TopicCount{Topic: topic, Count: s.topics[topic]})
	}

	return Stats{
		Received:         s.received,
		UniqueProcessed:  s.inserted,
		DuplicateDropped: s.duplicates,
		Topics:           topics,
		UptimeSeconds:    int64(s.clock.Now().Sub(s.start).Seconds()),
	}
}

// Recent returns up to limit of the most recently inserted events, newest first, optionally
// restricted to one topic.
func (s *Store) Recent(topic string, limit int) []StoredEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]StoredEvent, 0, limit)
	n := len(s.recent)
	for i := 0; i < n && len(result) < limit; i++ {
		// Walk backwards from the newest entry.
		e := s.recent[(s.recentNext-1-i+2*n)%n]
		if topic == "" || e.Topic == topic {
			result = append(result, e)
		}
	}
	return result
}
