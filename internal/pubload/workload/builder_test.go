package workload

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 1, 12, 34, 56, 789_123_456, time.FixedZone("CEST", 2*60*60))

func TestBuilder_Build(t *testing.T) {
	pool := testPool(t, 14000)
	builder := NewBuilder(NewSelector(pool, 0.3), DefaultTopics, "pubload")
	vu := NewVirtualUserWithSeed(4, 99)

	batch := builder.Build(vu, 17, 50, testNow)

	require.Len(t, batch.Events, 50)
	assert.Equal(t, 4, batch.VU)
	assert.Equal(t, uint64(17), batch.Iteration)

	allowed := map[Topic]bool{TopicAuth: true, TopicPayment: true, TopicOrders: true}
	poolHits := 0
	for _, e := range batch.Events {
		assert.Equal(t, "2024-05-01T10:34:56.789Z", e.Timestamp)
		assert.True(t, allowed[e.Topic], "unexpected topic %s", e.Topic)
		assert.Equal(t, "pubload", e.Source)
		assert.Equal(t, Payload{N: 17, VU: 4}, e.Payload)
		if pool.Contains(e.EventId) {
			poolHits++
		} else {
			assert.True(t, strings.HasPrefix(e.EventId, "u-4-17-"), e.EventId)
		}
	}
	assert.Equal(t, poolHits, batch.PoolHits)
}

func TestBuilder_TopicsUniform(t *testing.T) {
	builder := NewBuilder(NewSelector(testPool(t, 10), 0.3), DefaultTopics, "pubload")
	vu := NewVirtualUserWithSeed(1, 5)

	counts := make(map[Topic]int)
	const batches = 300
	for i := 0; i < batches; i++ {
		for _, e := range builder.Build(vu, uint64(i), 50, testNow).Events {
			counts[e.Topic]++
		}
	}
	require.Len(t, counts, 3)
	for topic, count := range counts {
		assert.InDelta(t, batches*50/3, count, batches*50/30, "topic %s", topic)
	}
}

func TestBuilder_CustomTopics(t *testing.T) {
	builder := NewBuilder(NewSelector(testPool(t, 10), 0.3), []Topic{"billing"}, "replayer")
	batch := builder.Build(NewVirtualUserWithSeed(1, 1), 0, 5, testNow)
	for _, e := range batch.Events {
		assert.Equal(t, Topic("billing"), e.Topic)
		assert.Equal(t, "replayer", e.Source)
	}
}

func TestBuilder_NoTopicsFallsBackToDefaults(t *testing.T) {
	builder := NewBuilder(NewSelector(testPool(t, 10), 0.3), nil, "pubload")
	batch := builder.Build(NewVirtualUserWithSeed(1, 1), 0, 20, testNow)
	for _, e := range batch.Events {
		assert.Contains(t, DefaultTopics, e.Topic)
	}
}

func TestEvent_WireFormat(t *testing.T) {
	builder := NewBuilder(NewSelector(testPool(t, 10), 1), DefaultTopics, "pubload")
	batch := builder.Build(NewVirtualUserWithSeed(2, 1), 9, 3, testNow)

	body, err := json.Marshal(batch.Events)
	require.NoError(t, err)

	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &decoded))
	require.Len(t, decoded, 3)
	for _, e := range decoded {
		keys := make([]string, 0, len(e))
		for k := range e {
			keys = append(keys, k)
		}
		assert.ElementsMatch(t, []string{"topic", "event_id", "timestamp", "source", "payload"}, keys)
		assert.Equal(t, "2024-05-01T10:34:56.789Z", e["timestamp"])
		assert.Equal(t, map[string]interface{}{"n": float64(9), "vu": float64(2)}, e["payload"])
	}
}
