package sink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validEvent = `{"topic":"auth","event_id":"e-1","timestamp":"2024-05-01T10:34:56.789Z","source":"pubload","payload":{"n":1,"vu":2}}`

func TestDecodeEvents_Shapes(t *testing.T) {
	tests := map[string]string{
		"array":   `[` + validEvent + `,` + validEvent + `]`,
		"wrapped": `{"events":[` + validEvent + `,` + validEvent + `]}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			events, err := decodeEvents([]byte(body))
			require.NoError(t, err)
			require.Len(t, events, 2)
			assert.Equal(t, Event{
				Topic:     "auth",
				EventId:   "e-1",
				Timestamp: "2024-05-01T10:34:56.789Z",
				Source:    "pubload",
				Payload:   map[string]interface{}{"n": float64(1), "vu": float64(2)},
			}, events[0])
		})
	}

	events, err := decodeEvents([]byte("  " + validEvent + "\n"))
	require.NoError(t, err)
	assert.Len(t, events, 1)

	events, err = decodeEvents([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestDecodeEvents_Invalid(t *testing.T) {
	tests := map[string]string{
		"empty":              ``,
		"not json":           `publish`,
		"number":             `42`,
		"broken array":       `[{"topic":`,
		"events not array":   `{"events":{"topic":"auth"}}`,
		"missing topic":      `[{"event_id":"e-1","timestamp":"2024-05-01T10:34:56Z","source":"s"}]`,
		"missing event_id":   `[{"topic":"auth","timestamp":"2024-05-01T10:34:56Z","source":"s"}]`,
		"missing source":     `{"topic":"auth","event_id":"e-1","timestamp":"2024-05-01T10:34:56Z"}`,
		"bad timestamp":      `[{"topic":"auth","event_id":"e-1","timestamp":"yesterday","source":"s"}]`,
		"one bad of many":    `[` + validEvent + `,{"topic":"auth"}]`,
		"payload not object": `[{"topic":"auth","event_id":"e-1","timestamp":"2024-05-01T10:34:56Z","source":"s","payload":1}]`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := decodeEvents([]byte(body))
			assert.Error(t, err)
		})
	}
}
