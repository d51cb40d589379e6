package sink

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/pkg/errors"
)

// Event is an event as accepted by POST /publish. Unlike the generator's events the payload may
// be any JSON object.
type Event struct {
	Topic     string                 `json:"topic" binding:"required"`
	EventId   string                 `json:"event_id" binding:"required"`
	Timestamp string                 `json:"timestamp" binding:"required"`
	Source    string                 `json:"source" binding:"required"`
	Payload   map[string]interface{} `json:"payload"`
}

// StoredEvent is an event the sink inserted, with the time it was received.
type StoredEvent struct {
	Event
	ReceivedAt time.Time `json:"received_at"`
}

// decodeEvents accepts a JSON array of events, an object {"events": [...]} or a single event
// object. Every event is validated before any is returned.
func decodeEvents(body []byte) ([]Event, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, errors.New("empty body")
	}

	var events []Event
	switch body[0] {
	case '[':
		if err := json.Unmarshal(body, &events); err != nil {
			return nil, errors.Wrap(err, "invalid JSON body")
		}
	case '{':
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(body, &wrapper); err != nil {
			return nil, errors.Wrap(err, "invalid JSON body")
		}
		if raw, ok := wrapper["events"]; ok {
			if err := json.Unmarshal(raw, &events); err != nil {
				return nil, errors.New("'events' must be an array of events")
			}
		} else {
			var event Event
			if err := json.Unmarshal(body, &event); err != nil {
				return nil, errors.Wrap(err, "invalid JSON body")
			}
			events = []Event{event}
		}
	default:
		return nil, errors.New("body must be an object, an array or {\"events\": [...]}")
	}

	for i := range events {
		if err := validateEvent(&events[i]); err != nil {
			return nil, errors.WithMessagef(err, "event %d", i)
		}
	}
	return events, nil
}

func validateEvent(event *Event) error {
	if err := binding.Validator.ValidateStruct(event); err != nil {
		return errors.WithStack(err)
	}
	if _, err := time.Parse(time.RFC3339Nano, event.Timestamp); err != nil {
		return errors.Errorf("timestamp %q is not RFC3339", event.Timestamp)
	}
	return nil
}
