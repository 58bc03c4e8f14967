// Package queue carries change notifications between processes over
// RabbitMQ.  Every server and scanner publishes to one fanout exchange;
// every server consumes it with its own exclusive queue and refreshes
// its display when a message arrives.
package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/handoff-wait/internal/model"
)

// ChangeEvent is the message body published for each change.
type ChangeEvent struct {
	ID     string       `json:"id"`
	Source string       `json:"source"`
	Change model.Change `json:"change"`
}

// NewChangeEvent stamps c with a fresh message id.  source names the
// publishing process and lets a consumer skip its own messages.
func NewChangeEvent(source string, c model.Change) ChangeEvent {
	if c.At.IsZero() {
		c.At = time.Now().UTC()
	}
	return ChangeEvent{ID: uuid.NewString(), Source: source, Change: c}
}

func decodeEvent(body []byte) (ChangeEvent, error) {
	var ev ChangeEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return ChangeEvent{}, fmt.Errorf("unmarshal: %w", err)
	}
	switch ev.Change.Table {
	case model.TableHandoffs, model.TableSettings:
	default:
		return ChangeEvent{}, fmt.Errorf("unknown table %q", ev.Change.Table)
	}
	return ev, nil
}
