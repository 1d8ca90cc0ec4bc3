package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/noobiecoder75/bookinggpt-api/internal/events"
)

// EventNotifier turns domain events into in-app notifications for agents.
type EventNotifier struct {
	Store Store
}

// Notify implements events.Notifier.
func (n EventNotifier) Notify(ctx context.Context, event events.Event) error {
	if n.Store == nil {
		return nil
	}
	title, body := describe(event)
	if title == "" {
		return nil
	}
	_, err := n.Store.Insert(ctx, Row{
		Topic:       event.Topic,
		Title:       title,
		Body:        body,
		AggregateID: event.AggregateID,
	})
	return err
}

func describe(event events.Event) (string, string) {
	var payload map[string]any
	_ = json.Unmarshal(event.Payload, &payload)
	reference, _ := payload["reference"].(string)

	switch event.Topic {
	case events.TopicQuoteSent:
		return "Quote sent", fmt.Sprintf("Quote %s was emailed to the customer.", reference)
	case events.TopicQuoteConverted:
		return "Quote converted", fmt.Sprintf("Quote %s became a booking.", reference)
	case events.TopicQuoteExpired:
		return "Quote expired", fmt.Sprintf("Quote %s expired without conversion.", reference)
	case events.TopicBookingStatusChanged:
		from, _ := payload["from"].(string)
		to, _ := payload["to"].(string)
		return "Booking updated", fmt.Sprintf("Booking %s moved from %s to %s.", reference, from, to)
	}
	return "", ""
}
