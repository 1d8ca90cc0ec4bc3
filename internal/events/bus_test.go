package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"

	"github.com/noobiecoder75/bookinggpt-api/internal/events"
)

type stubStore struct {
	lastTopic   string
	lastPayload []byte
}

func (s *stubStore) InsertEvent(_ context.Context, topic string, aggregateID pgtype.UUID, payload []byte) (events.Event, error) {
	s.lastTopic = topic
	s.lastPayload = payload
	id := uuid.New()
	return events.Event{
		ID:          pgtype.UUID{Bytes: id, Valid: true},
		Topic:       topic,
		AggregateID: aggregateID,
		Payload:     payload,
		OccurredAt:  pgtype.Timestamptz{Time: time.Now(), Valid: true},
	}, nil
}

type captureNotifier struct {
	events []events.Event
	err    error
}

func (c *captureNotifier) Notify(_ context.Context, event events.Event) error {
	c.events = append(c.events, event)
	return c.err
}

func toUUID(u uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: u, Valid: true}
}

func TestEmitPersistsEvent(t *testing.T) {
	store := &stubStore{}
	notifier := &captureNotifier{}
	bus := events.Bus{Store: store, Notifiers: []events.Notifier{notifier}}

	aggregate := uuid.New()
	payload := map[string]any{"quoteId": "123"}
	event, err := bus.Emit(context.Background(), events.TopicQuoteSent, toUUID(aggregate), payload)
	require.NoError(t, err)
	require.Equal(t, events.TopicQuoteSent, store.lastTopic)
	require.JSONEq(t, `{"quoteId":"123"}`, string(store.lastPayload))
	require.Len(t, notifier.events, 1)
	require.Equal(t, event.ID, notifier.events[0].ID)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(event.Payload, &decoded))
	require.Equal(t, "123", decoded["quoteId"])
}

func TestEmitRequiresTopicAndAggregate(t *testing.T) {
	bus := events.Bus{Store: &stubStore{}}

	_, err := bus.Emit(context.Background(), "  ", toUUID(uuid.New()), nil)
	require.Error(t, err)

	_, err = bus.Emit(context.Background(), events.TopicQuoteSent, pgtype.UUID{}, nil)
	require.Error(t, err)
}

func TestEmitCollectsNotifierErrors(t *testing.T) {
	ok := &captureNotifier{}
	failing := &captureNotifier{err: errors.New("smtp down")}
	bus := events.Bus{Store: &stubStore{}, Notifiers: []events.Notifier{failing, ok}}

	_, err := bus.Emit(context.Background(), events.TopicQuoteSent, toUUID(uuid.New()), nil)
	require.Error(t, err)
	// the persisted event still reached every notifier
	require.Len(t, ok.events, 1)
	require.Len(t, failing.events, 1)
}

func TestEmitRejectsInvalidJSONPayload(t *testing.T) {
	bus := events.Bus{Store: &stubStore{}}
	_, err := bus.Emit(context.Background(), events.TopicQuoteSent, toUUID(uuid.New()), []byte("{not json"))
	require.Error(t, err)
}
