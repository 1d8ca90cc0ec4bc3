package notify

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"

	"github.com/noobiecoder75/bookinggpt-api/internal/events"
)

type fakeStore struct {
	rows []Row
}

func (f *fakeStore) Insert(_ context.Context, r Row) (Row, error) {
	id := uuid.New()
	r.ID = pgtype.UUID{Bytes: id, Valid: true}
	f.rows = append(f.rows, r)
	return r, nil
}

func (f *fakeStore) List(_ context.Context, unreadOnly bool, limit, offset int32) ([]Row, error) {
	var out []Row
	for _, r := range f.rows {
		if !unreadOnly || !r.Read {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) Count(ctx context.Context, unreadOnly bool) (int64, error) {
	rows, _ := f.List(ctx, unreadOnly, 0, 0)
	return int64(len(rows)), nil
}

func (f *fakeStore) MarkRead(_ context.Context, id pgtype.UUID) (int64, error) {
	for i, r := range f.rows {
		if r.ID == id {
			f.rows[i].Read = true
			return 1, nil
		}
	}
	return 0, nil
}

func TestNotifierWritesNotifications(t *testing.T) {
	store := &fakeStore{}
	notifier := EventNotifier{Store: store}
	aggregate := uuid.New()

	err := notifier.Notify(context.Background(), events.Event{
		Topic:       events.TopicQuoteSent,
		AggregateID: pgtype.UUID{Bytes: aggregate, Valid: true},
		Payload:     []byte(`{"reference":"Q-2026-ABCD"}`),
	})
	require.NoError(t, err)
	require.Len(t, store.rows, 1)
	require.Equal(t, "Quote sent", store.rows[0].Title)
	require.Contains(t, store.rows[0].Body, "Q-2026-ABCD")
}

func TestNotifierDescribesStatusChange(t *testing.T) {
	store := &fakeStore{}
	notifier := EventNotifier{Store: store}
	aggregate := uuid.New()

	err := notifier.Notify(context.Background(), events.Event{
		Topic:       events.TopicBookingStatusChanged,
		AggregateID: pgtype.UUID{Bytes: aggregate, Valid: true},
		Payload:     []byte(`{"reference":"B-2026-0001","from":"pending","to":"confirmed"}`),
	})
	require.NoError(t, err)
	require.Len(t, store.rows, 1)
	require.Contains(t, store.rows[0].Body, "pending")
	require.Contains(t, store.rows[0].Body, "confirmed")
}

func TestNotifierIgnoresUnknownTopics(t *testing.T) {
	store := &fakeStore{}
	notifier := EventNotifier{Store: store}
	aggregate := uuid.New()

	err := notifier.Notify(context.Background(), events.Event{
		Topic:       "unknown.topic",
		AggregateID: pgtype.UUID{Bytes: aggregate, Valid: true},
		Payload:     []byte(`{}`),
	})
	require.NoError(t, err)
	require.Empty(t, store.rows)
}
