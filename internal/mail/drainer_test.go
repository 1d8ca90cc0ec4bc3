package mail

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noobiecoder75/bookinggpt-api/internal/common"
)

type fakeOutbox struct {
	due      []OutboxMessage
	sent     []string
	failed   []string
	dead     []string
	backoffs []int32
}

func (f *fakeOutbox) Enqueue(_ context.Context, recipients []string, subject, body string, maxAttempt int32) (OutboxMessage, error) {
	id := uuid.New()
	msg := OutboxMessage{
		ID:         pgtype.UUID{Bytes: id, Valid: true},
		Recipients: recipients,
		Subject:    subject,
		Body:       body,
		Status:     StatusPending,
		MaxAttempt: maxAttempt,
	}
	f.due = append(f.due, msg)
	return msg, nil
}

func (f *fakeOutbox) DequeueDue(_ context.Context, batch int32) ([]OutboxMessage, error) {
	n := int(batch)
	if n > len(f.due) {
		n = len(f.due)
	}
	out := make([]OutboxMessage, n)
	for i := range out {
		f.due[i].Attempt++
		out[i] = f.due[i]
	}
	f.due = f.due[n:]
	return out, nil
}

func (f *fakeOutbox) MarkSent(_ context.Context, id pgtype.UUID, messageID string) error {
	f.sent = append(f.sent, messageID)
	return nil
}

func (f *fakeOutbox) MarkFailedWithBackoff(_ context.Context, id pgtype.UUID, delaySec int32, lastError string) error {
	f.failed = append(f.failed, lastError)
	f.backoffs = append(f.backoffs, delaySec)
	return nil
}

func (f *fakeOutbox) MoveToDead(_ context.Context, id pgtype.UUID, lastError string) error {
	f.dead = append(f.dead, lastError)
	return nil
}

type failingSender struct {
	err error
}

func (s failingSender) Send(context.Context, common.EmailMessage) (common.SendResult, error) {
	return common.SendResult{}, s.err
}

func TestDrainDeliversPending(t *testing.T) {
	outbox := &fakeOutbox{}
	sender := &common.InMemoryEmail{}
	_, err := outbox.Enqueue(context.Background(), []string{"maya@example.com"}, "Your quote", "body", 5)
	require.NoError(t, err)

	d := &Drainer{Store: outbox, Sender: sender, Logger: zerolog.Nop()}
	require.NoError(t, d.WorkOnce(context.Background(), 10))

	require.Len(t, sender.Outbox, 1)
	require.Equal(t, []string{"maya@example.com"}, sender.Outbox[0].To)
	require.Len(t, outbox.sent, 1)
	require.Empty(t, outbox.failed)
}

func TestDrainRetriesWithBackoff(t *testing.T) {
	outbox := &fakeOutbox{}
	_, err := outbox.Enqueue(context.Background(), []string{"maya@example.com"}, "Your quote", "body", 5)
	require.NoError(t, err)

	d := &Drainer{Store: outbox, Sender: failingSender{err: errors.New("quota exceeded")}, Logger: zerolog.Nop(), BackoffBaseSec: 5}
	require.NoError(t, d.WorkOnce(context.Background(), 10))

	require.Empty(t, outbox.sent)
	require.Len(t, outbox.failed, 1)
	// attempt 1 -> base * 2^1
	require.Equal(t, int32(10), outbox.backoffs[0])
}

func TestDrainMovesExhaustedToDead(t *testing.T) {
	outbox := &fakeOutbox{}
	msg, err := outbox.Enqueue(context.Background(), []string{"maya@example.com"}, "Your quote", "body", 1)
	require.NoError(t, err)
	_ = msg

	d := &Drainer{Store: outbox, Sender: failingSender{err: errors.New("boom")}, Logger: zerolog.Nop()}
	require.NoError(t, d.WorkOnce(context.Background(), 10))

	require.Len(t, outbox.dead, 1)
	require.Empty(t, outbox.failed)
}

type rejectingSender struct{}

func (rejectingSender) Send(context.Context, common.EmailMessage) (common.SendResult, error) {
	return common.SendResult{Success: false}, nil
}

func TestDrainDeadReasonWithoutSendError(t *testing.T) {
	outbox := &fakeOutbox{}
	_, err := outbox.Enqueue(context.Background(), []string{"maya@example.com"}, "Your quote", "body", 1)
	require.NoError(t, err)

	d := &Drainer{Store: outbox, Sender: rejectingSender{}, Logger: zerolog.Nop()}
	require.NoError(t, d.WorkOnce(context.Background(), 10))

	require.Len(t, outbox.dead, 1)
	require.NotContains(t, outbox.dead[0], "<nil>")
	require.NotEmpty(t, outbox.dead[0])
}

func TestDrainerRunStopsOnCancel(t *testing.T) {
	outbox := &fakeOutbox{}
	d := &Drainer{Store: outbox, Sender: &common.InMemoryEmail{}, Logger: zerolog.Nop()}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := d.Run(ctx, 5*time.Millisecond, 10)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
