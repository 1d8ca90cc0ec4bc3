package template

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	rows      map[string]Row
	listCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: map[string]Row{}}
}

func (f *fakeStore) List(_ context.Context, category string) ([]Row, error) {
	f.listCalls++
	var out []Row
	for _, r := range f.rows {
		if category == "" || r.Category == category {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) Get(_ context.Context, id pgtype.UUID) (Row, error) {
	r, ok := f.rows[uuidString(id)]
	if !ok {
		return Row{}, pgx.ErrNoRows
	}
	return r, nil
}

func (f *fakeStore) GetByName(_ context.Context, name string) (Row, error) {
	for _, r := range f.rows {
		if r.Name == name {
			return r, nil
		}
	}
	return Row{}, pgx.ErrNoRows
}

func (f *fakeStore) Create(_ context.Context, r Row) (Row, error) {
	u := uuid.New()
	copy(r.ID.Bytes[:], u[:])
	r.ID.Valid = true
	r.CreatedAt = pgtype.Timestamptz{Time: time.Now(), Valid: true}
	r.UpdatedAt = r.CreatedAt
	f.rows[u.String()] = r
	return r, nil
}

func (f *fakeStore) Update(_ context.Context, r Row) (Row, error) {
	key := uuidString(r.ID)
	if _, ok := f.rows[key]; !ok {
		return Row{}, pgx.ErrNoRows
	}
	f.rows[key] = r
	return r, nil
}

func (f *fakeStore) Delete(_ context.Context, id pgtype.UUID) (int64, error) {
	key := uuidString(id)
	if _, ok := f.rows[key]; !ok {
		return 0, nil
	}
	delete(f.rows, key)
	return 1, nil
}

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute)
}

func TestListUsesCache(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, newTestCache(t))
	ctx := context.Background()

	_, err := svc.Create(ctx, Input{Name: "quote-send", Subject: "Quote {{reference}}", Body: "Hi {{first_name}}"})
	require.NoError(t, err)

	first, err := svc.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := svc.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, second, 1)
	require.Equal(t, first[0].ID, second[0].ID)
	require.Equal(t, first[0].Subject, second[0].Subject)
	require.Equal(t, 1, store.listCalls)
}

func TestWriteInvalidatesCache(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, newTestCache(t))
	ctx := context.Background()

	created, err := svc.Create(ctx, Input{Name: "quote-send", Subject: "s", Body: "b"})
	require.NoError(t, err)

	_, err = svc.List(ctx, "")
	require.NoError(t, err)

	_, err = svc.Update(ctx, created.ID, Input{Name: "quote-send", Subject: "updated", Body: "b"})
	require.NoError(t, err)

	listed, err := svc.List(ctx, "")
	require.NoError(t, err)
	require.Equal(t, "updated", listed[0].Subject)
}

func TestDeleteInvalidatesCategoryList(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, newTestCache(t))
	ctx := context.Background()

	created, err := svc.Create(ctx, Input{Name: "quote-send", Category: "flights", Subject: "s", Body: "b"})
	require.NoError(t, err)

	// Warm the category-filtered list cache.
	listed, err := svc.List(ctx, "flights")
	require.NoError(t, err)
	require.Len(t, listed, 1)

	require.NoError(t, svc.Delete(ctx, created.ID))

	listed, err = svc.List(ctx, "flights")
	require.NoError(t, err)
	require.Empty(t, listed)
}

func TestCategoryChangeInvalidatesOldList(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, newTestCache(t))
	ctx := context.Background()

	created, err := svc.Create(ctx, Input{Name: "quote-send", Category: "flights", Subject: "s", Body: "b"})
	require.NoError(t, err)

	listed, err := svc.List(ctx, "flights")
	require.NoError(t, err)
	require.Len(t, listed, 1)

	_, err = svc.Update(ctx, created.ID, Input{Name: "quote-send", Category: "hotels", Subject: "s", Body: "b"})
	require.NoError(t, err)

	listed, err = svc.List(ctx, "flights")
	require.NoError(t, err)
	require.Empty(t, listed)

	listed, err = svc.List(ctx, "hotels")
	require.NoError(t, err)
	require.Len(t, listed, 1)
}

func TestServiceWorksWithoutCache(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, Input{Name: "quote-send", Subject: "s", Body: "b"})
	require.NoError(t, err)

	listed, err := svc.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, listed, 1)

	tpl, err := svc.GetByName(ctx, "quote-send")
	require.NoError(t, err)
	require.Equal(t, "s", tpl.Subject)
}

func TestValidation(t *testing.T) {
	svc := NewService(newFakeStore(), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, Input{Subject: "s", Body: "b"})
	require.Error(t, err)
	_, err = svc.Create(ctx, Input{Name: "n", Body: "b"})
	require.Error(t, err)
	_, err = svc.Create(ctx, Input{Name: "n", Subject: "s"})
	require.Error(t, err)
}
