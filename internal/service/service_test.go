package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Skotchmaster/sweet_shop/internal/models"
	"github.com/Skotchmaster/sweet_shop/internal/repo/gormrepo"
	pkgdb "github.com/Skotchmaster/sweet_shop/pkg/db"
	"github.com/stretchr/testify/require"
)

type published struct {
	Topic string
	Key   string
	Event any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) PublishEvent(_ context.Context, topic, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{Topic: topic, Key: key, Event: event})
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) all() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.events...)
}

type fakeIndex struct {
	mu        sync.Mutex
	docs      map[string]models.Sweet
	searchErr error
	searched  int
}

func newFakeIndex() *fakeIndex { return &fakeIndex{docs: map[string]models.Sweet{}} }

func (f *fakeIndex) Upsert(_ context.Context, s models.Sweet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[s.ID] = s
	return nil
}

func (f *fakeIndex) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, id)
	return nil
}

func (f *fakeIndex) Search(_ context.Context, _ models.SweetFilter) ([]models.Sweet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searched++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	out := make([]models.Sweet, 0, len(f.docs))
	for _, s := range f.docs {
		out = append(out, s)
	}
	return out, nil
}

func newTestStore(t *testing.T) *gormrepo.GormRepo {
	t.Helper()

	ctx := context.Background()
	db, err := pkgdb.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)

	r := gormrepo.New(db)
	require.NoError(t, r.Migrate(ctx))
	t.Cleanup(func() { _ = r.Close(ctx) })
	return r
}

func newTestAuthService(t *testing.T) (*AuthService, *recordingPublisher) {
	t.Helper()

	pub := &recordingPublisher{}
	return &AuthService{
		Users:  newTestStore(t),
		Secret: []byte("test-jwt-secret"),
		TTL:    time.Hour,
		Events: pub,
	}, pub
}

func newTestSweetService(t *testing.T) (*SweetService, *recordingPublisher) {
	t.Helper()

	pub := &recordingPublisher{}
	return &SweetService{Repo: newTestStore(t), Events: pub}, pub
}

func requireFields(t *testing.T, err error, fields ...string) {
	t.Helper()

	require.ErrorIs(t, err, ErrValidation)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	got := make([]string, len(verr.Fields))
	for i, f := range verr.Fields {
		got[i] = f.Field
	}
	require.ElementsMatch(t, fields, got)
}

func ptr[T any](v T) *T { return &v }
