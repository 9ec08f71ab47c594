package service_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/pessoa-api/internal/apperror"
	"github.com/aanand-mishra/pessoa-api/internal/logctx"
	"github.com/aanand-mishra/pessoa-api/internal/service"
	"github.com/aanand-mishra/pessoa-api/internal/storage"
	"github.com/aanand-mishra/pessoa-api/internal/types"
)

// memStorage is an in-memory storage.Storage for service tests.
type memStorage struct {
	mu       sync.Mutex
	nextID   int64
	persons  map[int64]types.Person
	lastPage types.PageRequest
	failWith error
}

func newMemStorage() *memStorage {
	return &memStorage{nextID: 1, persons: map[int64]types.Person{}}
}

func (m *memStorage) ListActivePersons(_ context.Context, page types.PageRequest) (types.Page[types.Person], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return types.Page[types.Person]{}, m.failWith
	}
	m.lastPage = page

	active := make([]types.Person, 0)
	for _, p := range m.persons {
		if p.Active {
			active = append(active, p)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		if active[i].Name == active[j].Name {
			return active[i].ID < active[j].ID
		}
		return active[i].Name < active[j].Name
	})

	from := min(page.Offset(), len(active))
	to := min(from+page.Size, len(active))

	return types.NewPage(active[from:to], page, int64(len(active))), nil
}

func (m *memStorage) GetPersonByID(_ context.Context, id int64) (types.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.persons[id]
	if !ok {
		return types.Person{}, storage.ErrNotFound
	}
	return p, nil
}

func (m *memStorage) CreatePerson(_ context.Context, p types.Person) (types.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return types.Person{}, m.failWith
	}
	p.ID = m.nextID
	m.nextID++
	m.persons[p.ID] = p
	return p, nil
}

func (m *memStorage) UpdatePerson(_ context.Context, p types.Person) (types.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.persons[p.ID]; !ok {
		return types.Person{}, storage.ErrNotFound
	}
	m.persons[p.ID] = p
	return p, nil
}

func (m *memStorage) DeletePersonByID(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.persons[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.persons, id)
	return nil
}

func (m *memStorage) Close() error { return nil }

var _ storage.Storage = (*memStorage)(nil)

func newService(t *testing.T, options ...service.Option) (*service.PersonService, *memStorage, *bytes.Buffer) {
	t.Helper()

	var buf bytes.Buffer
	log := slog.New(logctx.NewHandler(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	store := newMemStorage()

	return service.NewPersonService(store, log, options...), store, &buf
}

func requireKind(t *testing.T, err error, kind apperror.Kind) *apperror.Error {
	t.Helper()

	require.Error(t, err)
	appErr, ok := apperror.As(err)
	require.True(t, ok, "expected *apperror.Error, got %T: %v", err, err)
	require.Equal(t, kind, appErr.Kind)

	return appErr
}

func Test_List_NegativePageBehavesLikeFirstPage(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, &types.Person{Name: fmt.Sprintf("P%d", i), Active: true})
		require.NoError(t, err)
	}

	first, err := svc.List(ctx, 0)
	require.NoError(t, err)

	negative, err := svc.List(ctx, -5)
	require.NoError(t, err)

	assert.Equal(t, first, negative)
	assert.Equal(t, types.PageRequest{Number: 0, Size: service.PageSize}, store.lastPage)
}

func Test_List_PageBeyondAddressableRowsIsEmpty(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, &types.Person{Name: "Ana", Active: true})
	require.NoError(t, err)

	for _, page := range []int{922337203685477581, 1 << 62, math.MaxInt} {
		result, err := svc.List(ctx, page)
		require.NoError(t, err)

		assert.Equal(t, page, result.Number)
		assert.Empty(t, result.Content, "page %d", page)
		assert.True(t, result.Last)
		assert.Equal(t, int64(1), result.TotalElements)
	}
}

func Test_List_OnlyActiveSortedByNameInPagesOfTen(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	names := []string{"Zeca", "Ana", "Maria", "Bruno", "Carla", "Diego", "Eva", "Fabio", "Gil", "Hugo", "Iris", "Joao"}
	for _, name := range names {
		_, err := svc.Create(ctx, &types.Person{Name: name, Active: true})
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, &types.Person{Name: "Aaron", Active: false})
	require.NoError(t, err)

	page, err := svc.List(ctx, 0)
	require.NoError(t, err)

	require.Len(t, page.Content, service.PageSize)
	assert.Equal(t, int64(12), page.TotalElements)
	assert.Equal(t, 2, page.TotalPages)
	assert.True(t, sort.SliceIsSorted(page.Content, func(i, j int) bool {
		return page.Content[i].Name < page.Content[j].Name
	}))
	assert.Equal(t, "Ana", page.Content[0].Name)
	for _, p := range page.Content {
		assert.True(t, p.Active)
	}

	second, err := svc.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, second.Content, 2)
	assert.Equal(t, "Zeca", second.Content[1].Name)
}

func Test_List_LogsTotalsAndSlowQueries(t *testing.T) {
	var tick time.Time
	clock := func() time.Time {
		tick = tick.Add(600 * time.Millisecond)
		return tick
	}
	svc, _, logs := newService(t, service.WithClock(clock))

	_, err := svc.List(context.Background(), 0)
	require.NoError(t, err)

	out := logs.String()
	assert.Contains(t, out, "listing completed")
	assert.Contains(t, out, "total_elements=0")
	assert.Contains(t, out, "query_duration_ms=600")
	assert.Contains(t, out, "slow query detected")
	assert.Contains(t, out, "operation=listPersons")
}

func Test_List_FastQueryDoesNotWarn(t *testing.T) {
	svc, _, logs := newService(t, service.WithSlowQueryThreshold(time.Hour))

	_, err := svc.List(context.Background(), 0)
	require.NoError(t, err)
	assert.NotContains(t, logs.String(), "slow query")
}

func Test_List_PropagatesStorageFailure(t *testing.T) {
	svc, store, logs := newService(t)
	boom := errors.New("connection refused")
	store.failWith = boom

	_, err := svc.List(context.Background(), 0)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, apperror.KindInternal, apperror.KindOf(err))
	assert.Contains(t, logs.String(), "failed to list persons")
}

func Test_Create(t *testing.T) {
	tests := []struct {
		name          string
		input         *types.Person
		expectedKind  apperror.Kind
		expectedField string
	}{
		{name: "nil_person", input: nil, expectedKind: apperror.KindValidation},
		{name: "empty_name", input: &types.Person{Name: ""}, expectedKind: apperror.KindValidation, expectedField: "nome"},
		{name: "blank_name", input: &types.Person{Name: "   "}, expectedKind: apperror.KindValidation, expectedField: "nome"},
		{name: "id_already_set", input: &types.Person{ID: 7, Name: "Ana"}, expectedKind: apperror.KindValidation, expectedField: "id"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, store, _ := newService(t)

			_, err := svc.Create(context.Background(), tc.input)
			appErr := requireKind(t, err, tc.expectedKind)
			assert.Equal(t, tc.expectedField, appErr.Field)
			assert.Empty(t, store.persons)
		})
	}

	t.Run("valid_person_gets_an_id", func(t *testing.T) {
		svc, _, _ := newService(t)

		created, err := svc.Create(context.Background(), &types.Person{
			Name:      "Ana",
			BirthDate: types.NewDate(1990, time.March, 5),
		})
		require.NoError(t, err)
		assert.NotZero(t, created.ID)
		assert.Equal(t, "Ana", created.Name)
	})
}

func Test_Update(t *testing.T) {
	t.Run("nil_person", func(t *testing.T) {
		svc, _, _ := newService(t)
		_, err := svc.Update(context.Background(), nil)
		requireKind(t, err, apperror.KindValidation)
	})

	t.Run("missing_id", func(t *testing.T) {
		svc, _, _ := newService(t)
		_, err := svc.Update(context.Background(), &types.Person{Name: "Ana"})
		appErr := requireKind(t, err, apperror.KindValidation)
		assert.Equal(t, "id", appErr.Field)
	})

	t.Run("unknown_id", func(t *testing.T) {
		svc, _, _ := newService(t)
		_, err := svc.Update(context.Background(), &types.Person{ID: 99, Name: "Ana"})
		appErr := requireKind(t, err, apperror.KindNotFound)
		assert.Equal(t, "Pessoa not found with ID: 99", appErr.Message)
	})

	t.Run("existing_id_persists_supplied_values", func(t *testing.T) {
		svc, store, logs := newService(t)
		ctx := context.Background()

		created, err := svc.Create(ctx, &types.Person{Name: "Ana", Active: true})
		require.NoError(t, err)

		replacement := types.Person{
			ID:        created.ID,
			Name:      "Ana Maria",
			BirthDate: types.NewDate(1985, time.July, 20),
			Active:    false,
		}
		updated, err := svc.Update(ctx, &replacement)
		require.NoError(t, err)

		assert.Equal(t, replacement, updated)
		assert.Equal(t, replacement, store.persons[created.ID])
		assert.Contains(t, logs.String(), "nome_anterior=Ana")
	})
}

func Test_Delete(t *testing.T) {
	for _, id := range []int64{0, -1} {
		t.Run(fmt.Sprintf("invalid_id_%d", id), func(t *testing.T) {
			svc, _, _ := newService(t)
			appErr := requireKind(t, svc.Delete(context.Background(), id), apperror.KindValidation)
			assert.Equal(t, "id", appErr.Field)
			assert.Equal(t, id, appErr.RejectedValue)
		})
	}

	t.Run("unknown_id", func(t *testing.T) {
		svc, _, _ := newService(t)
		requireKind(t, svc.Delete(context.Background(), 42), apperror.KindNotFound)
	})

	t.Run("known_id_is_removed", func(t *testing.T) {
		svc, _, _ := newService(t)
		ctx := context.Background()

		created, err := svc.Create(ctx, &types.Person{Name: "Ana"})
		require.NoError(t, err)

		require.NoError(t, svc.Delete(ctx, created.ID))

		_, err = svc.Get(ctx, created.ID)
		requireKind(t, err, apperror.KindNotFound)
		requireKind(t, svc.Delete(ctx, created.ID), apperror.KindNotFound)
	})
}

func Test_Get_InvalidID(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.Get(context.Background(), 0)
	requireKind(t, err, apperror.KindValidation)
}

func Test_LogContextIsScopedToTheCall(t *testing.T) {
	svc, _, logs := newService(t)
	ctx := logctx.With(context.Background(), slog.String(logctx.KeyRequestID, "req-1"))

	_, err := svc.Create(ctx, &types.Person{Name: "Ana"})
	require.NoError(t, err)

	_, hasOperation := logctx.Value(ctx, logctx.KeyOperation)
	assert.False(t, hasOperation)

	for _, line := range strings.Split(strings.TrimSpace(logs.String()), "\n") {
		assert.Contains(t, line, "request_id=req-1")
		assert.Contains(t, line, "operation=createPerson")
	}
}
