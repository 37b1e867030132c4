package progress

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Get(ctx context.Context) (Map, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(Map), args.Error(1)
}

func (m *MockStore) Set(ctx context.Context, p Map) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockStore) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func TestCompletionStats(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(NewMemoryStore())

	tracker.UpdateItemCompletion(ctx, "order-1", 0, true)
	tracker.UpdateItemCompletion(ctx, "order-1", 2, true)

	require.Equal(t, Stats{Completed: 2, Total: 4, Percentage: 50}, tracker.GetCompletionStats(ctx, "order-1", 4))
}

func TestCompletionStatsLastValueWins(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(NewMemoryStore())

	tracker.UpdateItemCompletion(ctx, "order-1", 1, true)
	tracker.UpdateItemCompletion(ctx, "order-1", 1, true)
	tracker.UpdateItemCompletion(ctx, "order-1", 2, true)
	tracker.UpdateItemCompletion(ctx, "order-1", 2, false)

	require.Equal(t, Stats{Completed: 1, Total: 3, Percentage: 33}, tracker.GetCompletionStats(ctx, "order-1", 3))
}

func TestCompletionStatsIgnoresStaleIndices(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(NewMemoryStore())

	tracker.UpdateItemCompletion(ctx, "order-1", 0, true)
	tracker.UpdateItemCompletion(ctx, "order-1", 5, true)

	require.Equal(t, Stats{Completed: 1, Total: 2, Percentage: 50}, tracker.GetCompletionStats(ctx, "order-1", 2))
}

func TestCompletionStatsZeroItems(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(NewMemoryStore())

	tracker.UpdateItemCompletion(ctx, "order-1", 0, true)

	require.Equal(t, Stats{}, tracker.GetCompletionStats(ctx, "order-1", 0))
}

func TestCompletionStatsRounding(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(NewMemoryStore())

	tracker.UpdateItemCompletion(ctx, "order-1", 0, true)
	tracker.UpdateItemCompletion(ctx, "order-1", 1, true)

	require.Equal(t, 67, tracker.GetCompletionStats(ctx, "order-1", 3).Percentage)
	require.Equal(t, 100, tracker.GetCompletionStats(ctx, "order-1", 2).Percentage)
}

func TestClearOrderProgressIsolation(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(NewMemoryStore())

	tracker.UpdateItemCompletion(ctx, "order-1", 0, true)
	tracker.UpdateItemCompletion(ctx, "order-2", 0, true)
	tracker.UpdateItemCompletion(ctx, "order-2", 1, true)

	tracker.ClearOrderProgress(ctx, "order-1")

	for _, n := range []int{0, 1, 5} {
		stats := tracker.GetCompletionStats(ctx, "order-1", n)
		require.Equal(t, Stats{Completed: 0, Total: n, Percentage: 0}, stats)
	}
	require.Equal(t, Stats{Completed: 2, Total: 2, Percentage: 100}, tracker.GetCompletionStats(ctx, "order-2", 2))
}

func TestBatchStats(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(NewMemoryStore())

	tracker.UpdateItemCompletion(ctx, "a", 0, true)
	tracker.UpdateItemCompletion(ctx, "b", 1, true)

	stats := tracker.GetCompletionStatsBatch(ctx, map[string]int{"a": 1, "b": 4, "c": 3})
	require.Equal(t, 100, stats["a"].Percentage)
	require.Equal(t, 25, stats["b"].Percentage)
	require.Equal(t, Stats{Total: 3}, stats["c"])
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(NewMemoryStore())

	tracker.UpdateItemCompletion(ctx, "a", 0, true)
	tracker.Reset(ctx)

	require.Equal(t, 0, tracker.GetCompletionStats(ctx, "a", 1).Completed)
}

func TestStoreFailuresAreNoOps(t *testing.T) {
	ctx := context.Background()
	store := new(MockStore)
	store.On("Get", mock.Anything).Return(nil, errors.New("storage unavailable"))
	store.On("Clear", mock.Anything).Return(errors.New("storage unavailable"))

	tracker := NewTracker(store)

	tracker.UpdateItemCompletion(ctx, "order-1", 0, true)
	tracker.ClearOrderProgress(ctx, "order-1")
	tracker.Reset(ctx)
	require.Equal(t, Stats{Total: 3}, tracker.GetCompletionStats(ctx, "order-1", 3))

	store.AssertNotCalled(t, "Set", mock.Anything, mock.Anything)
	store.AssertExpectations(t)
}

func TestWriteFailureIsLogged(t *testing.T) {
	ctx := context.Background()
	store := new(MockStore)
	store.On("Get", mock.Anything).Return(Map{}, nil)
	store.On("Set", mock.Anything, mock.AnythingOfType("progress.Map")).Return(errors.New("quota exceeded"))

	tracker := NewTracker(store)
	tracker.UpdateItemCompletion(ctx, "order-1", 0, true)

	store.AssertExpectations(t)
}

func TestMapJSONShape(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tracker := NewTracker(store)

	tracker.UpdateItemCompletion(ctx, "order-1", 3, true)

	m, err := store.Get(ctx)
	require.NoError(t, err)
	data, err := json.Marshal(m)
	require.NoError(t, err)
	require.JSONEq(t, `{"order-1":{"3":true}}`, string(data))

	var legacy Map
	require.NoError(t, json.Unmarshal([]byte(`{"o":{"0":true,"1":false}}`), &legacy))
	require.NoError(t, store.Set(ctx, legacy))
	require.Equal(t, 1, tracker.GetCompletionStats(ctx, "o", 2).Completed)
}
