// Package progress tracks per-item completion flags for orders and aggregates them into
// completion percentages. It is independent of the order status kept in the database.
package progress

import (
	"context"
	"math"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"
)

// Map holds the flags of every order: orderID -> itemIndex -> completed.
// Keys are strings so the JSON matches the shape written by earlier clients.
type Map map[string]map[string]bool

// Store persists the whole progress map under one key
type Store interface {
	Get(ctx context.Context) (Map, error)
	Set(ctx context.Context, m Map) error
	Clear(ctx context.Context) error
}

// Stats is the completion summary of one order
type Stats struct {
	Completed  int `json:"completed"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

// Tracker updates and aggregates item progress. Store failures are logged and the
// operation becomes a no-op.
type Tracker struct {
	store Store
	mu    sync.Mutex
}

// NewTracker creates a tracker on top of store
func NewTracker(store Store) *Tracker {
	return &Tracker{store: store}
}

// UpdateItemCompletion sets the completion flag of one item and rewrites the whole map
func (t *Tracker) UpdateItemCompletion(ctx context.Context, orderID string, itemIndex int, completed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	m, err := t.store.Get(ctx)
	if err != nil {
		log.Error().Err(err).Str("order_id", orderID).Msg("Failed to read item progress")
		return
	}
	if m == nil {
		m = Map{}
	}

	flags, ok := m[orderID]
	if !ok {
		flags = map[string]bool{}
		m[orderID] = flags
	}
	flags[strconv.Itoa(itemIndex)] = completed

	if err := t.store.Set(ctx, m); err != nil {
		log.Error().Err(err).Str("order_id", orderID).Int("item_index", itemIndex).Msg("Failed to save item progress")
	}
}

// GetCompletionStats counts the completed items in [0, totalItems). Flags for indices
// outside that range are ignored.
func (t *Tracker) GetCompletionStats(ctx context.Context, orderID string, totalItems int) Stats {
	m, err := t.store.Get(ctx)
	if err != nil {
		log.Error().Err(err).Str("order_id", orderID).Msg("Failed to read item progress")
		m = nil
	}
	return computeStats(m[orderID], totalItems)
}

// GetCompletionStatsBatch computes stats for several orders with a single store read
func (t *Tracker) GetCompletionStatsBatch(ctx context.Context, totals map[string]int) map[string]Stats {
	m, err := t.store.Get(ctx)
	if err != nil {
		log.Error().Err(err).Int("orders", len(totals)).Msg("Failed to read item progress")
		m = nil
	}

	out := make(map[string]Stats, len(totals))
	for orderID, total := range totals {
		out[orderID] = computeStats(m[orderID], total)
	}
	return out
}

// ClearOrderProgress removes every flag of one order. Other orders are untouched.
func (t *Tracker) ClearOrderProgress(ctx context.Context, orderID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	m, err := t.store.Get(ctx)
	if err != nil {
		log.Error().Err(err).Str("order_id", orderID).Msg("Failed to read item progress")
		return
	}
	if _, ok := m[orderID]; !ok {
		return
	}
	delete(m, orderID)

	if err := t.store.Set(ctx, m); err != nil {
		log.Error().Err(err).Str("order_id", orderID).Msg("Failed to save item progress")
	}
}

// Reset drops the progress of every order
func (t *Tracker) Reset(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.store.Clear(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to clear item progress")
	}
}

func computeStats(flags map[string]bool, totalItems int) Stats {
	stats := Stats{Total: totalItems}
	if totalItems <= 0 {
		stats.Total = 0
		return stats
	}

	for i := 0; i < totalItems; i++ {
		if flags[strconv.Itoa(i)] {
			stats.Completed++
		}
	}
	stats.Percentage = int(math.Round(float64(stats.Completed) / float64(totalItems) * 100))

	return stats
}
