package localeprefs

import (
	"context"
	"time"
)

// budgeted is implemented by stores that know their size limit.
type budgeted interface {
	Budget() int64
}

// BackendUsage describes how much of one store's budget is used.
type BackendUsage struct {
	Available bool    `json:"available"`
	Used      int64   `json:"used"`
	Budget    int64   `json:"budget"`
	Percent   float64 `json:"percent"`
}

// StorageUsage is a snapshot of both stores and the cache.
type StorageUsage struct {
	Persistent BackendUsage `json:"persistent"`
	Header     BackendUsage `json:"header"`
	Cache      CacheStatus  `json:"cache"`
}

func (u StorageUsage) totalUsed() int64 {
	return u.Persistent.Used + u.Header.Used
}

// PerformanceReport compares the usage before and after an optimization.
// Improvement is the number of store bytes reclaimed.
type PerformanceReport struct {
	Before      StorageUsage  `json:"before"`
	After       StorageUsage  `json:"after"`
	Improvement int64         `json:"improvement"`
	Elapsed     time.Duration `json:"elapsed"`
}

// OptimizeData reports what OptimizeStoragePerformance did.
type OptimizeData struct {
	Optimized   bool              `json:"optimized"`
	Actions     []string          `json:"actions"`
	Performance PerformanceReport `json:"performance"`
}

// GetStorageUsage reports availability and byte usage of both stores along
// with the cache status. An unavailable or failing store is reported as
// unavailable with zero usage.
func (m *Manager) GetStorageUsage(ctx context.Context) StorageUsage {
	return StorageUsage{
		Persistent: m.backendUsage(ctx, m.config.persistent, DefaultPersistentBudget),
		Header:     m.backendUsage(ctx, m.config.header, DefaultHeaderBudget),
		Cache:      m.config.cache.GetCacheStatus(),
	}
}

type measurable interface {
	Usage(ctx context.Context) (int64, error)
	Available(ctx context.Context) bool
}

func (m *Manager) backendUsage(ctx context.Context, store measurable, budget int64) (usage BackendUsage) {
	if b, isBudgeted := store.(budgeted); isBudgeted && b.Budget() > 0 {
		budget = b.Budget()
	}
	usage.Budget = budget

	defer func() {
		if r := recover(); r != nil {
			m.config.logger.Warn("Failed to measure store usage", "client_id", m.config.clientID, "error", panicMessage(r))
			usage = BackendUsage{Budget: budget}
		}
	}()

	if !store.Available(ctx) {
		return usage
	}
	used, err := store.Usage(ctx)
	if err != nil {
		m.warnStore("Failed to measure store usage", err)
		return usage
	}

	usage.Available = true
	usage.Used = used
	if budget > 0 {
		usage.Percent = float64(used) / float64(budget) * 100
	}
	return usage
}

// OptimizeStoragePerformance clears the cache when its newest entry has
// expired, warms it from the persistent store, and reports the usage before
// and after.
func (m *Manager) OptimizeStoragePerformance(ctx context.Context) (res Result[OptimizeData]) {
	defer m.recoverResult("optimize_storage_performance", &res)

	start := time.Now()
	before := m.GetStorageUsage(ctx)
	actions := []string{}

	if before.Cache.IsExpired {
		m.config.cache.ClearCache()
		actions = append(actions, "Cleared expired cache")
	}

	if m.warmUpCache(ctx) {
		actions = append(actions, "Warmed up cache")
	} else {
		actions = append(actions, "Skipped cache warm-up: no valid persisted preference")
	}

	after := m.GetStorageUsage(ctx)
	return ok(OptimizeData{
		Optimized: true,
		Actions:   actions,
		Performance: PerformanceReport{
			Before:      before,
			After:       after,
			Improvement: before.totalUsed() - after.totalUsed(),
			Elapsed:     time.Since(start),
		},
	})
}
