package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// overfetchFactor widens queries whose filter the store cannot apply itself.
const overfetchFactor = 4

// IndexManager owns the consistency of stored vectors per source.
// Replacing a source is a critical section per source value; queries take no lock.
type IndexManager struct {
	store driven.VectorStore
	cfg   domain.IndexingConfig
	dim   int
	locks *sourceLocks

	// sleep waits between write attempts. Replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewIndexManager creates an index manager over store.
func NewIndexManager(store driven.VectorStore, cfg domain.Config) *IndexManager {
	return &IndexManager{
		store: store,
		cfg:   cfg.Indexing,
		dim:   cfg.Embedding.ResolvedDimensions(),
		locks: newSourceLocks(),
		sleep: sleepContext,
	}
}

// ReplaceSource deletes every record of source and writes records in bounded
// batches. It returns the number of records written. On failure the error is
// an *domain.IndexWriteFailedError carrying the count written before it.
func (m *IndexManager) ReplaceSource(ctx context.Context, source string, records []domain.VectorRecord) (int, error) {
	if source == "" {
		return 0, fmt.Errorf("%w: empty source", domain.ErrInvalidInput)
	}
	for _, r := range records {
		if r.Source != source {
			return 0, fmt.Errorf("%w: record %s belongs to %q, not %q", domain.ErrInvalidInput, r.ID, r.Source, source)
		}
		if err := domain.CheckDimension(r.ID, r.Vector, m.dim); err != nil {
			return 0, err
		}
	}

	unlock := m.locks.lock(source)
	defer unlock()

	fail := func(written int, err error) (int, error) {
		return written, &domain.IndexWriteFailedError{Source: source, Written: written, Total: len(records), Err: err}
	}

	var removed int
	err := m.withRetry(ctx, "delete "+source, func() error {
		var err error
		removed, err = m.store.DeleteBySource(ctx, source)
		return err
	})
	if err != nil {
		return fail(0, err)
	}
	logger.Debug("removed %d stale records of %s", removed, source)

	batchSize := max(m.cfg.UpsertBatchSize, 1)
	if limit := m.store.Capabilities().MaxBatchSize; limit > 0 && limit < batchSize {
		batchSize = limit
	}

	written := 0
	for start := 0; start < len(records); start += batchSize {
		batch := records[start:min(start+batchSize, len(records))]
		err := m.withRetry(ctx, "upsert "+source, func() error {
			return m.store.Upsert(ctx, batch)
		})
		if err != nil {
			return fail(written, err)
		}
		written += len(batch)
	}
	return written, nil
}

// RemoveSource deletes every record of source.
func (m *IndexManager) RemoveSource(ctx context.Context, source string) (int, error) {
	if source == "" {
		return 0, fmt.Errorf("%w: empty source", domain.ErrInvalidInput)
	}

	unlock := m.locks.lock(source)
	defer unlock()

	n, err := m.store.DeleteBySource(ctx, source)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrIndexUnreachable, err)
	}
	return n, nil
}

// Query returns up to k results by descending score, ties broken by chunk id.
// The content type filter is applied by the store when it can. Otherwise the
// store is over-fetched, widening until k results match or the store runs out,
// and the results are filtered here before truncation.
func (m *IndexManager) Query(
	ctx context.Context, vector []float32, k int, filter domain.ContentType,
) ([]domain.QueryResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive", domain.ErrInvalidInput)
	}
	if filter != "" && !filter.IsValid() {
		return nil, fmt.Errorf("%w: content type %q", domain.ErrInvalidInput, filter)
	}
	if err := domain.CheckDimension("query", vector, m.dim); err != nil {
		return nil, err
	}

	fetch := k
	widen := filter != "" && !m.store.Capabilities().FiltersContentType
	if widen {
		fetch = k * overfetchFactor
	}

	var results []domain.QueryResult
	for {
		raw, err := m.store.Query(ctx, vector, fetch, filter)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrIndexUnreachable, err)
		}
		results = withContentType(raw, filter)
		// A short page means the store has nothing more to give.
		if !widen || len(results) >= k || len(raw) < fetch {
			break
		}
		fetch *= overfetchFactor
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ChunkID < results[j].ChunkID
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func withContentType(results []domain.QueryResult, filter domain.ContentType) []domain.QueryResult {
	if filter == "" {
		return results
	}
	out := make([]domain.QueryResult, 0, len(results))
	for _, r := range results {
		if r.ContentType == filter {
			out = append(out, r)
		}
	}
	return out
}

// Health reports reachability and record count. It never fails.
func (m *IndexManager) Health(ctx context.Context) domain.IndexHealth {
	h := domain.IndexHealth{
		Backend:   m.store.Capabilities().Name,
		Dimension: m.dim,
	}
	count, err := m.store.Count(ctx)
	if err != nil {
		h.Error = err.Error()
		return h
	}
	h.Reachable = true
	h.RecordCount = count
	return h
}

// Sources summarises stored records per source.
func (m *IndexManager) Sources(ctx context.Context) ([]domain.SourceSummary, error) {
	sources, err := m.store.Sources(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrIndexUnreachable, err)
	}
	return sources, nil
}

// withRetry runs fn up to MaxWriteAttempts times with exponential back-off.
func (m *IndexManager) withRetry(ctx context.Context, op string, fn func() error) error {
	attempts := max(m.cfg.MaxWriteAttempts, 1)

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := m.backoff(attempt)
			logger.Warn("%s failed (attempt %d/%d), retrying in %v: %v", op, attempt, attempts, delay, err)
			if sleepErr := m.sleep(ctx, delay); sleepErr != nil {
				return errors.Join(err, sleepErr)
			}
		}
		if err = fn(); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
	}
	return err
}

// backoff returns RetryBaseDelay doubled per attempt, capped at RetryMaxDelay.
func (m *IndexManager) backoff(attempt int) time.Duration {
	base := m.cfg.RetryBaseDelay
	if base <= 0 {
		base = 200 * time.Millisecond
	}
	delay := base << (attempt - 1)
	if m.cfg.RetryMaxDelay > 0 && (delay > m.cfg.RetryMaxDelay || delay <= 0) {
		delay = m.cfg.RetryMaxDelay
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// sourceLocks hands out one mutex per source, released when unused.
type sourceLocks struct {
	mu    sync.Mutex
	locks map[string]*sourceLock
}

type sourceLock struct {
	mu   sync.Mutex
	refs int
}

func newSourceLocks() *sourceLocks {
	return &sourceLocks{locks: make(map[string]*sourceLock)}
}

// lock blocks until the caller holds source and returns the release function.
func (l *sourceLocks) lock(source string) func() {
	l.mu.Lock()
	sl, ok := l.locks[source]
	if !ok {
		sl = &sourceLock{}
		l.locks[source] = sl
	}
	sl.refs++
	l.mu.Unlock()

	sl.mu.Lock()
	return func() {
		sl.mu.Unlock()

		l.mu.Lock()
		sl.refs--
		if sl.refs == 0 {
			delete(l.locks, source)
		}
		l.mu.Unlock()
	}
}

// held returns the number of sources currently locked or awaited.
func (l *sourceLocks) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
