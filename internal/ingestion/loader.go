package ingestion

import (
	"context"
	"sync"

	"car-market-lab/internal/storage"
)

// State is the lifecycle state of a Loader.
type State string

const (
	StatePending State = "PENDING" // load not finished (or not started)
	StateReady   State = "READY"   // collection available (possibly empty)
)

// Source produces a collection. It is called at most once per Loader.
type Source func(ctx context.Context) (*Collection, error)

// FileSource loads listings from a JSON document on disk.
func FileSource(path string) Source {
	return func(_ context.Context) (*Collection, error) {
		return LoadFile(path)
	}
}

// StoreSource loads listings previously imported into a ListingStore.
func StoreSource(store storage.ListingStore) Source {
	return func(ctx context.Context) (*Collection, error) {
		listings, err := store.GetAll(ctx)
		if err != nil {
			return nil, err
		}
		return NewCollection(listings), nil
	}
}

// StaticSource returns an already-built collection.
func StaticSource(c *Collection) Source {
	return func(_ context.Context) (*Collection, error) {
		return c, nil
	}
}

// Loader performs the single asynchronous ingestion of a collection.
// Until the source returns, the loader is pending; consumers must treat
// that state explicitly instead of computing over an empty collection.
// A failing source degrades to an empty collection; the error is kept for reporting.
type Loader struct {
	source Source

	once sync.Once
	done chan struct{}

	mu   sync.RWMutex
	coll *Collection
	err  error
}

// NewLoader creates a loader for source. Nothing is read until Start.
func NewLoader(source Source) *Loader {
	return &Loader{
		source: source,
		done:   make(chan struct{}),
	}
}

// Start begins loading in the background. Subsequent calls are no-ops.
// The load is not cancellable once started; ctx is passed to the source only.
func (l *Loader) Start(ctx context.Context) {
	l.once.Do(func() {
		go l.run(context.WithoutCancel(ctx))
	})
}

func (l *Loader) run(ctx context.Context) {
	defer close(l.done)

	coll, err := l.source(ctx)
	if coll == nil {
		coll = Empty()
	}

	l.mu.Lock()
	l.coll = coll
	l.err = err
	l.mu.Unlock()
}

// State returns the current lifecycle state.
func (l *Loader) State() State {
	select {
	case <-l.done:
		return StateReady
	default:
		return StatePending
	}
}

// Done is closed once the load has finished.
func (l *Loader) Done() <-chan struct{} {
	return l.done
}

// Collection returns the loaded collection; ok is false while pending.
func (l *Loader) Collection() (*Collection, bool) {
	if l.State() != StateReady {
		return nil, false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.coll, true
}

// Err returns the source error, if the load degraded to an empty collection.
func (l *Loader) Err() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.err
}

// Wait blocks until the load finishes or ctx is done.
// Starts the load if needed.
func (l *Loader) Wait(ctx context.Context) (*Collection, error) {
	l.Start(ctx)
	select {
	case <-l.done:
		c, _ := l.Collection()
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
