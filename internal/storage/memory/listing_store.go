package memory

import (
	"context"
	"sync"

	"car-market-lab/internal/domain"
	"car-market-lab/internal/storage"
)

// ListingStore is an in-memory implementation of storage.ListingStore.
type ListingStore struct {
	mu    sync.RWMutex
	data  map[string]*domain.Listing // keyed by listing ID
	order []string                   // IDs in insertion order
}

// NewListingStore creates a new in-memory listing store.
func NewListingStore() *ListingStore {
	return &ListingStore{
		data: make(map[string]*domain.Listing),
	}
}

func validListing(l *domain.Listing) bool {
	return l != nil && l.ID != "" && l.URL != ""
}

// Insert adds a new listing. Returns ErrDuplicateKey if the ID exists.
func (s *ListingStore) Insert(_ context.Context, l *domain.Listing) error {
	if !validListing(l) {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[l.ID]; exists {
		return storage.ErrDuplicateKey
	}
	s.put(l)
	return nil
}

// InsertBulk adds multiple listings atomically. Fails entire batch on any duplicate.
func (s *ListingStore) InsertBulk(_ context.Context, listings []*domain.Listing) error {
	if len(listings) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole batch before touching state
	seen := make(map[string]struct{}, len(listings))
	for _, l := range listings {
		if !validListing(l) {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[l.ID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := seen[l.ID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[l.ID] = struct{}{}
	}

	for _, l := range listings {
		s.put(l)
	}
	return nil
}

// InsertMissing adds the listings whose ID is not yet stored.
func (s *ListingStore) InsertMissing(_ context.Context, listings []*domain.Listing) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := 0
	for _, l := range listings {
		if !validListing(l) {
			return inserted, storage.ErrInvalidInput
		}
		if _, exists := s.data[l.ID]; exists {
			continue
		}
		s.put(l)
		inserted++
	}
	return inserted, nil
}

// put stores a copy. Caller must hold the write lock.
func (s *ListingStore) put(l *domain.Listing) {
	listingCopy := *l
	s.data[l.ID] = &listingCopy
	s.order = append(s.order, l.ID)
}

// GetByID retrieves a listing by ID. Returns ErrNotFound if not exists.
func (s *ListingStore) GetByID(_ context.Context, id string) (*domain.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}

	listingCopy := *l
	return &listingCopy, nil
}

// GetAll retrieves every listing in insertion order.
func (s *ListingStore) GetAll(_ context.Context) ([]*domain.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Listing, 0, len(s.order))
	for _, id := range s.order {
		listingCopy := *s.data[id]
		result = append(result, &listingCopy)
	}
	return result, nil
}

// Count returns the number of stored listings.
func (s *ListingStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data), nil
}

// Verify interface compliance at compile time.
var _ storage.ListingStore = (*ListingStore)(nil)
