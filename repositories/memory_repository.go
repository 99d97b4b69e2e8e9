package repositories

import (
	"context"
	"sort"
	"strings"
	"sync"

	"villa-api/domain"
)

// memoryRepository keeps villas in a slice ordered by ID.
// Records are copied on the way in and out so callers never share memory
// with the store.
type memoryRepository struct {
	mu     sync.RWMutex
	villas []domain.Villa
}

// NewMemoryRepository creates an in-memory repository holding a copy of initial.
func NewMemoryRepository(initial ...domain.Villa) VillaRepository {
	villas := make([]domain.Villa, len(initial))
	copy(villas, initial)
	sort.Slice(villas, func(i, j int) bool { return villas[i].ID < villas[j].ID })
	return &memoryRepository{villas: villas}
}

// List returns a copy of every villa ordered by ID.
func (r *memoryRepository) List(_ context.Context) ([]domain.Villa, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Villa, len(r.villas))
	copy(out, r.villas)
	return out, nil
}

// FindByID returns a copy of the villa with the given ID.
func (r *memoryRepository) FindByID(_ context.Context, id uint) (*domain.Villa, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexOf(id)
	if i < 0 {
		return nil, ErrVillaNotFound
	}
	v := r.villas[i]
	return &v, nil
}

// FindByName returns the first villa whose name matches ignoring case.
func (r *memoryRepository) FindByName(_ context.Context, name string) (*domain.Villa, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, v := range r.villas {
		if strings.EqualFold(v.Name, name) {
			found := v
			return &found, nil
		}
	}
	return nil, ErrVillaNotFound
}

// Add stores a copy of villa in ID order.
func (r *memoryRepository) Add(_ context.Context, villa *domain.Villa) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexOf(villa.ID) >= 0 {
		return ErrDuplicateID
	}
	if r.nameTaken(villa) {
		return ErrDuplicateName
	}
	// keep the slice ordered; IDs are normally increasing so this is an append
	i := sort.Search(len(r.villas), func(i int) bool { return r.villas[i].ID > villa.ID })
	r.villas = append(r.villas, domain.Villa{})
	copy(r.villas[i+1:], r.villas[i:])
	r.villas[i] = *villa
	return nil
}

// Update replaces the stored villa that has the same ID.
func (r *memoryRepository) Update(_ context.Context, villa *domain.Villa) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(villa.ID)
	if i < 0 {
		return ErrVillaNotFound
	}
	if r.nameTaken(villa) {
		return ErrDuplicateName
	}
	r.villas[i] = *villa
	return nil
}

// Remove deletes the villa with the given ID.
func (r *memoryRepository) Remove(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return ErrVillaNotFound
	}
	r.villas = append(r.villas[:i], r.villas[i+1:]...)
	return nil
}

// nameTaken reports whether a villa other than villa.ID uses its name.
// It must be called with the lock held.
func (r *memoryRepository) nameTaken(villa *domain.Villa) bool {
	for _, v := range r.villas {
		if v.ID != villa.ID && strings.EqualFold(v.Name, villa.Name) {
			return true
		}
	}
	return false
}

// indexOf must be called with the lock held.
func (r *memoryRepository) indexOf(id uint) int {
	i := sort.Search(len(r.villas), func(i int) bool { return r.villas[i].ID >= id })
	if i < len(r.villas) && r.villas[i].ID == id {
		return i
	}
	return -1
}
