package repositories

import (
	"context"
	"errors"

	"villa-api/domain"
)

// ErrVillaNotFound is returned by every backend when no record matches.
var ErrVillaNotFound = errors.New("villa not found")

// ErrDuplicateID is returned by Add when the ID is already taken.
var ErrDuplicateID = errors.New("villa id already exists")

// ErrDuplicateName is returned by Add and Update when another villa
// already uses the name, compared case-insensitively.
var ErrDuplicateName = errors.New("villa name already exists")

// VillaRepository is the storage contract the service works against.
// Every mutation is committed by the time it returns.
type VillaRepository interface {
	List(ctx context.Context) ([]domain.Villa, error)
	FindByID(ctx context.Context, id uint) (*domain.Villa, error)
	// FindByName matches case-insensitively.
	FindByName(ctx context.Context, name string) (*domain.Villa, error)
	Add(ctx context.Context, villa *domain.Villa) error
	Update(ctx context.Context, villa *domain.Villa) error
	Remove(ctx context.Context, id uint) error
}

// Seed inserts the given villas when the repository is empty.
// It returns the number of records added.
func Seed(ctx context.Context, repo VillaRepository, villas []domain.Villa) (int, error) {
	existing, err := repo.List(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}
	for i := range villas {
		v := villas[i]
		if err := repo.Add(ctx, &v); err != nil {
			return i, err
		}
	}
	return len(villas), nil
}
