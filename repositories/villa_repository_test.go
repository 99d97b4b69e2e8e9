package repositories

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"villa-api/domain"
	"villa-api/logging"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newGormTestRepository(t *testing.T) VillaRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// every new connection would get its own empty in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, Migrate(db))
	return NewGormRepository(db)
}

func newCachedTestRepository(t *testing.T) VillaRepository {
	t.Helper()
	cached := NewCachedRepository(NewMemoryRepository(), CacheOptions{Logger: logging.Nop()})
	t.Cleanup(cached.Close)
	return cached
}

// runContract checks the behaviour every backend must share.
func runContract(t *testing.T, newRepo func(t *testing.T) VillaRepository) {
	ctx := context.Background()

	t.Run("empty list", func(t *testing.T) {
		repo := newRepo(t)
		villas, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, villas)
	})

	t.Run("add and find", func(t *testing.T) {
		repo := newRepo(t)
		created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
		in := domain.Villa{
			ID: 1, Name: "Pool View", Sqft: 400, Occupancy: 2, Rate: 120.5,
			Amenity: "Pool", Details: "Sea side", ImageURL: "https://img/1.png",
			CreatedDate: created, UpdatedDate: created,
		}
		require.NoError(t, repo.Add(ctx, &in))

		got, err := repo.FindByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, in.Name, got.Name)
		assert.Equal(t, in.Rate, got.Rate)
		assert.Equal(t, in.ImageURL, got.ImageURL)
		assert.True(t, in.CreatedDate.Equal(got.CreatedDate))

		byName, err := repo.FindByName(ctx, "POOL view")
		require.NoError(t, err)
		assert.Equal(t, uint(1), byName.ID)
	})

	t.Run("missing records", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.FindByID(ctx, 9)
		assert.ErrorIs(t, err, ErrVillaNotFound)
		_, err = repo.FindByName(ctx, "nope")
		assert.ErrorIs(t, err, ErrVillaNotFound)
		assert.ErrorIs(t, repo.Update(ctx, &domain.Villa{ID: 9, Name: "nope"}), ErrVillaNotFound)
		assert.ErrorIs(t, repo.Remove(ctx, 9), ErrVillaNotFound)
	})

	t.Run("duplicate id", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Add(ctx, &domain.Villa{ID: 1, Name: "A"}))
		assert.ErrorIs(t, repo.Add(ctx, &domain.Villa{ID: 1, Name: "B"}), ErrDuplicateID)
	})

	t.Run("duplicate name", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Add(ctx, &domain.Villa{ID: 1, Name: "Pool View"}))
		require.NoError(t, repo.Add(ctx, &domain.Villa{ID: 2, Name: "Beach View"}))

		assert.ErrorIs(t, repo.Add(ctx, &domain.Villa{ID: 3, Name: "pool VIEW"}), ErrDuplicateName)
		assert.ErrorIs(t, repo.Update(ctx, &domain.Villa{ID: 2, Name: "Pool View"}), ErrDuplicateName)
		// keeping its own name is not a clash
		assert.NoError(t, repo.Update(ctx, &domain.Villa{ID: 1, Name: "POOL VIEW", Sqft: 5}))

		got, err := repo.FindByID(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, "Beach View", got.Name)
		villas, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, villas, 2)
	})

	t.Run("list is ordered by id", func(t *testing.T) {
		repo := newRepo(t)
		for _, id := range []uint{3, 1, 2} {
			v := domain.Villa{ID: id, Name: fmt.Sprintf("Villa %d", id)}
			require.NoError(t, repo.Add(ctx, &v))
		}
		villas, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, villas, 3)
		assert.Equal(t, []uint{1, 2, 3}, []uint{villas[0].ID, villas[1].ID, villas[2].ID})
	})

	t.Run("update and remove", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Add(ctx, &domain.Villa{ID: 1, Name: "Pool View", Sqft: 400}))
		require.NoError(t, repo.Add(ctx, &domain.Villa{ID: 2, Name: "Beach View", Sqft: 500}))

		require.NoError(t, repo.Update(ctx, &domain.Villa{ID: 1, Name: "Pool View", Sqft: 999}))
		got, err := repo.FindByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 999, got.Sqft)

		require.NoError(t, repo.Remove(ctx, 1))
		villas, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, villas, 1)
		assert.Equal(t, uint(2), villas[0].ID)
		assert.Equal(t, 500, villas[0].Sqft)
	})

	t.Run("seed only when empty", func(t *testing.T) {
		repo := newRepo(t)
		n, err := Seed(ctx, repo, domain.SeedVillas())
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = Seed(ctx, repo, domain.SeedVillas())
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestMemoryRepository(t *testing.T) {
	runContract(t, func(*testing.T) VillaRepository { return NewMemoryRepository() })
}

func TestGormRepository(t *testing.T) {
	runContract(t, newGormTestRepository)
}

func TestCachedRepository(t *testing.T) {
	runContract(t, newCachedTestRepository)
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	repo := NewMemoryRepository(domain.Villa{ID: 1, Name: "Pool View"})
	ctx := context.Background()

	got, err := repo.FindByID(ctx, 1)
	require.NoError(t, err)
	got.Name = "changed"

	list, err := repo.List(ctx)
	require.NoError(t, err)
	list[0].Sqft = 77

	again, err := repo.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Pool View", again.Name)
	assert.Zero(t, again.Sqft)
}

// countingRepository counts FindByID calls that reach the store.
type countingRepository struct {
	VillaRepository
	finds atomic.Int32
}

func (r *countingRepository) FindByID(ctx context.Context, id uint) (*domain.Villa, error) {
	r.finds.Add(1)
	return r.VillaRepository.FindByID(ctx, id)
}

func TestCachedRepository_ServesRepeatedReadsFromCache(t *testing.T) {
	store := &countingRepository{VillaRepository: NewMemoryRepository(domain.SeedVillas()...)}
	cached := NewCachedRepository(store, CacheOptions{MaxSize: 10})
	defer cached.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		v, err := cached.FindByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "Pool View", v.Name)
	}
	assert.Equal(t, int32(1), store.finds.Load())

	// callers cannot corrupt the cached entry
	v, _ := cached.FindByID(ctx, 1)
	v.Name = "mutated"
	again, _ := cached.FindByID(ctx, 1)
	assert.Equal(t, "Pool View", again.Name)
}

func TestCachedRepository_InvalidatesOnWrite(t *testing.T) {
	store := &countingRepository{VillaRepository: NewMemoryRepository(domain.SeedVillas()...)}
	cached := NewCachedRepository(store, CacheOptions{})
	defer cached.Close()
	ctx := context.Background()

	_, err := cached.FindByID(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, cached.Update(ctx, &domain.Villa{ID: 1, Name: "Pool View", Sqft: 401}))
	v, err := cached.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 401, v.Sqft)
	assert.Equal(t, int32(2), store.finds.Load())

	require.NoError(t, cached.Remove(ctx, 1))
	_, err = cached.FindByID(ctx, 1)
	assert.ErrorIs(t, err, ErrVillaNotFound)
}

func TestCachedRepository_DoesNotCacheMisses(t *testing.T) {
	cached := NewCachedRepository(NewMemoryRepository(), CacheOptions{})
	defer cached.Close()
	ctx := context.Background()

	_, err := cached.FindByID(ctx, 1)
	require.ErrorIs(t, err, ErrVillaNotFound)

	require.NoError(t, cached.Add(ctx, &domain.Villa{ID: 1, Name: "Pool View"}))
	v, err := cached.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Pool View", v.Name)
}

// racingRepository runs afterLoad once, between reading a villa from the
// store and handing it back.
type racingRepository struct {
	VillaRepository
	afterLoad func()
}

func (r *racingRepository) FindByID(ctx context.Context, id uint) (*domain.Villa, error) {
	v, err := r.VillaRepository.FindByID(ctx, id)
	if hook := r.afterLoad; hook != nil {
		r.afterLoad = nil
		hook()
	}
	return v, err
}

func TestCachedRepository_WriteDuringLoadWins(t *testing.T) {
	store := &racingRepository{VillaRepository: NewMemoryRepository(domain.SeedVillas()...)}
	cached := NewCachedRepository(store, CacheOptions{})
	defer cached.Close()
	ctx := context.Background()

	store.afterLoad = func() {
		require.NoError(t, cached.Update(ctx, &domain.Villa{ID: 1, Name: "Pool View", Sqft: 401}))
	}
	loaded, err := cached.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 400, loaded.Sqft)

	v, err := cached.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 401, v.Sqft)
}
