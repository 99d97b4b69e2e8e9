package repositories

import (
	"context"
	"errors"

	"villa-api/domain"

	"gorm.io/gorm"
)

// gormRepository stores villas in a relational table through gorm.
type gormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a repository backed by db.
// The villas table must already exist (see Migrate).
func NewGormRepository(db *gorm.DB) VillaRepository {
	return &gormRepository{db: db}
}

// Migrate creates or updates the villas table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.Villa{})
}

// List runs SELECT * FROM villas ORDER BY id
func (r *gormRepository) List(ctx context.Context) ([]domain.Villa, error) {
	var villas []domain.Villa
	err := r.db.WithContext(ctx).Order("id").Find(&villas).Error
	return villas, err
}

// FindByID loads the villa by primary key.
func (r *gormRepository) FindByID(ctx context.Context, id uint) (*domain.Villa, error) {
	var villa domain.Villa
	err := r.db.WithContext(ctx).First(&villa, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVillaNotFound
		}
		return nil, err
	}
	return &villa, nil
}

// FindByName matches name ignoring case, whatever the column collation is.
func (r *gormRepository) FindByName(ctx context.Context, name string) (*domain.Villa, error) {
	var villa domain.Villa
	err := r.db.WithContext(ctx).Where("LOWER(name) = LOWER(?)", name).First(&villa).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVillaNotFound
		}
		return nil, err
	}
	return &villa, nil
}

// Add inserts the villa with the ID it already carries.
// Both unique keys are checked first so the caller learns which one
// clashed; a unique index violation does not say which index fired.
func (r *gormRepository) Add(ctx context.Context, villa *domain.Villa) error {
	db := r.db.WithContext(ctx)
	if err := keysFree(db, villa); err != nil {
		return err
	}

	err := db.Create(villa).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// a concurrent insert won; look again to name the key it took
		if err := keysFree(db, villa); err != nil {
			return err
		}
		return ErrDuplicateID
	}
	return err
}

// Update overwrites every column of an existing row.
// gorm's Save would insert a missing row, so existence is checked first
// inside the same transaction.
func (r *gormRepository) Update(ctx context.Context, villa *domain.Villa) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.Villa
		if err := tx.Select("id").First(&existing, villa.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrVillaNotFound
			}
			return err
		}
		if err := nameTaken(tx, villa); err != nil {
			return err
		}

		err := tx.Save(villa).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateName
		}
		return err
	})
}

// Remove deletes the row with the given id.
func (r *gormRepository) Remove(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&domain.Villa{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVillaNotFound
	}
	return nil
}

// keysFree returns ErrDuplicateID or ErrDuplicateName when another row
// already holds villa's id or name.
func keysFree(db *gorm.DB, villa *domain.Villa) error {
	var count int64
	if err := db.Model(&domain.Villa{}).Where("id = ?", villa.ID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrDuplicateID
	}
	return nameTaken(db, villa)
}

// nameTaken returns ErrDuplicateName when a row other than villa uses its name.
func nameTaken(tx *gorm.DB, villa *domain.Villa) error {
	var count int64
	err := tx.Model(&domain.Villa{}).
		Where("id <> ? AND LOWER(name) = LOWER(?)", villa.ID, villa.Name).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrDuplicateName
	}
	return nil
}
