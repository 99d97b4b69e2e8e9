package dto

import (
	"testing"
	"time"

	"villa-api/domain"

	"github.com/stretchr/testify/assert"
)

func TestToDomainAndBack(t *testing.T) {
	in := VillaDTO{
		ID: 4, Name: "Lake View", Sqft: 300, Occupancy: 3, Rate: 99.9,
		Amenity: "Dock", Details: "Quiet", ImageURL: "https://img.example.com/4.png",
	}
	assert.Equal(t, in, FromDomain(in.ToDomain()))
}

func TestApplyToKeepsIdentityAndDates(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	v := domain.Villa{ID: 1, Name: "Pool View", CreatedDate: created}

	VillaDTO{ID: 99, Name: "Pool View II", Sqft: 10}.ApplyTo(&v)

	assert.Equal(t, uint(1), v.ID)
	assert.Equal(t, created, v.CreatedDate)
	assert.Equal(t, "Pool View II", v.Name)
	assert.Equal(t, 10, v.Sqft)
}

func TestFromDomainList_NeverNil(t *testing.T) {
	assert.NotNil(t, FromDomainList(nil))
	assert.Len(t, FromDomainList(domain.SeedVillas()), 2)
}
