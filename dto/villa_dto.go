package dto

import "villa-api/domain"

// VillaDTO is the wire representation of a villa.
// ID is only sent by the client on PUT; on POST it must be zero.
// The validate tags are used both by gin binding and by the patch check.
type VillaDTO struct {
	ID        uint    `json:"id"`
	Name      string  `json:"name" binding:"required,max=30" validate:"required,max=30"`
	Sqft      int     `json:"sqft" binding:"gte=0" validate:"gte=0"`
	Occupancy int     `json:"occupancy" binding:"gte=0" validate:"gte=0"`
	Rate      float64 `json:"rate" binding:"gte=0" validate:"gte=0"`
	Amenity   string  `json:"amenity"`
	Details   string  `json:"details"`
	ImageURL  string  `json:"imageUrl" binding:"omitempty,url" validate:"omitempty,url"`
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// FromDomain maps a stored villa to its wire form.
func FromDomain(v domain.Villa) VillaDTO {
	return VillaDTO{
		ID:        v.ID,
		Name:      v.Name,
		Sqft:      v.Sqft,
		Occupancy: v.Occupancy,
		Rate:      v.Rate,
		Amenity:   v.Amenity,
		Details:   v.Details,
		ImageURL:  v.ImageURL,
	}
}

// FromDomainList maps a list; the result is never nil so it encodes as [].
func FromDomainList(villas []domain.Villa) []VillaDTO {
	out := make([]VillaDTO, 0, len(villas))
	for _, v := range villas {
		out = append(out, FromDomain(v))
	}
	return out
}

// ApplyTo copies the mutable fields onto v. ID and timestamps are left alone.
func (d VillaDTO) ApplyTo(v *domain.Villa) {
	v.Name = d.Name
	v.Sqft = d.Sqft
	v.Occupancy = d.Occupancy
	v.Rate = d.Rate
	v.Amenity = d.Amenity
	v.Details = d.Details
	v.ImageURL = d.ImageURL
}

// ToDomain builds a new storage entity from the DTO.
func (d VillaDTO) ToDomain() domain.Villa {
	v := domain.Villa{ID: d.ID}
	d.ApplyTo(&v)
	return v
}
