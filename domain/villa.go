package domain

import "time"

// Villa represents a villa record as it is stored.
// The same struct is used by every backend: gorm reads the gorm tags,
// the mongo driver reads the bson tags.
type Villa struct {
	ID          uint      `gorm:"primaryKey;autoIncrement:false" bson:"_id" json:"id"`
	Name        string    `gorm:"size:30;not null;uniqueIndex" bson:"name" json:"name"`
	Sqft        int       `bson:"sqft" json:"sqft"`
	Occupancy   int       `bson:"occupancy" json:"occupancy"`
	Rate        float64   `bson:"rate" json:"rate"`
	Amenity     string    `bson:"amenity" json:"amenity"`
	Details     string    `bson:"details" json:"details"`
	ImageURL    string    `gorm:"column:image_url" bson:"image_url" json:"imageUrl"`
	CreatedDate time.Time `bson:"created_date" json:"createdDate"`
	UpdatedDate time.Time `bson:"updated_date" json:"updatedDate"`
}

// TableName sets the table name used by gorm.
func (Villa) TableName() string {
	return "villas"
}

// SeedVillas returns the records a fresh store starts with.
func SeedVillas() []Villa {
	return []Villa{
		{ID: 1, Name: "Pool View", Sqft: 400, Occupancy: 2},
		{ID: 2, Name: "Beach View", Sqft: 500, Occupancy: 5},
	}
}
