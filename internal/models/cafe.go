package models

import "time"

// Cafe is a submitted cafe with its opening hours and amenity ratings.
type Cafe struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Name         string    `json:"name" gorm:"uniqueIndex;type:varchar(250);not null"`
	LocationURL  string    `json:"location_url" gorm:"type:varchar(250);not null"`
	OpenTime     string    `json:"open" gorm:"type:varchar(250)"`
	CloseTime    string    `json:"close" gorm:"type:varchar(250)"`
	CoffeeRating Rating    `json:"coffee_rating"`
	WifiRating   Rating    `json:"wifi_rating"`
	PowerRating  Rating    `json:"power_rating"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName overrides GORM's inflection, which would pick "caves".
func (Cafe) TableName() string { return "cafes" }

func (c Cafe) CoffeeLabel() string { return CoffeeScale.Label(c.CoffeeRating) }
func (c Cafe) WifiLabel() string   { return WifiScale.Label(c.WifiRating) }
func (c Cafe) PowerLabel() string  { return PowerScale.Label(c.PowerRating) }
