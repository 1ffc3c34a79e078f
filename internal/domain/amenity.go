package domain

import "time"

type Amenity struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Icon      *string   `json:"icon,omitempty"`
	Category  *string   `json:"category,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DefaultAmenities is the catalogue seeded by estatectl.
var DefaultAmenities = []struct{ Name, Icon, Category string }{
	{"Swimming Pool", "pool", "outdoor"},
	{"Garden", "tree", "outdoor"},
	{"Balcony", "balcony", "outdoor"},
	{"Garage", "car", "parking"},
	{"Covered Parking", "parking", "parking"},
	{"Gym", "dumbbell", "building"},
	{"Elevator", "elevator", "building"},
	{"Security", "shield", "building"},
	{"Air Conditioning", "snowflake", "interior"},
	{"Heating", "flame", "interior"},
	{"Fireplace", "fire", "interior"},
	{"Washer/Dryer", "washer", "interior"},
	{"Pet Friendly", "paw", "policy"},
	{"Wheelchair Access", "wheelchair", "policy"},
}
