package models

import "time"

// User carries the known facts about a user. Any subset may be present.
// Facts are written only when extracted from a user-authored message or via
// the explicit profile-update tool; the model cannot invent facts that
// persist.
type User struct {
	ID string `json:"id"`

	Name          string `json:"name,omitempty"`
	BirthDate     string `json:"birth_date,omitempty"` // YYYY-MM-DD, Gregorian
	BirthTime     string `json:"birth_time,omitempty"` // HH:MM, 24h
	BirthLocation string `json:"birth_location,omitempty"`
	Gender        string `json:"gender,omitempty"` // "male" or "female"

	Longitude *float64 `json:"longitude,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasBirthData reports whether enough facts exist to compute the
// lowest-requirement chart (date + time + gender).
func (u *User) HasBirthData() bool {
	return u != nil && u.BirthDate != "" && u.BirthTime != "" && u.Gender != ""
}

// UserFacts is a partial update of user facts. Empty fields are left
// untouched; only non-zero values are written.
type UserFacts struct {
	Name          string
	BirthDate     string
	BirthTime     string
	BirthLocation string
	Gender        string
	Longitude     *float64
	Latitude      *float64
}

// IsZero reports whether the update carries no facts at all.
func (f UserFacts) IsZero() bool {
	return f.Name == "" && f.BirthDate == "" && f.BirthTime == "" &&
		f.BirthLocation == "" && f.Gender == "" && f.Longitude == nil && f.Latitude == nil
}
