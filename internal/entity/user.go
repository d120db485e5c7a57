package entity

import "time"

// User is a recognized client, remembered for owner broadcasts.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}
