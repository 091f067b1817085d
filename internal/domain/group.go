package domain

import "time"

// Group is a monitor group scoped to a team. Groups are created and deleted
// via explicit mutations, never updated in place.
type Group struct {
	ID          string    `json:"id"`
	DisplayID   string    `json:"displayId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// GroupInput is the payload for creating a group.
type GroupInput struct {
	Name        string `json:"name"`
	DisplayID   string `json:"displayId"`
	Description string `json:"description"`
}
