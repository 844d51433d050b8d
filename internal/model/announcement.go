package model

import "time"

// Announcement is a network-wide post written by an admin or moderator.
type Announcement struct {
	ID        string    `json:"id" db:"id"`
	AuthorID  string    `json:"author_id" db:"author_id"`
	Title     string    `json:"title" db:"title"`
	Body      string    `json:"body" db:"body"`
	Pinned    bool      `json:"pinned" db:"pinned"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Job is a position posted to the job board.
type Job struct {
	ID        string    `json:"id" db:"id"`
	PosterID  string    `json:"poster_id" db:"poster_id"`
	Title     string    `json:"title" db:"title"`
	Company   string    `json:"company" db:"company"`
	Location  string    `json:"location" db:"location"`
	Link      string    `json:"link" db:"link"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	ClosesAt  time.Time `json:"closes_at" db:"closes_at"`
}

// Event is a gathering hosted by a member or the institution.
type Event struct {
	ID          string    `json:"id" db:"id"`
	HostID      string    `json:"host_id" db:"host_id"`
	Title       string    `json:"title" db:"title"`
	Location    string    `json:"location" db:"location"`
	Description string    `json:"description" db:"description"`
	StartsAt    time.Time `json:"starts_at" db:"starts_at"`
	EndsAt      time.Time `json:"ends_at" db:"ends_at"`
}
