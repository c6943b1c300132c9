package model

import "time"

// Item represents a reported found item.
type Item struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	DateFound     string    `json:"date_found"`
	Location      string    `json:"location,omitempty"`
	Status        string    `json:"status"`
	ImageFilename string    `json:"image_filename,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Item statuses.
const (
	ItemStatusAvailable = "available"
	ItemStatusClaimed   = "claimed"
)

// ValidStatus reports whether s is a known item status.
func ValidStatus(s string) bool {
	return s == ItemStatusAvailable || s == ItemStatusClaimed
}

// DateLayout is the storage format for date_found.
const DateLayout = "2006-01-02"

// ValidDate reports whether s is a well-formed YYYY-MM-DD date.
func ValidDate(s string) bool {
	t, err := time.Parse(DateLayout, s)
	return err == nil && t.Format(DateLayout) == s
}

// Today returns the current local date in storage format.
func Today() string {
	return time.Now().Format(DateLayout)
}
