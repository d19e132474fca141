package model

import "time"

// GalleryItem is a single picture from an institution album.
type GalleryItem struct {
	ID           string    `json:"id"`
	Title        string    `json:"title,omitempty"`
	Description  string    `json:"description,omitempty"`
	URL          string    `json:"url"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	Created      time.Time `json:"created"`
}
