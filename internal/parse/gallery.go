package parse

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/skolegrid/aula-bridge/internal/model"
)

// AlbumRef is a slim album listing entry.
type AlbumRef struct {
	ID    string
	Title string
}

// Albums normalizes the album listing payload.
func Albums(payload json.RawMessage) ([]AlbumRef, Warnings, error) {
	var docs []struct {
		ID    flexID `json:"id"`
		Title string `json:"title"`
	}
	if err := json.Unmarshal(payload, &docs); err != nil {
		return nil, nil, fmt.Errorf("decode albums payload: %w", err)
	}

	var warnings Warnings
	refs := make([]AlbumRef, 0, len(docs))
	for _, d := range docs {
		if d.ID == "" {
			warnings.Addf("gallery", "skipped album without id")
			continue
		}
		refs = append(refs, AlbumRef{ID: d.ID.String(), Title: d.Title})
	}
	return refs, warnings, nil
}

// AlbumPictures normalizes one album's picture set.
func AlbumPictures(payload json.RawMessage, loc *time.Location) ([]model.GalleryItem, Warnings, error) {
	var doc struct {
		Pictures []struct {
			ID           flexID `json:"id"`
			Title        string `json:"title"`
			Description  string `json:"description"`
			URL          string `json:"url"`
			ThumbnailURL string `json:"thumbnailUrl"`
			Created      string `json:"created"`
		} `json:"pictures"`
	}
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, nil, fmt.Errorf("decode album payload: %w", err)
	}

	var warnings Warnings
	items := make([]model.GalleryItem, 0, len(doc.Pictures))
	for _, p := range doc.Pictures {
		if p.URL == "" {
			warnings.Addf("gallery", "skipped picture %s without url", p.ID)
			continue
		}
		item := model.GalleryItem{
			ID:           p.ID.String(),
			Title:        p.Title,
			Description:  p.Description,
			URL:          p.URL,
			ThumbnailURL: p.ThumbnailURL,
		}
		if p.Created != "" {
			if created, err := parseStamp(p.Created, loc); err == nil {
				item.Created = created
			} else {
				warnings.Addf("gallery", "picture %s: %v", p.ID, err)
			}
		}
		items = append(items, item)
	}
	return items, warnings, nil
}
