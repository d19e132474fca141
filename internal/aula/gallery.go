package aula

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
)

// GalleryFetcher retrieves institution photo albums.
type GalleryFetcher struct {
	session *Session
}

// NewGalleryFetcher creates a new GalleryFetcher.
func NewGalleryFetcher(session *Session) *GalleryFetcher {
	return &GalleryFetcher{session: session}
}

// FetchAlbums returns the raw album list for the given institution profile ids.
func (f *GalleryFetcher) FetchAlbums(ctx context.Context, profileIDs []string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("institutionProfileIds", strings.Join(profileIDs, ","))
	params.Set("page", "0")

	env, err := f.session.Get(ctx, "gallery.getAlbums", params)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

// FetchAlbum returns one album's raw payload including its pictures.
func (f *GalleryFetcher) FetchAlbum(ctx context.Context, albumID string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("id", albumID)

	env, err := f.session.Get(ctx, "gallery.getAlbum", params)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}
