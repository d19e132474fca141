package aula

import (
	"context"
	"encoding/json"
)

// ProfileFetcher retrieves the guardian's profile set, from which the child
// list is derived.
type ProfileFetcher struct {
	session *Session
}

// NewProfileFetcher creates a new ProfileFetcher.
func NewProfileFetcher(session *Session) *ProfileFetcher {
	return &ProfileFetcher{session: session}
}

// Fetch returns the raw profiles payload. It always asks the platform,
// so a refresh picks up children added mid-session.
func (f *ProfileFetcher) Fetch(ctx context.Context) (json.RawMessage, error) {
	env, err := f.session.Get(ctx, "profiles.getProfilesByLogin", nil)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}
