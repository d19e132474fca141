package aula

import (
	"context"
	"encoding/json"
	"net/url"
)

// PresenceFetcher retrieves the daily check-in overview per child.
type PresenceFetcher struct {
	session *Session
}

// NewPresenceFetcher creates a new PresenceFetcher.
func NewPresenceFetcher(session *Session) *PresenceFetcher {
	return &PresenceFetcher{session: session}
}

// FetchDailyOverview returns the raw daily overview for one child. The
// platform answers an empty list for children without presence modules;
// that is data, not an error.
func (f *PresenceFetcher) FetchDailyOverview(ctx context.Context, childID string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("childIds[]", childID)

	env, err := f.session.Get(ctx, "presence.getDailyOverview", params)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}
