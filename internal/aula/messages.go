package aula

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

// MessageFetcher retrieves message threads and their contents.
type MessageFetcher struct {
	session *Session
}

// NewMessageFetcher creates a new MessageFetcher.
func NewMessageFetcher(session *Session) *MessageFetcher {
	return &MessageFetcher{session: session}
}

// FetchThreads returns the raw first page of threads, most recent first.
func (f *MessageFetcher) FetchThreads(ctx context.Context) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("sortOn", "date")
	params.Set("orderDirection", "desc")
	params.Set("page", "0")

	env, err := f.session.Get(ctx, "messaging.getThreads", params)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

// FetchThread returns the raw messages of one thread. sensitive reports
// threads the platform refuses to serve without MitID step-up; those are
// not errors, the caller renders a placeholder.
func (f *MessageFetcher) FetchThread(ctx context.Context, threadID string) (payload json.RawMessage, sensitive bool, err error) {
	params := url.Values{}
	params.Set("threadId", threadID)
	params.Set("page", "0")

	env, err := f.session.GetLenient(ctx, "messaging.getMessagesForThread", params)
	if err != nil {
		return nil, false, err
	}
	if env.Status.Code == http.StatusForbidden {
		return nil, true, nil
	}
	return env.Data, false, nil
}
