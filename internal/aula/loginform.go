package aula

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxHTMLBytes = 2 << 20

var errNoLoginForm = errors.New("no login form on page")

// loginForm is one hop of the identity-broker redirect chain: a form action
// plus every named input on the page. Hidden fields must be echoed back
// verbatim on the next POST; credential fields are overwritten by the caller.
type loginForm struct {
	Action string
	Fields url.Values
}

// extractLoginForm pulls the first <form> action and all named inputs out of
// a login-chain page. The action is resolved against the page URL because
// some brokers emit relative actions.
func extractLoginForm(body io.Reader, page *url.URL) (*loginForm, error) {
	doc, err := goquery.NewDocumentFromReader(io.LimitReader(body, maxHTMLBytes))
	if err != nil {
		return nil, fmt.Errorf("parse login page: %w", err)
	}

	form := doc.Find("form").First()
	if form.Length() == 0 {
		return nil, errNoLoginForm
	}
	action := strings.TrimSpace(form.AttrOr("action", ""))
	if action == "" {
		return nil, errNoLoginForm
	}
	if page != nil {
		if ref, err := url.Parse(action); err == nil {
			action = page.ResolveReference(ref).String()
		}
	}

	fields := url.Values{}
	doc.Find("input").Each(func(_ int, input *goquery.Selection) {
		name, hasName := input.Attr("name")
		value, hasValue := input.Attr("value")
		if hasName && hasValue {
			fields.Set(name, value)
		}
	})

	return &loginForm{Action: action, Fields: fields}, nil
}
