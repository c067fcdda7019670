package reddit

import (
	"encoding/json"
	"strings"

	"github.com/ytget/dit/internal/model"
)

type loginResponse struct {
	JSON struct {
		Errors [][]any `json:"errors"`
		Data   struct {
			Cookie  string `json:"cookie"`
			Modhash string `json:"modhash"`
		} `json:"data"`
	} `json:"json"`
}

type listingResponse struct {
	Data struct {
		Children []struct {
			Data savedRecord `json:"data"`
		} `json:"children"`
		After *string `json:"after"`
	} `json:"data"`

	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
	JSON    *struct {
		Errors [][]any `json:"errors"`
	} `json:"json"`
}

type savedRecord struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	URL   string `json:"url"`
	// comments carry link_url/link_title instead of url/title
	LinkURL   string `json:"link_url"`
	LinkTitle string `json:"link_title"`
}

func (r savedRecord) toItem() model.SavedItem {
	item := model.SavedItem{ID: r.Name, Title: r.Title, URL: r.URL}
	if item.URL == "" {
		item.URL = r.LinkURL
	}
	if item.Title == "" {
		item.Title = r.LinkTitle
	}
	if item.Title == "" {
		item.Title = r.Name
	}
	return item
}

// apiError returns the remote failure the body reports, if any
func (l listingResponse) apiError(status int) *APIError {
	var remote []RemoteError
	if l.JSON != nil && len(l.JSON.Errors) > 0 {
		remote = parseRemoteErrors(l.JSON.Errors)
	}

	var msg string
	if raw := strings.TrimSpace(string(l.Error)); raw != "" && raw != "null" {
		msg = strings.Trim(raw, `"`)
		if l.Message != "" {
			msg = l.Message + " (" + msg + ")"
		}
	}

	if len(remote) == 0 && msg == "" {
		return nil
	}
	return &APIError{Status: status, Errors: remote, Message: msg}
}
