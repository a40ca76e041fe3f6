package facebook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-querystring/query"

	"social-dashboard/domain/model"
)

const defaultBaseURL = "https://graph.facebook.com"

// Graph error codes that mean "slow down" rather than "rejected".
var throttleCodes = map[int]bool{4: true, 17: true, 32: true, 341: true, 613: true}

type Config struct {
	PageID          string
	PageAccessToken string
	GraphVersion    string
	BaseURL         string
	Timeout         time.Duration
}

// Client publishes to a Facebook page through the Graph API.
type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.GraphVersion == "" {
		cfg.GraphVersion = "v19.0"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

type photoParams struct {
	URL         string `url:"url"`
	Published   bool   `url:"published"`
	AccessToken string `url:"access_token"`
}

type feedParams struct {
	Message     string `url:"message,omitempty"`
	AccessToken string `url:"access_token"`
}

type graphError struct {
	Error struct {
		Message     string `json:"message"`
		Type        string `json:"type"`
		Code        int    `json:"code"`
		IsTransient bool   `json:"is_transient"`
	} `json:"error"`
}

// Upload stages a photo as unpublished so it can be attached to the feed post.
func (c *Client) Upload(ctx context.Context, mediaURL, _ string) (string, error) {
	form, err := query.Values(photoParams{URL: mediaURL, AccessToken: c.cfg.PageAccessToken})
	if err != nil {
		return "", err
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, "photos", form, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *Client) Publish(ctx context.Context, content string, mediaIDs []string) (model.PostResult, error) {
	form, err := query.Values(feedParams{Message: content, AccessToken: c.cfg.PageAccessToken})
	if err != nil {
		return model.PostResult{}, err
	}
	for i, id := range mediaIDs {
		form.Set(fmt.Sprintf("attached_media[%d]", i), fmt.Sprintf(`{"media_fbid":"%s"}`, id))
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, "feed", form, &out); err != nil {
		return model.PostResult{}, err
	}
	return model.PostResult{
		Platform:    model.PlatformFacebook,
		ExternalRef: out.ID,
		URL:         "https://www.facebook.com/" + out.ID,
	}, nil
}

func (c *Client) post(ctx context.Context, edge string, form url.Values, out interface{}) error {
	endpoint := fmt.Sprintf("%s/%s/%s/%s", strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.GraphVersion, url.PathEscape(c.cfg.PageID), edge)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.http.Do(req)
	if err != nil {
		retryable := ctx.Err() == nil
		return &model.PlatformError{Message: "graph request failed: " + err.Error(), Retryable: &retryable}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &model.PlatformError{Message: "read graph response: " + err.Error(), StatusCode: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusOK {
		return toPlatformError(resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode graph response: %w", err)
	}
	return nil
}

func toPlatformError(status int, body []byte) *model.PlatformError {
	pe := &model.PlatformError{StatusCode: status, Message: fmt.Sprintf("facebook_post_failed: %s", strings.TrimSpace(string(body)))}
	var ge graphError
	if json.Unmarshal(body, &ge) != nil || ge.Error.Message == "" {
		return pe
	}
	pe.Message = ge.Error.Message
	if ge.Error.IsTransient || throttleCodes[ge.Error.Code] {
		retryable := true
		pe.Retryable = &retryable
	}
	return pe
}
