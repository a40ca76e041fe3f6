package model

// Post is the content a user fans out to several platforms
type Post struct {
	ID        string   `json:"id"`
	UserID    string   `json:"userId"`
	Content   string   `json:"content"`
	MediaURLs []string `json:"mediaUrls,omitempty"`
	MediaType string   `json:"mediaType,omitempty"`
}

// PostResult is what a platform returns for a published post.
type PostResult struct {
	Platform    Platform `json:"platform"`
	ExternalRef string   `json:"externalRef"`
	URL         string   `json:"url,omitempty"`
}

type PlatformFailure struct {
	Platform Platform `json:"platform"`
	Error    string   `json:"error"`
}

// PublishOutcome reports partial failure per platform rather than all-or-nothing.
type PublishOutcome struct {
	Success []Platform        `json:"success"`
	Results []PostResult      `json:"results,omitempty"`
	Failed  []PlatformFailure `json:"failed"`
}
