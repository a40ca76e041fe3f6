package pubsub

import (
	"context"
	"errors"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// NewPubSub creates the client. An empty credentials file falls back to
// application default credentials.
func NewPubSub(ctx context.Context, projectID, credentialsFile string) (*pubsub.Client, error) {
	if projectID == "" {
		return nil, errors.New("pubsub project id not configured")
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	return pubsub.NewClient(ctx, projectID, opts...)
}
