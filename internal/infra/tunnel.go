package infra

import (
	"context"
	"strings"

	"golang.ngrok.com/ngrok"
	"golang.ngrok.com/ngrok/config"
)

// OpenTunnel starts a public HTTPS endpoint whose connections are handed to
// the returned listener. An empty token means no tunnel: (nil, nil).
func OpenTunnel(ctx context.Context, authToken string) (ngrok.Tunnel, error) {
	authToken = strings.TrimSpace(authToken)
	if authToken == "" {
		return nil, nil
	}
	return ngrok.Listen(ctx, config.HTTPEndpoint(), ngrok.WithAuthtoken(authToken))
}
