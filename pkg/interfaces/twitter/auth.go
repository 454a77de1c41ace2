package twitter

import (
	"fmt"
	"net/http"

	"github.com/mrjones/oauth"
)

const (
	RequestTokenURL   = "https://api.twitter.com/oauth/request_token"
	AuthorizeTokenURL = "https://api.twitter.com/oauth/authorize"
	AccessTokenURL    = "https://api.twitter.com/oauth/access_token"
)

// AuthMode is how lookups are authorized. User context gets the higher
// per-user rate limits, app-only auth is enough for public metrics.
type AuthMode string

const (
	AuthModeUser AuthMode = "oauth1_user"
	AuthModeApp  AuthMode = "app_bearer"
)

// Authenticator owns the HTTP client that carries credentials. In user mode
// the client signs each request itself; in app mode Do adds the bearer header.
type Authenticator struct {
	mode        AuthMode
	client      *http.Client
	bearerToken string
}

func NewAuthenticator(config *TwitterConfig) (*Authenticator, error) {
	switch {
	case config.HasUserAuth():
		consumer := oauth.NewConsumer(config.ConsumerKey, config.ConsumerSecret, oauth.ServiceProvider{
			RequestTokenUrl:   RequestTokenURL,
			AuthorizeTokenUrl: AuthorizeTokenURL,
			AccessTokenUrl:    AccessTokenURL,
		})
		consumer.HttpClient = &http.Client{Timeout: config.RequestTimeout}

		client, err := consumer.MakeHttpClient(&oauth.AccessToken{
			Token:  config.AccessToken,
			Secret: config.AccessTokenSecret,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create OAuth client: %w", err)
		}
		client.Timeout = config.RequestTimeout
		return &Authenticator{mode: AuthModeUser, client: client}, nil

	case config.BearerToken != "":
		return &Authenticator{
			mode:        AuthModeApp,
			client:      &http.Client{Timeout: config.RequestTimeout},
			bearerToken: config.BearerToken,
		}, nil

	default:
		return nil, fmt.Errorf("either OAuth 1.0a credentials or Bearer token must be provided")
	}
}

func (a *Authenticator) Mode() AuthMode {
	return a.mode
}

// Do sends req with the configured credentials.
func (a *Authenticator) Do(req *http.Request) (*http.Response, error) {
	if a.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+a.bearerToken)
	}
	return a.client.Do(req)
}
