package atlassian

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// Credentials is the opaque authorization context for one product.
// Atlassian cloud accepts either API-token basic auth (email + token)
// or an OAuth 2.0 bearer token. The traversal engine never sees these;
// they stop at the connector's HTTP client.
type Credentials struct {
	// Email pairs with APIToken for basic auth.
	Email string

	// APIToken is the Atlassian API token used with Email.
	APIToken string

	// BearerToken is an OAuth 2.0 access token, used when Email is
	// empty.
	BearerToken string
}

// Configured reports whether any usable credential is present.
func (c Credentials) Configured() bool {
	return (c.Email != "" && c.APIToken != "") || c.BearerToken != ""
}

// httpClient builds an authorized HTTP client for the credentials.
// Bearer tokens go through oauth2's transport; email+token pairs use a
// basic-auth transport. Unconfigured credentials yield an anonymous
// client, which the remote will reject with 401 soon enough.
func (c Credentials) httpClient(ctx context.Context, timeout time.Duration) *http.Client {
	var client *http.Client
	switch {
	case c.Email != "" && c.APIToken != "":
		client = &http.Client{
			Transport: &basicAuthTransport{email: c.Email, token: c.APIToken},
		}
	case c.BearerToken != "":
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: c.BearerToken})
		client = oauth2.NewClient(ctx, src)
	default:
		client = &http.Client{}
	}
	client.Timeout = timeout
	return client
}

// basicAuthTransport adds Atlassian API-token basic auth to every
// request.
type basicAuthTransport struct {
	email string
	token string
	base  http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	clone := req.Clone(req.Context())
	clone.SetBasicAuth(t.email, t.token)
	return base.RoundTrip(clone)
}
