package reddit

import (
	"context"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// userAgentTransport stamps every outgoing request, token requests included;
// Reddit rejects requests without a descriptive User-Agent.
type userAgentTransport struct {
	userAgent string
	base      http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(r)
}

// passwordTokenSource re-runs the password grant whenever the cached token
// expires. Reddit does not hand out refresh tokens for script apps.
type passwordTokenSource struct {
	ctx      context.Context
	conf     *oauth2.Config
	username string
	password string
}

func (s *passwordTokenSource) Token() (*oauth2.Token, error) {
	return s.conf.PasswordCredentialsToken(s.ctx, s.username, s.password)
}

func newOAuthClient(ctx context.Context, opts Options, userAgent string, timeout time.Duration) *http.Client {
	tokenURL := strings.TrimSpace(opts.TokenURL)
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	base := &userAgentTransport{userAgent: userAgent, base: http.DefaultTransport}
	tokenCtx := context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: timeout, Transport: base})

	var src oauth2.TokenSource
	if opts.Username != "" && opts.Password != "" {
		conf := &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		}
		src = oauth2.ReuseTokenSource(nil, &passwordTokenSource{
			ctx:      tokenCtx,
			conf:     conf,
			username: opts.Username,
			password: opts.Password,
		})
	} else {
		conf := &clientcredentials.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		}
		src = conf.TokenSource(tokenCtx)
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: &oauth2.Transport{Source: src, Base: base},
	}
}
