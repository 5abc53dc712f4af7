// Package credential decides how the agent authenticates to the Lex Machina
// API and produces the headers for every outgoing request.
//
// Resolution happens once at startup. The returned Credentials value is
// immutable and safe to share between goroutines.
package credential

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/lexmachina/lexmachina-agent/internal/config"
	"github.com/lexmachina/lexmachina-agent/internal/domain"
)

type Method string

const (
	MethodBearerToken             Method = "bearer_token"
	MethodOAuth2ClientCredentials Method = "oauth2_client_credentials"
	MethodDelegation              Method = "delegation_url"
)

func (m Method) String() string { return string(m) }

// Credentials is the resolved authentication method.
type Credentials struct {
	method        Method
	authorization string
}

func (c *Credentials) Method() Method { return c.method }

// Apply sets the auth headers on an outgoing request's header map.
func (c *Credentials) Apply(h http.Header) {
	h.Set("Authorization", c.authorization)
	h.Set("Accept", "application/json")
}

// Header returns a fresh copy of the auth headers.
func (c *Credentials) Header() http.Header {
	h := make(http.Header, 2)
	c.Apply(h)
	return h
}

// Static builds bearer credentials from an already known token.
func Static(token string) *Credentials {
	return &Credentials{method: MethodBearerToken, authorization: "Bearer " + token}
}

type Recorder interface {
	RecordTokenExchange(status string, duration time.Duration)
}

type options struct {
	httpClient *http.Client
	logger     *zap.Logger
	recorder   Recorder
}

type Option func(*options)

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithRecorder(r Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// Resolve picks the credential method from cfg. Precedence: API token, then
// client id + secret (exchanged for an access token here, blocking), then
// delegation URL (not implemented). No inputs at all is a
// MissingConfiguration error.
func Resolve(ctx context.Context, auth config.AuthConfig, api config.APIConfig, opts ...Option) (*Credentials, error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: api.Timeout}
	}

	switch {
	case auth.Token != "":
		o.logger.Warn("using API_TOKEN for authentication; prefer CLIENT_ID/CLIENT_SECRET or DELEGATION_URL")
		return Static(auth.Token), nil

	case auth.ClientID != "" && auth.ClientSecret != "":
		return exchange(ctx, auth, api, o)

	case auth.ClientID != "":
		return nil, missing("CLIENT_SECRET")

	case auth.ClientSecret != "":
		return nil, missing("CLIENT_ID")

	case auth.DelegationURL != "":
		return nil, &domain.Error{
			Kind: domain.ErrNotImplemented,
			Op:   "resolve credentials",
			Err:  errors.New("delegation url authentication is not supported yet"),
		}
	}

	return nil, &domain.Error{
		Kind:   domain.ErrMissingConfiguration,
		Op:     "resolve credentials",
		Reason: domain.ReasonMissingKey,
		Err:    errors.New("one of API_TOKEN, CLIENT_ID/CLIENT_SECRET or DELEGATION_URL is required"),
	}
}

func missing(key string) error {
	return &domain.Error{
		Kind:   domain.ErrMissingConfiguration,
		Op:     "resolve credentials",
		Reason: domain.ReasonMissingKey,
		Err:    fmt.Errorf("missing required configuration value: %s", key),
	}
}

func exchange(ctx context.Context, auth config.AuthConfig, api config.APIConfig, o options) (*Credentials, error) {
	cc := clientcredentials.Config{
		ClientID:     auth.ClientID,
		ClientSecret: auth.ClientSecret,
		TokenURL:     api.TokenEndpoint(),
		AuthStyle:    oauth2.AuthStyleInParams,
	}

	start := time.Now()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, o.httpClient)
	tok, err := cc.Token(ctx)
	if err != nil {
		if o.recorder != nil {
			o.recorder.RecordTokenExchange("error", time.Since(start))
		}

		de := &domain.Error{
			Kind:   domain.ErrUpstreamAuth,
			Op:     "oauth2 token exchange",
			Reason: domain.ClassifyTransport(err),
			Err:    err,
		}
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			de.Status = re.Response.StatusCode
			de.Reason = domain.ReasonHTTPStatus
		}
		o.logger.Error("oauth2 token request failed",
			zap.String("token_url", cc.TokenURL),
			zap.Int("status", de.Status),
		)
		return nil, de
	}

	if tok.AccessToken == "" {
		if o.recorder != nil {
			o.recorder.RecordTokenExchange("error", time.Since(start))
		}
		return nil, &domain.Error{
			Kind:   domain.ErrUpstreamAuth,
			Op:     "oauth2 token exchange",
			Reason: domain.ReasonNoTokenSent,
		}
	}

	if o.recorder != nil {
		o.recorder.RecordTokenExchange("success", time.Since(start))
	}
	o.logger.Info("oauth2 access token obtained",
		zap.String("token_type", tok.Type()),
		zap.Time("expiry", tok.Expiry),
	)

	return &Credentials{
		method:        MethodOAuth2ClientCredentials,
		authorization: "Bearer " + tok.AccessToken,
	}, nil
}
