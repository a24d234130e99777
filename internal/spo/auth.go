package spo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// defaultAccountsURL is the Azure ACS token service. SharePoint app-only
// access with a client secret goes through ACS rather than Entra ID v2.
const defaultAccountsURL = "https://accounts.accesscontrol.windows.net"

// sharePointPrincipal is the well-known SharePoint Online service principal.
const sharePointPrincipal = "00000003-0000-0ff1-ce00-000000000000"

// AppCredential is a service principal registered for SharePoint app-only access.
type AppCredential struct {
	TenantID     string
	ClientID     string
	ClientSecret string
}

// Validate reports which credential fields are missing.
func (c AppCredential) Validate() error {
	var errs []error

	if c.TenantID == "" {
		errs = append(errs, errors.New("tenant id must not be empty"))
	}

	if c.ClientID == "" {
		errs = append(errs, errors.New("client id must not be empty"))
	}

	if c.ClientSecret == "" {
		errs = append(errs, errors.New("client secret must not be empty"))
	}

	return errors.Join(errs...)
}

// TokenSource provides SharePoint bearer tokens. Defined here so the Client
// can be tested with static tokens.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// AppTokenSource performs the OAuth2 client-credentials exchange against ACS,
// requesting the SharePoint resource for one tenant domain. Every Token call
// performs a fresh exchange; nothing is cached.
type AppTokenSource struct {
	cfg        clientcredentials.Config
	httpClient *http.Client
	logger     *slog.Logger
	retry      retrier
}

// NewAppTokenSource creates a token source for the SharePoint tenant
// {domain}.sharepoint.com.
func NewAppTokenSource(cred AppCredential, domain string, httpClient *http.Client, logger *slog.Logger) *AppTokenSource {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &AppTokenSource{
		cfg:        acsConfig(defaultAccountsURL, cred, domain),
		httpClient: httpClient,
		logger:     logger,
		retry:      newRetrier(logger),
	}
}

// acsConfig builds the ACS flavour of client credentials: the client id is
// qualified with the tenant, credentials travel in the form body, and the
// audience is passed as a v1 "resource" parameter instead of a scope.
func acsConfig(accountsURL string, cred AppCredential, domain string) clientcredentials.Config {
	return clientcredentials.Config{
		ClientID:     cred.ClientID + "@" + cred.TenantID,
		ClientSecret: cred.ClientSecret,
		TokenURL:     accountsURL + "/" + url.PathEscape(cred.TenantID) + "/tokens/OAuth/2",
		AuthStyle:    oauth2.AuthStyleInParams,
		EndpointParams: url.Values{
			"resource": {fmt.Sprintf("%s/%s.sharepoint.com@%s", sharePointPrincipal, domain, cred.TenantID)},
		},
	}
}

// Token fetches a new access token.
func (s *AppTokenSource) Token(ctx context.Context) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)

	var tok *oauth2.Token

	err := s.retry.do(ctx, "token", func() error {
		t, err := s.cfg.Token(ctx)
		if err != nil {
			return tokenError(err)
		}

		tok = t

		return nil
	})
	if err != nil {
		s.logger.Warn("token acquisition failed", slog.String("error", err.Error()))
		return "", err
	}

	s.logger.Debug("token acquired",
		slog.Time("expiry", tok.Expiry),
		slog.String("token_type", tok.Type()),
	)

	return tok.AccessToken, nil
}

// tokenError converts an oauth2 failure into an AuthError, keeping the HTTP
// status when the token endpoint answered.
func tokenError(err error) *AuthError {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		msg := re.ErrorDescription
		if msg == "" {
			msg = string(re.Body)
		}

		wrapped := classifyStatus(re.Response.StatusCode)
		if wrapped == nil {
			wrapped = re
		}

		return &AuthError{
			Op:         "token",
			StatusCode: re.Response.StatusCode,
			Message:    msg,
			Err:        wrapped,
			retryAfter: parseRetryAfter(re.Response),
		}
	}

	var ue *url.Error
	if errors.As(err, &ue) {
		return &AuthError{Op: "token", Err: err}
	}

	// Anything else is a 2xx body oauth2 could not use.
	return &AuthError{Op: "token", Message: err.Error(), Err: fmt.Errorf("%w: %w", ErrMalformedResponse, err)}
}
