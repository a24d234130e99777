package spo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	defaultUserAgent = "blob2spo/0.1"
	odataVerbose     = "application/json;odata=verbose"

	// maxErrorBody caps how much of an error response is kept for messages.
	maxErrorBody = 64 * 1024
)

// AuthContext carries the credentials every SharePoint write needs: the
// bearer token and the form digest with its expiry.
type AuthContext struct {
	AccessToken  string
	DigestValue  string
	DigestExpiry time.Time
}

// Expired reports whether the form digest is no longer valid at now.
// A zero expiry never expires.
func (a *AuthContext) Expired(now time.Time) bool {
	return !a.DigestExpiry.IsZero() && !now.Before(a.DigestExpiry)
}

// Client talks to the SharePoint REST API on behalf of one service principal.
type Client struct {
	httpClient *http.Client
	tokens     TokenSource
	logger     *slog.Logger
	userAgent  string
	retry      retrier

	// nowFunc returns the current time. Tests override it to control
	// digest expiry.
	nowFunc func() time.Time
}

// NewClient creates a SharePoint client. An empty userAgent uses the default.
func NewClient(httpClient *http.Client, tokens TokenSource, logger *slog.Logger, userAgent string) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	return &Client{
		httpClient: httpClient,
		tokens:     tokens,
		logger:     logger,
		userAgent:  userAgent,
		retry:      newRetrier(logger),
		nowFunc:    time.Now,
	}
}

// Authorize obtains a fresh access token and a form digest for the site
// addressed by ep.
func (c *Client) Authorize(ctx context.Context, ep Endpoint) (*AuthContext, error) {
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	digest, err := c.Digest(ctx, ep, tok)
	if err != nil {
		return nil, err
	}

	return &AuthContext{
		AccessToken:  tok,
		DigestValue:  digest.Value,
		DigestExpiry: digest.Expiry,
	}, nil
}

// Digest is a SharePoint form digest and the time it stops being accepted.
type Digest struct {
	Value  string
	Expiry time.Time
}

// contextInfoResponse is the verbose odata shape of POST _api/contextinfo.
type contextInfoResponse struct {
	D struct {
		Info struct {
			FormDigestTimeoutSeconds int64  `json:"FormDigestTimeoutSeconds"`
			FormDigestValue          string `json:"FormDigestValue"`
			LibraryVersion           string `json:"LibraryVersion"`
			WebFullURL               string `json:"WebFullUrl"`
		} `json:"GetContextWebInformation"`
	} `json:"d"`
}

// Digest fetches a form digest from the site's contextinfo endpoint.
func (c *Client) Digest(ctx context.Context, ep Endpoint, token string) (*Digest, error) {
	var digest *Digest

	err := c.retry.do(ctx, "contextinfo", func() error {
		d, err := c.fetchDigest(ctx, ep.ContextInfoURL(), token)
		if err != nil {
			return err
		}

		digest = d

		return nil
	})
	if err != nil {
		return nil, err
	}

	return digest, nil
}

// fetchDigest performs a single contextinfo request.
func (c *Client) fetchDigest(ctx context.Context, url, token string) (*Digest, error) {
	c.logger.Debug("fetching form digest", slog.String("url", url))

	requested := c.nowFunc()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, http.NoBody)
	if err != nil {
		return nil, &AuthError{Op: "contextinfo", Err: fmt.Errorf("creating request: %w", err)}
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", odataVerbose)
	req.Header.Set("Content-Type", odataVerbose)
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &AuthError{Op: "contextinfo", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)) //nolint:errcheck // best-effort read for error message
		_, msg := parseODataError(body)

		return nil, &AuthError{
			Op:         "contextinfo",
			StatusCode: resp.StatusCode,
			Message:    msg,
			Err:        classifyStatus(resp.StatusCode),
			retryAfter: parseRetryAfter(resp),
		}
	}

	var cir contextInfoResponse
	if decErr := json.NewDecoder(resp.Body).Decode(&cir); decErr != nil {
		return nil, &AuthError{Op: "contextinfo", Message: decErr.Error(), Err: fmt.Errorf("%w: %w", ErrMalformedResponse, decErr)}
	}

	info := cir.D.Info
	if info.FormDigestValue == "" {
		return nil, &AuthError{Op: "contextinfo", Message: "response has no FormDigestValue", Err: ErrMalformedResponse}
	}

	d := &Digest{Value: info.FormDigestValue}
	if info.FormDigestTimeoutSeconds > 0 {
		d.Expiry = requested.Add(time.Duration(info.FormDigestTimeoutSeconds) * time.Second)
	}

	c.logger.Debug("form digest acquired",
		slog.Time("expiry", d.Expiry),
		slog.String("library_version", info.LibraryVersion),
	)

	return d, nil
}

// write POSTs data to a SharePoint file endpoint. Any non-2xx answer is
// returned as *TransferError; writes are never retried.
func (c *Client) write(ctx context.Context, op, url string, auth *AuthContext, data []byte) error {
	c.logger.Debug("spo write",
		slog.String("op", op),
		slog.String("url", url),
		slog.Int("size", len(data)),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("spo: %s: creating request: %w", op, err)
	}

	req.ContentLength = int64(len(data))
	req.Header.Set("Authorization", "Bearer "+auth.AccessToken)
	req.Header.Set("Content-Type", odataVerbose)
	req.Header.Set("Accept", odataVerbose)
	req.Header.Set("X-RequestDigest", auth.DigestValue)
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("spo write request failed",
			slog.String("op", op),
			slog.String("error", err.Error()),
		)

		return fmt.Errorf("spo: %s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		// Drain body to reuse connection.
		if _, drainErr := io.Copy(io.Discard, resp.Body); drainErr != nil {
			return fmt.Errorf("spo: %s: draining response body: %w", op, drainErr)
		}

		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)) //nolint:errcheck // best-effort read for error message
	code, msg := parseODataError(body)

	c.logger.Error("spo write rejected",
		slog.String("op", op),
		slog.Int("status", resp.StatusCode),
		slog.String("code", code),
	)

	return &TransferError{
		Op:         op,
		StatusCode: resp.StatusCode,
		RequestID:  resp.Header.Get("request-id"),
		Code:       code,
		Message:    msg,
		Err:        classifyStatus(resp.StatusCode),
	}
}
