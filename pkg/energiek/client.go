package energiek

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tariefwacht/tariefwacht/pkg/common"
	"github.com/tariefwacht/tariefwacht/pkg/log"
)

const (
	// DefaultBaseURL is the production host of the energiek customer portal.
	DefaultBaseURL = "https://mijn.energiek.nl"

	// browserUserAgent is what the portal expects; requests without a
	// browser-like identity get bounced by the anti-bot layer.
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

	xsrfCookieName = "XSRF-TOKEN"
	xsrfHeaderName = "X-XSRF-TOKEN"

	// noMarketPriceMessage is the (Dutch) phrase the API returns with a 422
	// when a day's prices haven't been published yet.
	noMarketPriceMessage = "Geen marktprijs gevonden"

	defaultTimeout = 30 * time.Second
)

// Client talks to the energiek portal API. It owns the session state: the
// anti-forgery token captured from cookies, the authenticated flag, and the
// organization/cluster identifiers returned by login.
//
// The zero value is not usable; construct with NewClient.
type Client struct {
	baseURL string

	// ownsClient is true when we created the http.Client ourselves and are
	// therefore responsible for releasing it in Close.
	ownsClient bool

	mu            sync.Mutex
	client        *http.Client
	xsrfToken     string
	authenticated bool
	orgUUID       string
	cluster       string
}

// NewClient returns a Client for the given base URL (DefaultBaseURL when
// empty). When httpClient is nil a client with a cookie jar is created
// lazily on first use and released by Close. An injected client must carry
// its own cookie jar or the anti-forgery token will never be captured.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  httpClient,
	}
}

// IsAuthenticated reports whether a login has succeeded and no response has
// invalidated the session since.
func (c *Client) IsAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticated
}

// Close clears the session state and releases the lazily-created connection
// pool. An injected http.Client is left alone; its owner closes it.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.xsrfToken = ""
	c.authenticated = false
	c.orgUUID = ""
	c.cluster = ""
	if c.ownsClient && c.client != nil {
		c.client.CloseIdleConnections()
	}
}

// httpClient returns the underlying client, creating it on first use.
func (c *Client) httpClient() *http.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		c.client = common.HTTPClient(defaultTimeout)
		c.ownsClient = true
	}
	return c.client
}

// requestOpts carries the optional parts of a request.
type requestOpts struct {
	query    url.Values
	jsonBody any
	headers  map[string]string
}

// request executes one API call. It attaches the fixed browser-identity
// headers, any caller headers, and the current anti-forgery token; after
// every response it refreshes the token from the cookie jar. A JSON response
// is decoded into dest (when non-nil), a 204 yields no body, and any other
// content type is returned as text when dest is a *string.
func (c *Client) request(ctx context.Context, method, endpoint string, opts requestOpts, dest any) error {
	hc := c.httpClient()

	u, err := url.Parse(c.baseURL + endpoint)
	if err != nil {
		return &RequestError{Message: "invalid url", Err: err}
	}
	if opts.query != nil {
		u.RawQuery = opts.query.Encode()
	}

	var body io.Reader
	if opts.jsonBody != nil {
		b, err := json.Marshal(opts.jsonBody)
		if err != nil {
			return &RequestError{Message: "failed to encode request body", Err: err}
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return &RequestError{Message: "failed to create request", Err: err}
	}
	c.prepareHeaders(req, opts.headers)
	if opts.jsonBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		return &RequestError{Message: "client error", Err: err}
	}
	defer resp.Body.Close()

	// The token cookie rotates, so capture it before anything else; even an
	// error response can carry a fresh one.
	c.updateXSRFToken(hc, resp.Request.URL)

	if resp.StatusCode >= 400 {
		return c.handleError(ctx, resp)
	}

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		if dest == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			return &RequestError{Message: "failed to decode response", Err: err}
		}
		return nil
	}

	// Non-JSON endpoints (the csrf bootstrap for one) return text.
	if s, ok := dest.(*string); ok {
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return &RequestError{Message: "failed to read response", Err: err}
		}
		*s = string(b)
	}
	return nil
}

// prepareHeaders merges the fixed identity set, caller headers, and the
// anti-forgery token.
func (c *Client) prepareHeaders(req *http.Request, custom map[string]string) {
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Origin", c.baseURL)
	req.Header.Set("Referer", c.baseURL+"/login")
	for k, v := range custom {
		req.Header.Set(k, v)
	}

	c.mu.Lock()
	token := c.xsrfToken
	c.mu.Unlock()
	if token != "" {
		req.Header.Set(xsrfHeaderName, token)
	}
}

// updateXSRFToken overwrites the stored token with the XSRF-TOKEN cookie
// currently scoped to u, if any. The cookie value is URL-encoded on the wire.
func (c *Client) updateXSRFToken(hc *http.Client, u *url.URL) {
	if hc.Jar == nil {
		return
	}
	for _, cookie := range hc.Jar.Cookies(u) {
		if cookie.Name != xsrfCookieName || cookie.Value == "" {
			continue
		}
		token, err := url.QueryUnescape(cookie.Value)
		if err != nil {
			// keep the raw value rather than dropping the token
			token = cookie.Value
		}
		c.mu.Lock()
		c.xsrfToken = token
		c.mu.Unlock()
		return
	}
}

// handleError classifies an HTTP error response. The expected 422
// "no market price found" case maps to errNoMarketPrice; 401/403 invalidate
// the session and map to AuthError; everything else is a RequestError.
func (c *Client) handleError(ctx context.Context, resp *http.Response) error {
	b, _ := io.ReadAll(resp.Body)
	text := string(b)

	if resp.StatusCode == http.StatusUnprocessableEntity && strings.Contains(text, noMarketPriceMessage) {
		log.Ctx(ctx).DebugContext(ctx, "no market price found", slog.String("url", resp.Request.URL.String()))
		return errNoMarketPrice
	}

	log.Ctx(ctx).ErrorContext(
		ctx,
		"request failed",
		slog.Int("status", resp.StatusCode),
		slog.String("url", resp.Request.URL.String()),
		slog.String("body", text),
	)

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		// the session is no longer valid; the next cycle must login again
		c.mu.Lock()
		c.authenticated = false
		c.mu.Unlock()
		return &AuthError{Status: resp.StatusCode}
	}
	return &RequestError{Status: resp.StatusCode}
}
