package translate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jpillora/backoff"
	jsoniter "github.com/json-iterator/go"
	"moul.io/http2curl"
)

const (
	// DefaultEndpoint is the public Google Translate gtx endpoint.
	DefaultEndpoint = "https://translate.googleapis.com/translate_a/single"
	// DefaultClientID is the client identifier sent as the "client" parameter.
	DefaultClientID = "gtx"
	// DefaultTimeout bounds a single request.
	DefaultTimeout = 30 * time.Second
)

// ErrUnexpectedResponse is returned when the response body does not carry
// a translated string at [0][0][0].
var ErrUnexpectedResponse = errors.New("unexpected translation response")

// StatusError is returned for non-200 responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("translation API returned status %d", e.Code)
	}
	return fmt.Sprintf("translation API returned status %d: %s", e.Code, e.Body)
}

// Temporary reports whether the request may succeed when retried.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// ClientOptions configures a GoogleClient.
type ClientOptions struct {
	// Endpoint overrides DefaultEndpoint. Tests point it at httptest servers.
	Endpoint string
	// ClientID overrides DefaultClientID.
	ClientID string
	// Proxy is an HTTP/HTTPS proxy URL. When empty, HTTP_PROXY/HTTPS_PROXY
	// from the environment apply.
	Proxy string
	// Timeout bounds each request. Default: 30s.
	Timeout time.Duration
	// MaxRetries is the number of retries on transport errors, 429 and 5xx.
	// Default: 0.
	MaxRetries int
	// UserAgent is sent when set.
	UserAgent string
	// Verbose logs every request as an equivalent curl command.
	Verbose bool
}

// GoogleClient talks to the unauthenticated Google Translate gtx endpoint.
type GoogleClient struct {
	endpoint   string
	clientID   string
	userAgent  string
	maxRetries int
	verbose    bool

	client *http.Client

	// minBackoff is the first retry delay; tests shrink it.
	minBackoff time.Duration
}

// NewGoogleClient returns a client for the gtx endpoint.
func NewGoogleClient(opts ClientOptions) *GoogleClient {
	c := &GoogleClient{
		endpoint:   opts.Endpoint,
		clientID:   opts.ClientID,
		userAgent:  opts.UserAgent,
		maxRetries: opts.MaxRetries,
		verbose:    opts.Verbose,
		minBackoff: 500 * time.Millisecond,
	}
	if c.endpoint == "" {
		c.endpoint = DefaultEndpoint
	}
	if c.clientID == "" {
		c.clientID = DefaultClientID
	}
	if c.maxRetries < 0 {
		c.maxRetries = 0
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c.client = makeHTTPClient(opts.Proxy, timeout)
	return c
}

// makeHTTPClient creates an HTTP client with optional proxy support.
func makeHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err == nil {
			transport.Proxy = http.ProxyURL(parsed)
		} else {
			log.Warnw("ignoring invalid proxy URL", "proxy", proxyURL, "err", err)
		}
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// Translate sends one GET request per attempt and returns the translated
// text. Transport errors, 429 and 5xx are retried up to MaxRetries times.
func (c *GoogleClient) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	b := &backoff.Backoff{
		Min:    c.minBackoff,
		Max:    10 * time.Second,
		Factor: 2,
		Jitter: true,
	}

	for attempt := 0; ; attempt++ {
		translated, retryAfter, err := c.do(ctx, text, sourceLang, targetLang)
		if err == nil {
			return translated, nil
		}
		if attempt >= c.maxRetries || !retryable(err) || ctx.Err() != nil {
			return "", err
		}

		wait := b.Duration()
		if retryAfter > 0 {
			wait = retryAfter
		}
		log.Debugw("retrying translation request", "attempt", attempt+1, "of", c.maxRetries, "wait", wait, "err", err)

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (c *GoogleClient) do(ctx context.Context, text, sourceLang, targetLang string) (string, time.Duration, error) {
	req, err := c.newRequest(ctx, text, sourceLang, targetLang)
	if err != nil {
		return "", 0, err
	}

	if c.verbose {
		if command, err := http2curl.GetCurlCommand(req); err == nil {
			log.Infow("request", "curl", command.String())
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("translation request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, fmt.Errorf("reading translation response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", parseRetryAfter(resp.Header.Get("Retry-After")), &StatusError{
			Code: resp.StatusCode,
			Body: truncate(strings.TrimSpace(string(body)), 200),
		}
	}

	translated, err := parseResponse(body)
	return translated, 0, err
}

func (c *GoogleClient) newRequest(ctx context.Context, text, sourceLang, targetLang string) (*http.Request, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", c.endpoint, err)
	}
	params := u.Query()
	params.Set("client", c.clientID)
	params.Set("dt", "t")
	params.Set("sl", sourceLang)
	params.Set("tl", targetLang)
	params.Set("q", text)
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return req, nil
}

// parseResponse extracts the translation from a gtx response:
//
//	[[["Bonjour","Hello",null,null,10]],null,"en"]
//
// Long inputs come back split into sentences ([0][1][0], [0][2][0], ...);
// those are concatenated in order.
func parseResponse(body []byte) (string, error) {
	first := jsoniter.Get(body, 0, 0, 0)
	if first.ValueType() != jsoniter.StringValue {
		return "", fmt.Errorf("%w: %s", ErrUnexpectedResponse, truncate(string(body), 200))
	}

	sentences := jsoniter.Get(body, 0)
	var sb strings.Builder
	sb.WriteString(first.ToString())
	for i := 1; i < sentences.Size(); i++ {
		seg := sentences.Get(i, 0)
		if seg.ValueType() == jsoniter.StringValue {
			sb.WriteString(seg.ToString())
		}
	}
	return sb.String(), nil
}

// parseRetryAfter reads a Retry-After header given in seconds.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	// Transport failures (timeouts, resets) are retried; a malformed body is not.
	return !errors.Is(err, ErrUnexpectedResponse) && !errors.Is(err, context.Canceled)
}
