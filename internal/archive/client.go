package archive

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/hbomb79/ytmeta/pkg/logger"
	"golang.org/x/time/rate"
)

var log = logger.Get("Archive")

type (
	// Client is a thin adapter over the archive's public metadata and
	// download endpoints. It is safe for concurrent use.
	Client struct {
		config  Config
		http    *retryablehttp.Client
		limiter *rate.Limiter
	}

	// Transfer describes the content streamed by a successful Download.
	Transfer struct {
		Bytes int64
		MD5   string
	}
)

// NewClient constructs a client using the config provided. Requests
// failing at the transport level, or with a 5xx/429 response, are
// re-sent up to 'HTTPRetries' times by the underlying retryablehttp
// client. Failures part way through reading a body are NOT retried
// here; callers are expected to retry the whole operation.
func NewClient(config Config) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = config.HTTPRetries
	rc.RetryWaitMin = 250 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.Logger = nil
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.HTTPClient.Timeout = config.Timeout
	rc.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if attempt > 0 {
			log.Emit(logger.WARNING, "Retrying request %s (attempt %d)\n", req.URL, attempt+1)
		}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if config.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), max(config.Burst, 1))
	}

	return &Client{config: config, http: rc, limiter: limiter}
}

// Download streams the content of the file provided in to dst, returning
// the number of bytes written and the md5 of those bytes. Checksum
// verification is left to the caller (see File.Verify) as it is optional.
func (client *Client) Download(ctx context.Context, identifier string, file File, dst io.Writer) (*Transfer, error) {
	target := client.url("download", identifier, file.Name)
	resp, err := client.get(ctx, target)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s/%s", ErrFileNotFound, identifier, file.Name)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &StatusError{URL: target, StatusCode: resp.StatusCode}
	}

	hash := md5.New()
	n, err := io.Copy(io.MultiWriter(dst, hash), resp.Body)
	if err != nil {
		return nil, fmt.Errorf("transfer of %s interrupted after %d bytes: %w", file.Name, n, err)
	}
	if file.Size > 0 && n != file.Size {
		return nil, fmt.Errorf("%w: %s received %d of %d bytes", ErrIncompleteTransfer, file.Name, n, file.Size)
	}

	return &Transfer{Bytes: n, MD5: hex.EncodeToString(hash.Sum(nil))}, nil
}

// get performs a rate-limited, authenticated GET request.
func (client *Client) get(ctx context.Context, target string) (*http.Response, error) {
	if err := client.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to construct request for %s: %w", target, err)
	}

	client.authorize(req.Request)
	resp, err := client.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", target, err)
	}

	return resp, nil
}

func (client *Client) authorize(req *http.Request) {
	if client.config.LoggedInUser != "" && client.config.LoggedInSig != "" {
		req.AddCookie(&http.Cookie{Name: "logged-in-user", Value: client.config.LoggedInUser})
		req.AddCookie(&http.Cookie{Name: "logged-in-sig", Value: client.config.LoggedInSig})
	}
	if client.config.AccessKey != "" && client.config.SecretKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("LOW %s:%s", client.config.AccessKey, client.config.SecretKey))
	}
}

func (client *Client) url(parts ...string) string {
	escaped := make([]string, len(parts))
	for k, v := range parts {
		escaped[k] = url.PathEscape(v)
	}

	return strings.TrimRight(client.config.BaseURL, "/") + "/" + strings.Join(escaped, "/")
}

// HashFile returns the md5 and size of the file at the path provided.
func HashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	hash := md5.New()
	n, err := io.Copy(hash, f)
	if err != nil {
		return "", 0, err
	}

	return hex.EncodeToString(hash.Sum(nil)), n, nil
}
