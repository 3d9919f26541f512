package petfinder

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/dogfinder/internal/utils"
)

const (
	contentType     = "application/json"
	contentEncoding = "gzip"

	maxAttempts   = 3
	maxRetryDelay = 10 * time.Second
)

var errNotFound = errors.New("not found")

// getJSON makes a paced and authorized GET request and decodes the body into target.
// A rejected token is renewed once. Throttling and server errors are retried with backoff.
func (c *Client) getJSON(ctx context.Context, endpoint string, q url.Values, target any) error {
	renewed := false
	for attempt := 1; ; attempt++ {
		err := c.doGetJSON(ctx, endpoint, q, target)

		var status *statusError
		if !errors.As(err, &status) {
			return err
		}

		switch {
		case status.code == http.StatusUnauthorized && !renewed:
			c.logger.Debug("petfinder token rejected; renewing")
			c.resetToken()
			renewed = true
		case status.retryable() && attempt < maxAttempts:
			delay := utils.Backoff(c.retryDelay, maxRetryDelay, attempt)
			c.logger.Warn("petfinder request failed; retrying",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(err),
			)
			if err := utils.WaitFor(ctx, delay); err != nil {
				return err
			}
		default:
			return err
		}
	}
}

func (c *Client) doGetJSON(ctx context.Context, endpoint string, q url.Values, target any) error {
	if err := c.pacer.Wait(ctx); err != nil {
		return err
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	req = c.setHeaders(req, token)
	req.Header.Set("Content-Type", contentType)
	if q != nil {
		req.URL.RawQuery = q.Encode()
	}

	resp, err := c.request(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return err
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return errNotFound
	default:
		return &statusError{code: resp.StatusCode, status: resp.Status}
	}

	if err := json.NewDecoder(reader).Decode(target); err != nil {
		return fmt.Errorf("decode petfinder response: %w", err)
	}

	return nil
}

func (c *Client) request(req *http.Request) (*http.Response, error) {
	c.logger.Debug("make request", zap.String("url", req.URL.String()))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func (c *Client) setHeaders(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept-Encoding", contentEncoding)

	return req
}

type statusError struct {
	code   int
	status string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("bad status: %s", e.status)
}

func (e *statusError) retryable() bool {
	return e.code == http.StatusTooManyRequests || e.code >= http.StatusInternalServerError
}
