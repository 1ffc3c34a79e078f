// Package imagekit uploads listing media to the ImageKit CDN.
package imagekit

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"estate_api/internal/adapters/observability"
	"estate_api/internal/domain"
)

const (
	DefaultUploadBase = "https://upload.imagekit.io/api/v1"
	DefaultAPIBase    = "https://api.imagekit.io/v1"
	maxAttempts       = 4
)

type Options struct {
	PrivateKey string
	UploadBase string
	APIBase    string
	Folder     string
	// URLEndpoint is the public delivery base, used to derive thumbnails
	// when the upload response has none.
	URLEndpoint string
	RPS         int
}

type Client struct {
	uploadBase string
	apiBase    string
	folder     string
	endpoint   string
	key        string
	hc         *http.Client
	rl         *rate.Limiter
}

func New(o Options) (*Client, error) {
	if o.PrivateKey == "" {
		return nil, fmt.Errorf("imagekit private key is required")
	}
	if o.UploadBase == "" {
		o.UploadBase = DefaultUploadBase
	}
	if o.APIBase == "" {
		o.APIBase = DefaultAPIBase
	}
	if o.RPS <= 0 {
		o.RPS = 5
	}
	if o.Folder == "" {
		o.Folder = "/properties"
	}
	return &Client{
		uploadBase: strings.TrimRight(o.UploadBase, "/"),
		apiBase:    strings.TrimRight(o.APIBase, "/"),
		folder:     o.Folder,
		endpoint:   strings.TrimRight(o.URLEndpoint, "/"),
		key:        o.PrivateKey,
		hc:         &http.Client{Timeout: 60 * time.Second},
		rl:         rate.NewLimiter(rate.Limit(o.RPS), o.RPS),
	}, nil
}

type uploadResponse struct {
	FileID       string `json:"fileId"`
	Name         string `json:"name"`
	URL          string `json:"url"`
	FilePath     string `json:"filePath"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

// Upload sends the file as multipart form data. The body is buffered so
// retries can replay it.
func (c *Client) Upload(ctx context.Context, name string, r io.Reader) (domain.MediaFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return domain.MediaFile{}, err
	}
	build := func() (*http.Request, error) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("file", name)
		if err != nil {
			return nil, err
		}
		if _, err := fw.Write(data); err != nil {
			return nil, err
		}
		_ = mw.WriteField("fileName", name)
		_ = mw.WriteField("folder", c.folder)
		_ = mw.WriteField("useUniqueFileName", "true")
		if err := mw.Close(); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadBase+"/files/upload", &buf)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return req, nil
	}

	var out uploadResponse
	if err := c.do(ctx, "upload", build, &out); err != nil {
		return domain.MediaFile{}, err
	}
	if out.ThumbnailURL == "" && c.endpoint != "" && out.FilePath != "" {
		out.ThumbnailURL = c.endpoint + "/tr:w-400" + out.FilePath
	}
	return domain.MediaFile{FileID: out.FileID, Name: out.Name, URL: out.URL, ThumbnailURL: out.ThumbnailURL}, nil
}

func (c *Client) Delete(ctx context.Context, fileID string) error {
	if strings.TrimSpace(fileID) == "" {
		return domain.Invalid("file id is required")
	}
	build := func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodDelete, c.apiBase+"/files/"+url.PathEscape(fileID), nil)
	}
	return c.do(ctx, "delete", build, nil)
}

// do runs build/send with client-side rate limiting and retries on 429 and
// transient 5xx, honoring Retry-After when provided.
func (c *Client) do(ctx context.Context, endpoint string, build func() (*http.Request, error), out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		req, err := build()
		if err != nil {
			return err
		}
		req.SetBasicAuth(c.key, "")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "estate-api/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("imagekit", endpoint, 0, time.Since(start))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < maxAttempts-1 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal("imagekit", endpoint, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK, http.StatusCreated:
			defer resp.Body.Close()
			if out == nil {
				_, _ = io.Copy(io.Discard, resp.Body)
				return nil
			}
			return json.NewDecoder(resp.Body).Decode(out)

		case http.StatusNoContent:
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil

		case http.StatusNotFound:
			resp.Body.Close()
			return fmt.Errorf("imagekit %s: %w", endpoint, domain.ErrNotFound)

		case http.StatusBadRequest:
			msg := errorMessage(resp.Body)
			resp.Body.Close()
			return domain.Invalid("media rejected: " + msg)

		case http.StatusUnauthorized, http.StatusForbidden:
			resp.Body.Close()
			return fmt.Errorf("imagekit %s: credentials rejected (%d)", endpoint, resp.StatusCode)

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("imagekit %s: remote %d", endpoint, resp.StatusCode)
			if i < maxAttempts-1 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			msg := errorMessage(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("imagekit %s: bad status %d: %s", endpoint, resp.StatusCode, msg)
		}
	}
	if lastErr == nil {
		lastErr = errors.New("imagekit: no attempt succeeded")
	}
	return lastErr
}

func errorMessage(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 4096))
	var e struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(b, &e) == nil && e.Message != "" {
		return e.Message
	}
	return strings.TrimSpace(string(b))
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles from 200ms per attempt with up to +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
