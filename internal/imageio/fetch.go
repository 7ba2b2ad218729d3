package imageio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"

	"github.com/Brownie44l1/classify-api/internal/model"
)

const stage = "fetch"

const (
	DefaultTimeout  = 10 * time.Second
	DefaultMaxBytes = 20 << 20
)

// Fetcher downloads images and crops them to the model's input size.
type Fetcher struct {
	Client   *http.Client
	Size     int
	MaxBytes int64
	Logger   logrus.FieldLogger
}

func NewFetcher(timeout time.Duration, size int, maxBytes int64, logger logrus.FieldLogger) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if size <= 0 {
		size = model.ImageSize
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Fetcher{
		Client:   &http.Client{Timeout: timeout},
		Size:     size,
		MaxBytes: maxBytes,
		Logger:   logger,
	}
}

// Fetch downloads rawURL, decodes it and returns a Size x Size RGB image.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*model.RawImage, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, model.NewError(model.ErrFetch, stage, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, model.Errorf(model.ErrFetch, stage, "unsupported url scheme %q", u.Scheme)
	}

	body, err := f.download(ctx, u.String())
	if err != nil {
		return nil, model.NewError(model.ErrFetch, stage, err)
	}

	img, err := imaging.Decode(bytes.NewReader(body), imaging.AutoOrientation(true))
	if err != nil {
		return nil, model.NewError(model.ErrFetch, stage, fmt.Errorf("failed to decode image: %w", err))
	}

	logger := f.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	bounds := img.Bounds()
	logger.WithFields(logrus.Fields{
		"url":    u.Redacted(),
		"bytes":  len(body),
		"width":  bounds.Dx(),
		"height": bounds.Dy(),
	}).Debug("fetched image")

	return ToRaw(Fit(img, f.Size)), nil
}

func (f *Fetcher) download(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	limit := f.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("image exceeds %d bytes", limit)
	}
	return body, nil
}
