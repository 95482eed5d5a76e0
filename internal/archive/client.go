// Package archive is the boundary to the MODIS imagery archive: it requests
// daily tiles over OAuth2, keeps them as local GeoTIFFs and reads them into
// raster images.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/paulmach/orb"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/glacier-albedo/modis-albedo-cli/internal/modis"
)

var (
	ErrImageNotFound = errors.New("image not found")
	ErrUnauthorized  = errors.New("unauthorized access, check your client ID and secret")
)

// Request asks for one product's bands over one day.
type Request struct {
	Product modis.Product
	Date    time.Time
	Bound   orb.Bound
	Bands   []string

	// Scale is the output pixel size in metres.
	Scale float64
}

// Fetcher returns a GeoTIFF holding the requested bands in order.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) ([]byte, error)
}

type ClientConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	ProcessURL   string
	Retries      int
	Wait         time.Duration
}

type Client struct {
	http       *http.Client
	processURL string
	retries    int
	wait       time.Duration
}

func NewClient(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.TokenURL == "" || cfg.ProcessURL == "" {
		return nil, fmt.Errorf("missing archive credentials: client ID, client secret, token URL and process URL are required")
	}
	creds := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
	}
	return newClient(creds.Client(ctx), cfg), nil
}

func newClient(hc *http.Client, cfg ClientConfig) *Client {
	c := &Client{http: hc, processURL: cfg.ProcessURL, retries: cfg.Retries, wait: cfg.Wait}
	if c.retries <= 0 {
		c.retries = 10
	}
	if c.wait <= 0 {
		c.wait = 5 * time.Second
	}
	return c
}

func (c *Client) payload(req Request) ([]byte, error) {
	day := truncate(req.Date)
	body := map[string]interface{}{
		"input": map[string]interface{}{
			"collection": string(req.Product),
			"bounds": map[string]interface{}{
				"bbox": []float64{req.Bound.Min[0], req.Bound.Min[1], req.Bound.Max[0], req.Bound.Max[1]},
				"crs":  "EPSG:4326",
			},
			"timeRange": map[string]string{
				"from": day.Format(time.RFC3339),
				"to":   day.Add(24*time.Hour - time.Second).Format(time.RFC3339),
			},
		},
		"output": map[string]interface{}{
			"bands":  req.Bands,
			"scale":  req.Scale,
			"format": "image/tiff",
		},
	}
	return json.Marshal(body)
}

// Fetch posts the request, retrying failed attempts until the retry budget or
// ctx runs out. A 404 is not retried.
func (c *Client) Fetch(ctx context.Context, req Request) ([]byte, error) {
	body, err := c.payload(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.retries; attempt++ {
		data, err := c.post(ctx, body)
		if err == nil {
			return data, nil
		}
		if errors.Is(err, ErrImageNotFound) || errors.Is(err, ErrUnauthorized) {
			return nil, err
		}
		lastErr = err
		log.Printf("%s %s: attempt %d failed: %v", req.Product, req.Date.Format(time.DateOnly), attempt, err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.wait):
		}
	}
	return nil, fmt.Errorf("failed to request image after %d attempts: %w", c.retries, lastErr)
}

func (c *Client) post(ctx context.Context, body []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.processURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	switch resp.StatusCode {
	case http.StatusOK:
		return data, nil
	case http.StatusNotFound:
		return nil, ErrImageNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrUnauthorized
	}
	return nil, fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(data))
}
