// Package httpapi queries the storefront REST API for stock and product data.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dwikikusuma/rocketshoes-cart/internal/cart/app"
	"github.com/dwikikusuma/rocketshoes-cart/internal/cart/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const maxBodyBytes = 1 << 20

type Client struct {
	base *url.URL
	http *http.Client
}

// NewClient builds a client for baseURL. A zero timeout leaves requests bounded
// only by the caller's context.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api base url must be http or https, got %q", baseURL)
	}
	return &Client{base: u, http: &http.Client{Timeout: timeout}}, nil
}

func (c *Client) Stock(ctx context.Context, id domain.ProductID) (domain.Stock, error) {
	body, err := c.get(ctx, "stock", id)
	if err != nil {
		return domain.Stock{}, err
	}
	var s domain.Stock
	if err := json.Unmarshal(body, &s); err != nil {
		return domain.Stock{}, fmt.Errorf("decode stock %d: %w", id, err)
	}
	return s, nil
}

func (c *Client) Product(ctx context.Context, id domain.ProductID) (domain.Product, error) {
	body, err := c.get(ctx, "products", id)
	if err != nil {
		return domain.Product{}, err
	}
	p, err := domain.ParseProduct(body)
	if err != nil {
		return domain.Product{}, fmt.Errorf("decode product %d: %w", id, err)
	}
	return p, nil
}

func (c *Client) get(ctx context.Context, resource string, id domain.ProductID) ([]byte, error) {
	u := c.base.JoinPath(resource, strconv.FormatInt(int64(id), 10))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s/%d: %w", resource, id, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s/%d: %w", resource, id, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s %d: %w", resource, id, app.ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &StatusError{Resource: resource, Code: resp.StatusCode}
	}
	return body, nil
}

type StatusError struct {
	Resource string
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Resource, e.Code)
}

// IsStatus reports whether err carries the given upstream status code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
