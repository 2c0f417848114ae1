package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/angelmondragon/storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

const (
	defaultTimeout    = 10 * time.Second
	defaultRetries    = 2
	errorBodyLogLimit = 512
)

var errBaseURLRequired = errors.New("remote api base url is required")

// Client is the REST client shared by the catalog and order integrations.
type Client struct {
	rest *resty.Client
	logg *logger.Logger
}

// Option configures optional client behavior.
type Option func(*resty.Client)

// WithRetries overrides how many times idempotent requests are retried.
func WithRetries(n int) Option {
	return func(c *resty.Client) {
		if n >= 0 {
			c.SetRetryCount(n)
		}
	}
}

// NewClient builds the REST client from the catalog configuration.
func NewClient(cfg config.CatalogConfig, logg *logger.Logger, opts ...Option) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	rest := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(defaultRetries).
		SetRetryWaitTime(100 * time.Millisecond).
		SetRetryMaxWaitTime(time.Second).
		AddRetryCondition(retryOnServerError)
	if token := strings.TrimSpace(cfg.APIToken); token != "" {
		rest.SetAuthToken(token)
	}

	c := &Client{rest: rest, logg: logg}
	rest.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		c.logg.Debug(c.logg.WithFields(req.Context(), map[string]any{
			"method": req.Method,
			"url":    req.URL,
		}), "remote api request")
		return nil
	})

	for _, opt := range opts {
		if opt != nil {
			opt(rest)
		}
	}
	return c, nil
}

// R starts a request bound to ctx.
func (c *Client) R(ctx context.Context) *resty.Request {
	return c.rest.R().SetContext(ctx)
}

// Check converts a transport error or non-2xx response into a pkg/errors value.
func (c *Client) Check(ctx context.Context, resp *resty.Response, err error, action string) error {
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action+" failed")
	}
	if !resp.IsError() {
		return nil
	}

	status := resp.StatusCode()
	body := strings.TrimSpace(string(resp.Body()))
	if len(body) > errorBodyLogLimit {
		body = body[:errorBodyLogLimit]
	}
	cause := fmt.Errorf("status %d: %s", status, body)

	switch {
	case status == http.StatusNotFound:
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, cause, action+": not found")
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		c.logg.Error(ctx, action+" rejected credentials", cause)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, cause, action+": remote api rejected credentials")
	case status == http.StatusConflict || status == http.StatusUnprocessableEntity:
		return pkgerrors.Wrap(pkgerrors.CodeStateConflict, cause, action+": rejected by remote api")
	case status == http.StatusBadRequest:
		return pkgerrors.Wrap(pkgerrors.CodeValidation, cause, action+": invalid request")
	case status == http.StatusTooManyRequests:
		return pkgerrors.Wrap(pkgerrors.CodeRateLimit, cause, action+": rate limited")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, cause, action+" failed")
	}
}

func retryOnServerError(resp *resty.Response, err error) bool {
	if resp == nil || resp.Request == nil || resp.Request.Method != http.MethodGet {
		return false
	}
	return err != nil || resp.StatusCode() >= http.StatusInternalServerError
}
