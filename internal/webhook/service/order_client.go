package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-retryablehttp"

	apperrors "github.com/allisson/webhook-ledger/internal/errors"
	"github.com/allisson/webhook-ledger/internal/webhook/domain"
)

// secretGetter resolves a secret value from its URL.
type secretGetter interface {
	Get(ctx context.Context, secretURL string) (string, error)
}

// SquareOrderClient fetches orders from the Square Orders API with retries on
// transient failures.
type SquareOrderClient struct {
	client         *retryablehttp.Client
	secrets        secretGetter
	baseURL        string
	accessTokenURL string
	apiVersion     string
}

// NewSquareOrderClient creates a new SquareOrderClient. apiVersion may be
// empty, in which case the Square-Version header is omitted.
func NewSquareOrderClient(secrets secretGetter, baseURL, accessTokenURL, apiVersion string) *SquareOrderClient {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.Logger = nil

	return &SquareOrderClient{
		client:         client,
		secrets:        secrets,
		baseURL:        strings.TrimRight(baseURL, "/"),
		accessTokenURL: accessTokenURL,
		apiVersion:     apiVersion,
	}
}

// FetchOrder retrieves an order by id. A missing order returns (nil, nil) so
// callers can degrade to payload-only data instead of failing the event.
func (c *SquareOrderClient) FetchOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	token, err := c.secrets.Get(ctx, c.accessTokenURL)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to resolve api access token")
	}

	endpoint := fmt.Sprintf("%s/v2/orders/%s", c.baseURL, url.PathEscape(orderID))
	request, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to build order request")
	}
	request.Header.Set("Authorization", "Bearer "+token)
	request.Header.Set("Accept", "application/json")
	if c.apiVersion != "" {
		request.Header.Set("Square-Version", c.apiVersion)
	}

	response, err := c.client.Do(request)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to fetch order")
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, fmt.Errorf("order lookup returned status %d", response.StatusCode)
	}

	var body struct {
		Order *domain.Order `json:"order"`
	}
	if err := json.NewDecoder(response.Body).Decode(&body); err != nil {
		return nil, apperrors.Wrap(err, "failed to decode order response")
	}
	return body.Order, nil
}
