// Package stripe implements the outbound gateway client against the Stripe
// HTTP API.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gatewaydomain "github.com/skillhut/skillhut/internal/gateway/domain"
)

type Client struct {
	apiKey string
	client *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey: strings.TrimSpace(apiKey),
		client: &http.Client{Timeout: 12 * time.Second},
	}
}

type subscriptionResponse struct {
	ID                 string `json:"id"`
	Status             string `json:"status"`
	CancelAtPeriodEnd  bool   `json:"cancel_at_period_end"`
	CanceledAt         int64  `json:"canceled_at"`
	CurrentPeriodStart int64  `json:"current_period_start"`
	CurrentPeriodEnd   int64  `json:"current_period_end"`
	Customer           string `json:"customer"`
	Items              struct {
		Data []struct {
			Price struct {
				ID      string `json:"id"`
				Product string `json:"product"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

type customerResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type transferResponse struct {
	ID          string `json:"id"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Destination string `json:"destination"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) RetrieveSubscription(ctx context.Context, ref string) (*gatewaydomain.Subscription, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, gatewaydomain.ErrRequestFailed
	}

	var resp subscriptionResponse
	if err := c.doRequest(ctx, http.MethodGet, "/v1/subscriptions/"+ref, nil, "", &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, gatewaydomain.ErrRequestFailed
	}

	sub := &gatewaydomain.Subscription{
		Ref:                resp.ID,
		CustomerRef:        resp.Customer,
		Status:             resp.Status,
		CurrentPeriodStart: time.Unix(resp.CurrentPeriodStart, 0).UTC(),
		CurrentPeriodEnd:   time.Unix(resp.CurrentPeriodEnd, 0).UTC(),
		CancelAtPeriodEnd:  resp.CancelAtPeriodEnd,
	}
	if resp.CanceledAt != 0 {
		canceled := time.Unix(resp.CanceledAt, 0).UTC()
		sub.CanceledAt = &canceled
	}
	if len(resp.Items.Data) > 0 {
		sub.PriceRef = resp.Items.Data[0].Price.ID
		sub.ProductRef = resp.Items.Data[0].Price.Product
	}
	return sub, nil
}

func (c *Client) RetrieveCustomer(ctx context.Context, ref string) (*gatewaydomain.Customer, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, gatewaydomain.ErrRequestFailed
	}

	var resp customerResponse
	if err := c.doRequest(ctx, http.MethodGet, "/v1/customers/"+ref, nil, "", &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, gatewaydomain.ErrRequestFailed
	}
	return &gatewaydomain.Customer{
		Ref:   resp.ID,
		Email: strings.TrimSpace(resp.Email),
		Name:  strings.TrimSpace(resp.Name),
	}, nil
}

func (c *Client) CreateTransfer(ctx context.Context, req gatewaydomain.TransferRequest) (*gatewaydomain.Transfer, error) {
	if req.Amount <= 0 || strings.TrimSpace(req.DestinationRef) == "" {
		return nil, gatewaydomain.ErrTransferRejected
	}

	values := url.Values{}
	values.Set("amount", strconv.FormatInt(req.Amount, 10))
	values.Set("currency", strings.ToLower(strings.TrimSpace(req.Currency)))
	values.Set("destination", strings.TrimSpace(req.DestinationRef))
	if req.Description != "" {
		values.Set("description", req.Description)
	}
	for key, value := range req.Metadata {
		if key == "" {
			continue
		}
		values.Set(fmt.Sprintf("metadata[%s]", key), value)
	}

	var resp transferResponse
	if err := c.doRequest(ctx, http.MethodPost, "/v1/transfers", values, req.IdempotencyKey, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, gatewaydomain.ErrTransferRejected
	}
	return &gatewaydomain.Transfer{
		Ref:            resp.ID,
		DestinationRef: resp.Destination,
		Amount:         resp.Amount,
		Currency:       strings.ToUpper(resp.Currency),
	}, nil
}

func (c *Client) doRequest(
	ctx context.Context,
	method string,
	path string,
	values url.Values,
	idempotencyKey string,
	out any,
) error {
	if c.apiKey == "" {
		return gatewaydomain.ErrNotConfigured
	}

	var bodyReader *strings.Reader
	if values != nil {
		bodyReader = strings.NewReader(values.Encode())
	} else {
		bodyReader = strings.NewReader("")
	}

	req, err := http.NewRequestWithContext(ctx, method, "https://api.stripe.com"+path, bodyReader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if values != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var gatewayErr errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&gatewayErr); err != nil {
			return gatewaydomain.ErrRequestFailed
		}
		message := strings.TrimSpace(gatewayErr.Error.Message)
		if message == "" {
			message = gatewayErr.Error.Type
		}
		if method == http.MethodPost && strings.HasPrefix(path, "/v1/transfers") {
			return fmt.Errorf("%w: %s", gatewaydomain.ErrTransferRejected, message)
		}
		return fmt.Errorf("%w: %s", gatewaydomain.ErrRequestFailed, message)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
