// README: HTTP client for the external card processor's hold API.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client talks to the processor's REST API. All calls are bounded by the
// configured timeout; a timeout or transport failure maps to ErrUnavailable,
// never to success.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

type holdResponse struct {
	ID             string `json:"id"`
	OwnerRef       string `json:"owner_ref"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	CapturedAmount int64  `json:"captured_amount"`
	Status         string `json:"status"`
}

type errorResponse struct {
	Code string `json:"code"`
}

func (c *Client) CreateHold(ctx context.Context, amount int64, currency, methodToken, ownerRef string) (Hold, error) {
	body := map[string]any{
		"amount":       amount,
		"currency":     currency,
		"method_token": methodToken,
		"owner_ref":    ownerRef,
	}
	var out holdResponse
	if err := c.do(ctx, http.MethodPost, "/v1/holds", body, &out); err != nil {
		return Hold{}, err
	}
	return holdFromResponse(out), nil
}

func (c *Client) GetHold(ctx context.Context, ref string) (Hold, error) {
	var out holdResponse
	if err := c.do(ctx, http.MethodGet, "/v1/holds/"+ref, nil, &out); err != nil {
		return Hold{}, err
	}
	return holdFromResponse(out), nil
}

func (c *Client) CaptureHold(ctx context.Context, ref string, amount *int64) error {
	body := map[string]any{}
	if amount != nil {
		body["amount"] = *amount
	}
	return c.do(ctx, http.MethodPost, "/v1/holds/"+ref+"/capture", body, nil)
}

func (c *Client) VoidHold(ctx context.Context, ref string) error {
	return c.do(ctx, http.MethodPost, "/v1/holds/"+ref+"/void", nil, nil)
}

func (c *Client) UpdateHoldAmount(ctx context.Context, ref string, amount int64) error {
	return c.do(ctx, http.MethodPost, "/v1/holds/"+ref+"/amount", map[string]any{"amount": amount}, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}
	return c.mapError(resp)
}

func (c *Client) mapError(resp *http.Response) error {
	var e errorResponse
	_ = json.NewDecoder(resp.Body).Decode(&e)

	switch resp.StatusCode {
	case http.StatusPaymentRequired:
		return ErrDeclined
	case http.StatusUnprocessableEntity:
		return ErrInvalidAmount
	case http.StatusNotFound:
		return ErrHoldNotFound
	case http.StatusConflict:
		switch e.Code {
		case "not_capturable":
			return ErrNotCapturable
		case "not_voidable":
			return ErrNotVoidable
		case "already_captured":
			return ErrAlreadyCaptured
		}
		return fmt.Errorf("%w: processor conflict %q", ErrUnavailable, e.Code)
	}
	return fmt.Errorf("%w: processor returned %d", ErrUnavailable, resp.StatusCode)
}

func holdFromResponse(r holdResponse) Hold {
	return Hold{
		Ref:            r.ID,
		OwnerRef:       r.OwnerRef,
		Amount:         r.Amount,
		Currency:       r.Currency,
		CapturedAmount: r.CapturedAmount,
		State:          HoldState(r.Status),
	}
}
