package billz

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"debtboard/internal/config"
	"debtboard/internal/domain"
)

// Client talks to the Billz admin API: one auth exchange per pipeline run,
// then sequential pagination over the debt listing.
type Client struct {
	http        *http.Client
	baseURL     string
	secretToken string
	shopIDs     string
	currency    string
}

func NewClient(cfg config.BillzConfig) *Client {
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http:        &http.Client{Timeout: timeout},
		baseURL:     cfg.BaseURL,
		secretToken: cfg.SecretToken,
		shopIDs:     cfg.ShopIDs,
		currency:    cfg.Currency,
	}
}

type authResponse struct {
	Data struct {
		AccessToken string `json:"access_token"`
	} `json:"data"`
}

type listResponse struct {
	Data []domain.DebtRecord `json:"data"`
}

// Authenticate exchanges the shared secret for a short-lived access token.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	body, err := json.Marshal(map[string]string{"secret_token": c.secretToken})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("auth request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("auth status %d: %s", resp.StatusCode, readBodyExcerpt(resp.Body))
	}

	var parsed authResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("auth response decode failed: %w", err)
	}
	if parsed.Data.AccessToken == "" {
		return "", fmt.Errorf("auth response contained no access token")
	}

	return parsed.Data.AccessToken, nil
}

// ListDebts fetches one page of the debt listing. An empty slice means the
// listing is exhausted.
func (c *Client) ListDebts(ctx context.Context, token string, page, limit int) ([]domain.DebtRecord, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	q.Set("shop_ids", c.shopIDs)
	q.Set("currency", c.currency)
	q.Set("detalization_by_position", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/debt?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("debt page %d fetch failed: %w", page, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("debt page %d status %d: %s", page, resp.StatusCode, readBodyExcerpt(resp.Body))
	}

	var parsed listResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("debt page %d decode failed: %w", page, err)
	}

	return parsed.Data, nil
}

// readBodyExcerpt keeps upstream error bodies in logs without dumping
// unbounded payloads.
func readBodyExcerpt(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, 512))
	if err != nil || len(b) == 0 {
		return "<empty body>"
	}
	return string(b)
}
