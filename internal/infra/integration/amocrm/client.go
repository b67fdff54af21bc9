package amocrm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Client talks to the v4 REST API of one amoCRM account.
type Client struct {
	subdomain   string
	accessToken string
	baseURL     string
	httpClient  *http.Client
	logger      *zap.Logger
}

func NewClient(subdomain, accessToken string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		subdomain:   subdomain,
		accessToken: accessToken,
		baseURL:     fmt.Sprintf("https://%s.amocrm.ru/api/v4", subdomain),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

func (c *Client) Subdomain() string { return c.subdomain }

func (c *Client) GetUser(ctx context.Context, userID string) (*User, error) {
	var user User
	if err := c.get(ctx, fmt.Sprintf("/users/%s", userID), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) GetLead(ctx context.Context, leadID string) (*Lead, error) {
	var lead Lead
	if err := c.get(ctx, fmt.Sprintf("/leads/%s", leadID), &lead); err != nil {
		return nil, err
	}
	return &lead, nil
}

// GetLeadWithRelations fetches a lead together with its nested contact
// and company references.
func (c *Client) GetLeadWithRelations(ctx context.Context, leadID string) (*Lead, error) {
	var lead Lead
	if err := c.get(ctx, fmt.Sprintf("/leads/%s?with=contacts,companies", leadID), &lead); err != nil {
		return nil, err
	}
	return &lead, nil
}

func (c *Client) GetCompany(ctx context.Context, companyID string) (*Company, error) {
	var company Company
	if err := c.get(ctx, fmt.Sprintf("/companies/%s?with=contacts&page=1&limit=250", companyID), &company); err != nil {
		return nil, err
	}
	return &company, nil
}

func (c *Client) GetContact(ctx context.Context, contactID string) (*Contact, error) {
	var contact Contact
	if err := c.get(ctx, fmt.Sprintf("/contacts/%s?with=contacts&page=1&limit=250", contactID), &contact); err != nil {
		return nil, err
	}
	return &contact, nil
}

// GetPipelines returns the pipeline catalog with nested statuses.
func (c *Client) GetPipelines(ctx context.Context) ([]Pipeline, error) {
	var envelope struct {
		Embedded struct {
			Pipelines []Pipeline `json:"pipelines"`
		} `json:"_embedded"`
	}
	if err := c.get(ctx, "/leads/pipelines", &envelope); err != nil {
		return nil, err
	}
	return envelope.Embedded.Pipelines, nil
}

// UpdateLeadPrice patches a single lead's price.
func (c *Client) UpdateLeadPrice(ctx context.Context, leadID string, price float64) error {
	if c.accessToken == "" {
		return fmt.Errorf("amocrm: access token not configured")
	}

	body, err := json.Marshal(map[string]float64{"price": price})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPatch,
		fmt.Sprintf("%s/leads/%s", c.baseURL, leadID),
		bytes.NewReader(body),
	)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.addAuthHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("update lead price: unexpected status %d: %s", resp.StatusCode, string(detail))
	}

	c.logger.Info("lead price updated in amoCRM",
		zap.String("lead_id", leadID),
		zap.Float64("price", price))
	return nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	if c.accessToken == "" {
		return fmt.Errorf("amocrm: access token not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.addAuthHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("amocrm: unexpected status %d for %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) addAuthHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}
