package whop

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
)

// Client talks to the Whop REST API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a Whop API client
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *logrus.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type listMembershipsResponse struct {
	Data       []Membership `json:"data"`
	Pagination struct {
		CurrentPage int  `json:"current_page"`
		NextPage    *int `json:"next_page"`
	} `json:"pagination"`
}

// ListMemberships fetches all membership records for a company, following
// pagination until exhausted.
func (c *Client) ListMemberships(ctx context.Context, companyID string) ([]Membership, error) {
	var all []Membership
	page := 1

	for {
		endpoint := fmt.Sprintf("%s/companies/%s/memberships?page=%d",
			c.baseURL, url.PathEscape(companyID), page)

		var resp listMembershipsResponse
		if err := c.get(ctx, endpoint, &resp); err != nil {
			return nil, fmt.Errorf("failed to list memberships (page %d): %w", page, err)
		}

		all = append(all, resp.Data...)

		if resp.Pagination.NextPage == nil || len(resp.Data) == 0 {
			break
		}
		page = *resp.Pagination.NextPage
	}

	c.logger.Debugf("Fetched %d memberships for company %s", len(all), companyID)
	return all, nil
}

type verifyTokenResponse struct {
	UserID string `json:"user_id"`
}

// VerifyUserToken resolves a user token from a request header into a user
// ID. An empty or unresolvable token is an error.
func (c *Client) VerifyUserToken(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("missing user token")
	}

	endpoint := c.baseURL + "/me"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token verification request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token rejected: status %d", resp.StatusCode)
	}

	var parsed verifyTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if parsed.UserID == "" {
		return "", fmt.Errorf("no user ID in token response")
	}

	return parsed.UserID, nil
}

type accessCheckResponse struct {
	HasAccess bool `json:"has_access"`
}

// CheckCompanyAccess reports whether the user may view the company's data
func (c *Client) CheckCompanyAccess(ctx context.Context, userID, companyID string) (bool, error) {
	endpoint := fmt.Sprintf("%s/users/%s/access/%s",
		c.baseURL, url.PathEscape(userID), url.PathEscape(companyID))

	var resp accessCheckResponse
	if err := c.get(ctx, endpoint, &resp); err != nil {
		return false, fmt.Errorf("access check failed: %w", err)
	}

	return resp.HasAccess, nil
}

func (c *Client) get(ctx context.Context, endpoint string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
