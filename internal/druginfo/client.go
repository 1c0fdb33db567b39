// Package druginfo looks up registered medications in the public drug
// information registry. Lookups are strictly best-effort enrichment; callers
// treat every failure as "no additional info" and move on.
package druginfo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pillwise/go-reminder-backend/internal/config"
)

// Info is the subset of registry data the reminder flow uses.
type Info struct {
	// Efficacy is the plain-language "what is this drug for" text.
	Efficacy string
}

// Lookuper resolves a drug name against the registry. A nil *Info with a nil
// error means the name is not registered (or the client is unconfigured).
type Lookuper interface {
	Lookup(ctx context.Context, drugName string) (*Info, error)
}

// Client queries the easy-drug-info endpoint of the public registry.
type Client struct {
	serviceKey string
	baseURL    string
	http       *http.Client
}

// New constructs a Client from configuration. An empty API key yields a
// client whose lookups always report "not found".
func New(cfg config.DrugInfoConfig) *Client {
	return &Client{
		serviceKey: cfg.APIKey,
		baseURL:    cfg.BaseURL,
		http:       &http.Client{Timeout: cfg.Timeout},
	}
}

type lookupResponse struct {
	Body struct {
		Items []struct {
			Efficacy string `json:"efcyQesitm"`
		} `json:"items"`
	} `json:"body"`
}

// Lookup fetches the first registry match for drugName.
func (c *Client) Lookup(ctx context.Context, drugName string) (*Info, error) {
	if c.serviceKey == "" || drugName == "" {
		return nil, nil
	}

	q := url.Values{}
	q.Set("serviceKey", c.serviceKey)
	q.Set("itemName", drugName)
	q.Set("type", "json")
	q.Set("numOfRows", "1")
	q.Set("pageNo", "1")

	endpoint := c.baseURL + "/getDrbEasyDrugList?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("druginfo: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("druginfo: lookup %q: %w", drugName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("druginfo: lookup %q: unexpected status %d", drugName, resp.StatusCode)
	}

	var out lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("druginfo: decode response: %w", err)
	}
	if len(out.Body.Items) == 0 {
		return nil, nil
	}
	return &Info{Efficacy: out.Body.Items[0].Efficacy}, nil
}
