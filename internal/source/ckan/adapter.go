// Package ckan implements the contract Source interface against a CKAN
// open-data portal's datastore_search API.
package ckan

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/jdjkelly/snowdoge/internal/domain"
	"github.com/jdjkelly/snowdoge/internal/retry"
	"github.com/jdjkelly/snowdoge/internal/source"
)

const searchPath = "/api/3/action/datastore_search"

// Config holds configuration for the CKAN adapter.
type Config struct {
	BaseURL    string
	ResourceID string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	Sleep      retry.SleepFunc // nil uses time.Sleep
}

// Adapter implements the Source interface for CKAN datastore resources.
type Adapter struct {
	client     *resty.Client
	resourceID string
	policy     retry.Policy
}

// NewAdapter creates a new CKAN adapter.
// Parameters:
//   - cfg: portal location, resource id, and retry settings.
//
// Returns:
//   - *Adapter: initialized adapter.
func NewAdapter(cfg *Config) *Adapter {
	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetHeader("Accept", "application/json")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	return &Adapter{
		client:     client,
		resourceID: cfg.ResourceID,
		policy: retry.Policy{
			MaxRetries: cfg.MaxRetries,
			Delay:      cfg.RetryDelay,
			Sleep:      cfg.Sleep,
		},
	}
}

// GetSourceID returns the unique identifier for this source.
func (a *Adapter) GetSourceID() string {
	return "ckan:" + a.resourceID
}

// GetDisplayName returns a human-readable name for this source.
func (a *Adapter) GetDisplayName() string {
	return fmt.Sprintf("CKAN datastore (%s)", a.resourceID)
}

// datastoreResponse mirrors the CKAN datastore_search response envelope.
type datastoreResponse struct {
	Success bool `json:"success"`
	Result  struct {
		Records []map[string]any `json:"records"`
		Total   int              `json:"total"`
		Links   struct {
			Next string `json:"next"`
		} `json:"_links"`
	} `json:"result"`
}

// FetchPage fetches one page of contract records at the given offset,
// retrying transport and non-2xx failures with linear backoff. A response
// with success=false or zero records is the end of the dataset, not an
// error; exhausting retries is fatal to the caller.
func (a *Adapter) FetchPage(ctx context.Context, offset, limit int) (*source.Page, error) {
	var resp datastoreResponse

	err := a.policy.Do(ctx, func() error {
		httpResp, err := a.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"resource_id": a.resourceID,
				"limit":       strconv.Itoa(limit),
				"offset":      strconv.Itoa(offset),
			}).
			SetResult(&resp).
			Get(searchPath)
		if err != nil {
			return fmt.Errorf("datastore_search request failed: %w", err)
		}
		if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
			return fmt.Errorf("datastore_search returned HTTP %d", httpResp.StatusCode())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch page at offset %d: %w", offset, err)
	}

	if !resp.Success {
		return &source.Page{}, nil
	}

	page := &source.Page{
		Records: make([]domain.Contract, 0, len(resp.Result.Records)),
		Total:   resp.Result.Total,
		HasMore: resp.Result.Links.Next != "",
	}
	for _, rec := range resp.Result.Records {
		page.Records = append(page.Records, mapContract(rec))
	}

	return page, nil
}

// mapContract extracts the fields the pipeline interprets, keeping the
// full record for the classifier.
func mapContract(rec map[string]any) domain.Contract {
	return domain.Contract{
		ReferenceNumber: stringField(rec, "reference_number", "_id"),
		VendorName:      stringField(rec, "vendor_name"),
		Description:     stringField(rec, "description_en", "description"),
		ContractValue:   stringField(rec, "contract_value"),
		BuyerName:       stringField(rec, "buyer_name"),
		ContractDate:    stringField(rec, "contract_date"),
		Raw:             rec,
	}
}

// stringField returns the first present key rendered as a string.
func stringField(rec map[string]any, keys ...string) string {
	for _, key := range keys {
		v, ok := rec[key]
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case string:
			return val
		case float64:
			return fmt.Sprintf("%v", val)
		default:
			return fmt.Sprintf("%v", val)
		}
	}
	return ""
}
