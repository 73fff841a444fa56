// Package directory is the narrow client for the CMS that holds candidate
// records, interview prompt templates and usage counters. Every call is a
// single request/response with no client-side caching, so each request sees
// current state.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var ErrNotFound = errors.New("directory item not found")

const (
	candidateCollection = "CandidateData"
	templateCollection  = "Interviews"
)

// User is one candidate record.
type User struct {
	ItemID    string
	UserID    string
	CVPath    string
	Uses      int
	JobTitles string
}

// Client talks to the CMS data API.
type Client struct {
	baseURL string
	apiKey  string
	siteID  string
	http    *http.Client
}

func NewClient(baseURL, apiKey, siteID string) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = "https://www.wixapis.com/wix-data/v2"
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		siteID:  siteID,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type dataItem struct {
	Data map[string]any `json:"data"`
}

type queryResponse struct {
	DataItems []dataItem `json:"dataItems"`
}

type itemResponse struct {
	DataItem *dataItem `json:"dataItem"`
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+endpoint, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("wix-site-id", c.siteID)

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return fmt.Errorf("directory http status %d: %s", res.StatusCode, string(raw))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) queryByID(ctx context.Context, collection, itemID string) (map[string]any, error) {
	payload := map[string]any{
		"dataCollectionId": collection,
		"query": map[string]any{
			"filter": map[string]any{"_id": itemID},
			"limit":  1,
		},
	}
	var resp queryResponse
	if err := c.do(ctx, http.MethodPost, "items/query", payload, &resp); err != nil {
		return nil, err
	}
	if len(resp.DataItems) == 0 {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, itemID)
	}
	return resp.DataItems[0].Data, nil
}

func (c *Client) putItem(ctx context.Context, collection, itemID string, data map[string]any) error {
	payload := map[string]any{
		"dataCollectionId": collection,
		"dataItem":         map[string]any{"data": data},
	}
	var resp itemResponse
	if err := c.do(ctx, http.MethodPut, "items/"+itemID, payload, &resp); err != nil {
		return err
	}
	if resp.DataItem == nil {
		return fmt.Errorf("update %s/%s: empty response item", collection, itemID)
	}
	return nil
}

// LookupUser fetches one candidate record by item id.
func (c *Client) LookupUser(ctx context.Context, itemID string) (*User, error) {
	data, err := c.queryByID(ctx, candidateCollection, itemID)
	if err != nil {
		return nil, err
	}
	return &User{
		ItemID:    itemID,
		UserID:    asString(data["userId"]),
		CVPath:    asString(data["cv"]),
		Uses:      asInt(data["uses"]),
		JobTitles: asString(data["jobTitles"]),
	}, nil
}

// UpdateJobTitle writes the extracted job title onto the candidate record.
// Read-modify-write: the CMS update endpoint replaces the whole item.
func (c *Client) UpdateJobTitle(ctx context.Context, itemID, title string) error {
	data, err := c.queryByID(ctx, candidateCollection, itemID)
	if err != nil {
		return err
	}
	data["jobTitles"] = title
	return c.putItem(ctx, candidateCollection, itemID, data)
}

// IncrementUsage bumps the candidate's usage counter by one.
func (c *Client) IncrementUsage(ctx context.Context, itemID string) error {
	data, err := c.queryByID(ctx, candidateCollection, itemID)
	if err != nil {
		return err
	}
	data["uses"] = asInt(data["uses"]) + 1
	return c.putItem(ctx, candidateCollection, itemID, data)
}

// FetchPromptTemplate loads the interview prompt text for a template key.
func (c *Client) FetchPromptTemplate(ctx context.Context, interviewKey string) (string, error) {
	payload := map[string]any{
		"dataCollectionId": templateCollection,
		"query": map[string]any{
			"filter": map[string]any{"interviewTitle": interviewKey},
			"fields": []string{"prompt"},
			"limit":  1,
		},
	}
	var resp queryResponse
	if err := c.do(ctx, http.MethodPost, "items/query", payload, &resp); err != nil {
		return "", err
	}
	if len(resp.DataItems) == 0 {
		return "", fmt.Errorf("%w: prompt template %q", ErrNotFound, interviewKey)
	}
	prompt := asString(resp.DataItems[0].Data["prompt"])
	if prompt == "" {
		return "", fmt.Errorf("%w: prompt template %q is empty", ErrNotFound, interviewKey)
	}
	return prompt, nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt(v any) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case int:
		return t
	case json.Number:
		n, _ := t.Int64()
		return int(n)
	default:
		return 0
	}
}
