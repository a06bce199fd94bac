// Package recordstore is a thin HTTP client for a layout/record Data API
// (FileMaker-style). It handles session token authentication, JSON
// marshaling, and transparent re-authentication when the ambient session
// token expires.
package recordstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Record is a stored record flattened to its id plus field data.
type Record struct {
	ID     string
	Fields map[string]any
}

type Client struct {
	baseURL    string
	database   string
	username   string
	password   string
	httpClient *http.Client

	mu    sync.Mutex
	token string
}

// NewClient creates a Data API client. The server argument is the root URL
// of the record-store host (e.g. https://records.example.com).
func NewClient(server, database, username, password string) *Client {
	return &Client{
		baseURL:  strings.TrimRight(server, "/"),
		database: database,
		username: username,
		password: password,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError is a non-2xx response from the record store.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("record store error (%d): %s %s", e.Status, e.Code, e.Message)
}

// IsNotFound reports whether err is a record-store not-found response.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

type apiEnvelope struct {
	Response struct {
		Token    string `json:"token"`
		RecordID string `json:"recordId"`
		Data     []struct {
			RecordID  string         `json:"recordId"`
			FieldData map[string]any `json:"fieldData"`
		} `json:"data"`
	} `json:"response"`
	Messages []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"messages"`
}

func (c *Client) layoutPath(layout string) string {
	return fmt.Sprintf("/data/v1/databases/%s/layouts/%s", c.database, layout)
}

// authenticate opens a new session and replaces the ambient token.
func (c *Client) authenticate(ctx context.Context) error {
	url := fmt.Sprintf("%s/data/v1/databases/%s/sessions", c.baseURL, c.database)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader([]byte("{}")))
	if err != nil {
		return fmt.Errorf("creating session request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("opening record store session: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading session response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiErrorFrom(resp.StatusCode, body)
	}

	var env apiEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("decoding session response: %w", err)
	}
	token := env.Response.Token
	if token == "" {
		token = resp.Header.Get("X-FM-Data-Access-Token")
	}
	if token == "" {
		return fmt.Errorf("record store session response carried no token")
	}

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	return nil
}

func (c *Client) currentToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// do executes one API call. An expired session (401) is refreshed and the
// call retried exactly once; any second failure is returned to the caller.
func (c *Client) do(ctx context.Context, method, path string, body any, out *apiEnvelope) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		payload = data
	}

	for attempt := 0; ; attempt++ {
		if c.currentToken() == "" {
			if err := c.authenticate(ctx); err != nil {
				return err
			}
		}

		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.currentToken())
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("executing request %s %s: %w", method, path, err)
		}
		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return fmt.Errorf("reading response body: %w", readErr)
		}

		if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
			// Session token expired; refresh and retry once.
			if err := c.authenticate(ctx); err != nil {
				return err
			}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return apiErrorFrom(resp.StatusCode, respBody)
		}

		if out != nil {
			if err := json.Unmarshal(respBody, out); err != nil {
				return fmt.Errorf("decoding response from %s %s: %w", method, path, err)
			}
		}
		return nil
	}
}

func apiErrorFrom(status int, body []byte) error {
	var env apiEnvelope
	if json.Unmarshal(body, &env) == nil && len(env.Messages) > 0 {
		return &APIError{
			Status:  status,
			Code:    env.Messages[0].Code,
			Message: env.Messages[0].Message,
		}
	}
	return &APIError{Status: status, Message: http.StatusText(status)}
}

func transformRecords(env *apiEnvelope) []Record {
	records := make([]Record, 0, len(env.Response.Data))
	for _, d := range env.Response.Data {
		records = append(records, Record{ID: d.RecordID, Fields: d.FieldData})
	}
	return records
}

// CreateRecord inserts a record into a layout and returns its id.
func (c *Client) CreateRecord(ctx context.Context, layout string, fields map[string]any) (string, error) {
	var env apiEnvelope
	body := map[string]any{"fieldData": fields}
	if err := c.do(ctx, http.MethodPost, c.layoutPath(layout)+"/records", body, &env); err != nil {
		return "", fmt.Errorf("creating record in %s: %w", layout, err)
	}
	return env.Response.RecordID, nil
}

// GetRecord fetches a single record by id.
func (c *Client) GetRecord(ctx context.Context, layout, id string) (Record, error) {
	var env apiEnvelope
	if err := c.do(ctx, http.MethodGet, c.layoutPath(layout)+"/records/"+id, nil, &env); err != nil {
		return Record{}, fmt.Errorf("getting record %s from %s: %w", id, layout, err)
	}
	records := transformRecords(&env)
	if len(records) == 0 {
		return Record{}, &APIError{Status: http.StatusNotFound, Message: "record not found"}
	}
	return records[0], nil
}

// ListRecords returns every record in a layout.
func (c *Client) ListRecords(ctx context.Context, layout string) ([]Record, error) {
	var env apiEnvelope
	if err := c.do(ctx, http.MethodGet, c.layoutPath(layout)+"/records", nil, &env); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing records from %s: %w", layout, err)
	}
	return transformRecords(&env), nil
}

// FindRecords runs a field-match query against a layout. A query with no
// matches returns an empty slice, not an error.
func (c *Client) FindRecords(ctx context.Context, layout string, query map[string]any) ([]Record, error) {
	var env apiEnvelope
	body := map[string]any{"query": []map[string]any{query}}
	if err := c.do(ctx, http.MethodPost, c.layoutPath(layout)+"/_find", body, &env); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding records in %s: %w", layout, err)
	}
	return transformRecords(&env), nil
}

// UpdateRecord patches fields on an existing record.
func (c *Client) UpdateRecord(ctx context.Context, layout, id string, fields map[string]any) error {
	body := map[string]any{"fieldData": fields}
	if err := c.do(ctx, http.MethodPatch, c.layoutPath(layout)+"/records/"+id, body, nil); err != nil {
		return fmt.Errorf("updating record %s in %s: %w", id, layout, err)
	}
	return nil
}

// DeleteRecord removes a record.
func (c *Client) DeleteRecord(ctx context.Context, layout, id string) error {
	if err := c.do(ctx, http.MethodDelete, c.layoutPath(layout)+"/records/"+id, nil, nil); err != nil {
		return fmt.Errorf("deleting record %s from %s: %w", id, layout, err)
	}
	return nil
}
