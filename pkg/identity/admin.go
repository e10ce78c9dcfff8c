package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

var ErrAdminDisabled = errors.New("identity admin client not configured")

// AdminClient talks to the provider's admin REST API with the service key.
type AdminClient struct {
	HTTPClient *http.Client
	BaseURL    string
	ServiceKey string
}

func (c AdminClient) Enabled() bool {
	return c.BaseURL != "" && c.ServiceKey != ""
}

// UpdateUserMetadata merges metadata into the provider's user_metadata for userID.
func (c AdminClient) UpdateUserMetadata(ctx context.Context, userID string, metadata map[string]any) error {
	if !c.Enabled() {
		return ErrAdminDisabled
	}
	path := "/auth/v1/admin/users/" + url.PathEscape(userID)
	_, err := c.doJSON(ctx, http.MethodPut, path, map[string]any{"user_metadata": metadata}, nil)
	return err
}

func (c AdminClient) doJSON(ctx context.Context, method, path string, reqBody any, respBody any) (int, error) {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}

	var buf bytes.Buffer
	if reqBody != nil {
		if err := json.NewEncoder(&buf).Encode(reqBody); err != nil {
			return 0, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, &buf)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.ServiceKey)
	req.Header.Set("apikey", c.ServiceKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	b, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return resp.StatusCode, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(b) > 0 {
			return resp.StatusCode, fmt.Errorf("identity admin api error: status=%d body=%s", resp.StatusCode, string(b))
		}
		return resp.StatusCode, fmt.Errorf("identity admin api error: status=%d", resp.StatusCode)
	}

	if respBody != nil && len(b) > 0 {
		if err := json.Unmarshal(b, respBody); err != nil {
			return resp.StatusCode, fmt.Errorf("decode identity response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
