package hue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrUnauthorized is returned when the bridge does not accept the configured token.
var ErrUnauthorized = errors.New("hue bridge rejected token")

// Client provides access to the Hue v1 REST API
type Client struct {
	address    string
	token      string
	httpClient *http.Client
}

// NewClient creates a new Hue client.
// address is a bridge host (192.168.1.2) or a base URL (http://host:port).
func NewClient(address, token string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		address: address,
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Connect verifies the bridge is reachable and accepts the token
func (c *Client) Connect(ctx context.Context) error {
	var raw map[string]json.RawMessage
	if err := c.get(ctx, "lights", &raw); err != nil {
		return fmt.Errorf("failed to connect to Hue bridge: %w", err)
	}

	log.Info().Str("address", c.address).Int("lights", len(raw)).Msg("Connected to Hue bridge")
	return nil
}

// Close closes the client
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// Address returns the bridge address
func (c *Client) Address() string {
	return c.address
}

func (c *Client) url(path string) string {
	base := c.address
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return fmt.Sprintf("%s/api/%s/%s", strings.TrimRight(base, "/"), c.token, path)
}

func (c *Client) request(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	// The v1 API reports errors as a 200 with an array of error objects
	if err := firstError(data); err != nil {
		return nil, err
	}
	return data, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	data, err := c.request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) put(ctx context.Context, path string, update StateUpdate) error {
	body, err := json.Marshal(update)
	if err != nil {
		return err
	}
	_, err = c.request(ctx, http.MethodPut, path, bytes.NewReader(body))
	return err
}

// firstError returns the first error entry of a v1 response array, if any.
func firstError(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil
	}

	var responses []apiResponse
	if err := json.Unmarshal(trimmed, &responses); err != nil {
		return fmt.Errorf("malformed bridge response: %w", err)
	}
	for _, r := range responses {
		if r.Error == nil {
			continue
		}
		if r.Error.Unauthorized() {
			return fmt.Errorf("%w: %w", ErrUnauthorized, r.Error)
		}
		return r.Error
	}
	return nil
}

// Groups returns all groups known to the bridge, ordered by ID
func (c *Client) Groups(ctx context.Context) ([]Group, error) {
	var raw map[string]Group
	if err := c.get(ctx, "groups", &raw); err != nil {
		return nil, err
	}

	groups := make([]Group, 0, len(raw))
	for id, group := range raw {
		group.ID = id
		groups = append(groups, group)
	}
	sort.Slice(groups, func(i, j int) bool { return lessID(groups[i].ID, groups[j].ID) })

	log.Debug().Int("groups", len(groups)).Msg("Fetched groups")
	return groups, nil
}

// Lights returns all lights known to the bridge, ordered by ID
func (c *Client) Lights(ctx context.Context) ([]Light, error) {
	var raw map[string]Light
	if err := c.get(ctx, "lights", &raw); err != nil {
		return nil, err
	}

	lights := make([]Light, 0, len(raw))
	for id, light := range raw {
		light.ID = id
		lights = append(lights, light)
	}
	sort.Slice(lights, func(i, j int) bool { return lessID(lights[i].ID, lights[j].ID) })

	log.Debug().Int("lights", len(lights)).Msg("Fetched lights")
	return lights, nil
}

// SetGroupAction sends an action to a group
func (c *Client) SetGroupAction(ctx context.Context, groupID string, update StateUpdate) error {
	if err := c.put(ctx, fmt.Sprintf("groups/%s/action", groupID), update); err != nil {
		return fmt.Errorf("failed to set group action: %w", err)
	}
	return nil
}

// SetLightState sends a state change to a single light
func (c *Client) SetLightState(ctx context.Context, lightID string, update StateUpdate) error {
	if err := c.put(ctx, fmt.Sprintf("lights/%s/state", lightID), update); err != nil {
		return fmt.Errorf("failed to set light state: %w", err)
	}
	return nil
}

// lessID orders numeric bridge IDs numerically ("2" before "10").
func lessID(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
