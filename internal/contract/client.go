package contract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	clierrors "github.com/entctl/entctl/internal/errors"
	"github.com/rs/zerolog/log"
)

// Refresher fetches an updated contract document. The engine depends on
// this interface, not on the HTTP client, so tests inject fakes.
type Refresher interface {
	Refresh(ctx context.Context) (*MachineToken, error)
}

// Client talks to the contract backend over HTTPS with bearer auth. Retry
// and timeout policy lives here, not in the engine.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a contract client authenticated with the machine token.
func NewClient(baseURL, machineToken string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   machineToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Refresh fetches the current machine token document from the backend.
func (c *Client) Refresh(ctx context.Context) (*MachineToken, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/contracts/machine", nil)
	if err != nil {
		return nil, clierrors.New(clierrors.KindValidation, "refresh_contract", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	return c.do(req, "refresh_contract")
}

// Attach exchanges an attach token for a machine token, registering this
// machine against the contract.
func (c *Client) Attach(ctx context.Context, attachToken, machineID string) (*MachineToken, error) {
	body, err := json.Marshal(map[string]string{"machineId": machineID})
	if err != nil {
		return nil, clierrors.New(clierrors.KindValidation, "attach_contract", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/contracts/machine/attach", bytes.NewReader(body))
	if err != nil {
		return nil, clierrors.New(clierrors.KindValidation, "attach_contract", err)
	}
	req.Header.Set("Authorization", "Bearer "+attachToken)
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, "attach_contract")
}

// Detach deregisters the machine from the contract.
func (c *Client) Detach(ctx context.Context, machineID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/contracts/machine/detach", nil)
	if err != nil {
		return clierrors.New(clierrors.KindValidation, "detach_contract", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return clierrors.New(clierrors.KindNetwork, "detach_contract", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return clierrors.WrapContractError("detach_contract",
			fmt.Errorf("unexpected status %d", resp.StatusCode), resp.StatusCode)
	}
	return nil
}

func (c *Client) do(req *http.Request, op string) (*MachineToken, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, clierrors.New(clierrors.KindNetwork, op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, clierrors.New(clierrors.KindNetwork, op, err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Debug().Int("status", resp.StatusCode).Str("op", op).Msg("Contract backend rejected request")
		return nil, clierrors.WrapContractError(op,
			fmt.Errorf("unexpected status %d", resp.StatusCode), resp.StatusCode)
	}

	var token MachineToken
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, clierrors.WrapContractError(op,
			fmt.Errorf("decoding contract document: %w", err), resp.StatusCode)
	}
	return &token, nil
}
