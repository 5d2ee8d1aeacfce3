package clients

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/tee-provenance-registry/api"
	"github.com/ruteri/tee-provenance-registry/host"
	"github.com/ruteri/tee-provenance-registry/interfaces"
)

// APIError is a non-2xx response. It unwraps to the contract error sentinel
// or to host.ErrAborted, so callers branch with errors.Is exactly as they
// would against a local ledger.
type APIError struct {
	StatusCode int
	Message    string
	Code       uint32
	Aborted    bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	if e.Aborted {
		return host.ErrAborted
	}
	if ce := interfaces.ContractErrorByCode(e.Code); ce != nil {
		return ce
	}
	return nil
}

// Client talks to the registry HTTP API. Calls that require authorization
// are signed with key; a client without a key can only use public routes.
type Client struct {
	baseURL      string
	key          *ecdsa.PrivateKey
	httpClient   *http.Client
	authValidity time.Duration
}

func NewClient(baseURL string, key *ecdsa.PrivateKey) *Client {
	return &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		key:          key,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		authValidity: time.Minute,
	}
}

// Address is the principal the client signs as, zero without a key.
func (c *Client) Address() interfaces.Principal {
	if c.key == nil {
		return interfaces.Principal{}
	}
	return crypto.PubkeyToAddress(c.key.PublicKey)
}

func (c *Client) do(ctx context.Context, method, path string, in any, signed bool, out any) error {
	var body []byte
	if raw, ok := in.([]byte); ok {
		body = raw
	} else if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = encoded
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		if _, ok := in.([]byte); ok {
			req.Header.Set("Content-Type", "application/octet-stream")
		} else {
			req.Header.Set("Content-Type", "application/json")
		}
	}
	if signed {
		if c.key == nil {
			return errors.New("a signing key is required for this call")
		}
		if err := api.SignRequest(req, body, c.key, time.Now().Add(c.authValidity)); err != nil {
			return err
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		var errResp api.ErrorResponse
		if json.Unmarshal(raw, &errResp) != nil || errResp.Error == "" {
			errResp.Error = strings.TrimSpace(string(raw))
		}
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    errResp.Error,
			Code:       errResp.Code,
			Aborted:    errResp.Aborted,
		}
	}

	switch dst := out.(type) {
	case nil:
		return nil
	case *[]byte:
		*dst, err = io.ReadAll(resp.Body)
		return err
	default:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	}
}
