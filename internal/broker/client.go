package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPBroker is the default Broker implementation: a thin JSON/HTTP client
// against the external real-time messaging service.
type HTTPBroker struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPBroker builds an HTTPBroker with the given timeout.
func NewHTTPBroker(baseURL string, timeout time.Duration) *HTTPBroker {
	return &HTTPBroker{BaseURL: baseURL, Client: &http.Client{Timeout: timeout}}
}

type enterRequest struct {
	RoomID    string `json:"room_id"`
	AgentID   string `json:"agent_id"`
	AccountID string `json:"account_id"`
	Label     string `json:"label"`
}

func (b *HTTPBroker) enter(ctx context.Context, path string, req EnterRequest) error {
	body, err := json.Marshal(enterRequest{
		RoomID: req.RoomID.String(), AgentID: req.AgentID,
		AccountID: req.AccountID, Label: req.Label,
	})
	if err != nil {
		return fmt.Errorf("broker: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("broker: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := b.Client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("broker: request failed: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusNoContent {
		return fmt.Errorf("broker: unexpected status %d", res.StatusCode)
	}
	return nil
}

func (b *HTTPBroker) EnterRoom(ctx context.Context, req EnterRequest) error {
	return b.enter(ctx, "/rooms/enter", req)
}

func (b *HTTPBroker) EnterBroadcastRoom(ctx context.Context, req EnterRequest) error {
	return b.enter(ctx, "/broadcast_rooms/enter", req)
}
