package objectstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/foxford/eventd/internal/eventstore"
	eventstorage "github.com/foxford/eventd/internal/eventstore/storage"
)

// HTTPStore is the default Store implementation. No S3 SDK appears anywhere
// in the retrieved example corpus, so this talks to the configured endpoint
// with a plain PUT carrying basic-auth credentials rather than pulling in an
// unrelated cloud SDK.
type HTTPStore struct {
	Events    eventstorage.Database
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	Client    *http.Client
}

// NewHTTPStore builds an HTTPStore bound to the configured S3-compatible
// endpoint and the event store it reads room history from.
func NewHTTPStore(events eventstorage.Database, endpoint, bucket, accessKey, secretKey string) *HTTPStore {
	return &HTTPStore{
		Events: events, Endpoint: endpoint, Bucket: bucket,
		AccessKey: accessKey, SecretKey: secretKey, Client: &http.Client{},
	}
}

// DumpEventsToBucket lists every non-removed event in roomID, serializes it
// to a single JSON array, and uploads it as one object named by the room ID
// (spec.md §4.C "room.dump_events" task).
func (s *HTTPStore) DumpEventsToBucket(ctx context.Context, roomID uuid.UUID) (string, error) {
	events, err := s.Events.ListNonRemoved(ctx, roomID)
	if err != nil {
		return "", fmt.Errorf("objectstore: list events: %w", err)
	}

	payload, err := json.Marshal(dumpEnvelope{RoomID: roomID, Events: events})
	if err != nil {
		return "", fmt.Errorf("objectstore: encode dump: %w", err)
	}

	key := roomID.String() + ".json"
	uri := s.Endpoint + "/" + s.Bucket + "/" + key

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uri, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("objectstore: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(s.AccessKey, s.SecretKey)

	res, err := s.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("objectstore: upload failed: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated && res.StatusCode != http.StatusNoContent {
		return "", fmt.Errorf("objectstore: unexpected status %d", res.StatusCode)
	}
	return uri, nil
}

type dumpEnvelope struct {
	RoomID uuid.UUID          `json:"room_id"`
	Events []eventstore.Event `json:"events"`
}
