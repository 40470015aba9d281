package gallery

import (
	"encoding/json"
	"fmt"

	"github.com/pulseritas/storefront/internal/catalog"
)

// PageSnapshot is one immutable cached page of the storefront feed.
//
// Items are in server-returned order (creation time descending). NextCursor
// records the ordering value of the last row as unix milliseconds; the page
// being shorter than the page size is the terminal signal, so the cursor
// still advances past a short final page.
type PageSnapshot struct {
	Items      []catalog.Item `json:"items"`
	NextCursor *int64         `json:"next_cursor,omitempty"`
}

// encodeSnapshot serializes a snapshot for cache storage.
func encodeSnapshot(snapshot PageSnapshot) ([]byte, error) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("encode page snapshot: %w", err)
	}
	return payload, nil
}

// decodeSnapshot deserializes a cached snapshot payload.
func decodeSnapshot(payload []byte) (PageSnapshot, error) {
	var snapshot PageSnapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return PageSnapshot{}, fmt.Errorf("decode page snapshot: %w", err)
	}
	return snapshot, nil
}
