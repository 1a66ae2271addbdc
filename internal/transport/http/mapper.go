package http

import (
	"encoding/json"
	"fmt"
)

// unmarshalData decodes an inbound frame's data field.
func unmarshalData(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("missing data")
	}
	return json.Unmarshal(raw, v)
}
