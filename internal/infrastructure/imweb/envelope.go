package imweb

import (
	"bytes"
	"encoding/json"
)

// envelope is the common imweb response wrapper. Code 200 signals success;
// the payload under data varies in shape between endpoints (and between
// deployments of the same endpoint).
type envelope struct {
	Code        int             `json:"code"`
	Message     string          `json:"msg"`
	AccessToken string          `json:"access_token"`
	Data        json.RawMessage `json:"data"`
}

// candidateListKeys is the ordered list of keys under which the API has been
// observed to nest list payloads.
var candidateListKeys = []string{"list", "orders", "data", "items"}

// normalizeList flattens the observed list payload shapes - a bare array, or
// an object carrying the array under one of the candidate keys - into a flat
// slice of objects. Unexpected shapes normalize to an empty slice, never an
// error: one malformed response must not abort a poll cycle.
func normalizeList(raw json.RawMessage) []map[string]any {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	if raw[0] == '[' {
		var list []map[string]any
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil
		}
		return list
	}

	if raw[0] == '{' {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil
		}
		for _, key := range candidateListKeys {
			nested, ok := obj[key]
			if !ok {
				continue
			}
			nested = bytes.TrimSpace(nested)
			if len(nested) == 0 || nested[0] != '[' {
				continue
			}
			var list []map[string]any
			if err := json.Unmarshal(nested, &list); err != nil {
				continue
			}
			return list
		}
	}

	return nil
}
