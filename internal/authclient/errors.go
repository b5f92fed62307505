package authclient

import (
	"bytes"
	"encoding/json"
)

// DefaultErrorMessage is used when a rejection carries no recognisable errors field.
const DefaultErrorMessage = "An error occurred"

// ErrorMessage extracts one human-readable message from the envelope's
// errors field. Two shapes are understood:
//
//	["msg", ...]                     -> "msg"
//	{"field": ["msg", ...], ...}     -> "field: msg" (first field in document order)
//
// Anything else yields DefaultErrorMessage.
func ErrorMessage(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return DefaultErrorMessage
	}

	switch raw[0] {
	case '[':
		var list []string
		if err := json.Unmarshal(raw, &list); err != nil || len(list) == 0 || list[0] == "" {
			return DefaultErrorMessage
		}
		return list[0]
	case '{':
		field, msgs, ok := firstField(raw)
		if !ok || len(msgs) == 0 || msgs[0] == "" {
			return DefaultErrorMessage
		}
		return field + ": " + msgs[0]
	default:
		return DefaultErrorMessage
	}
}

// firstField walks the object token by token because map decoding loses key order.
func firstField(raw json.RawMessage) (string, []string, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return "", nil, false
	}
	if !dec.More() {
		return "", nil, false
	}

	tok, err := dec.Token()
	if err != nil {
		return "", nil, false
	}
	key, ok := tok.(string)
	if !ok {
		return "", nil, false
	}

	var msgs []string
	if err := dec.Decode(&msgs); err != nil {
		return "", nil, false
	}
	return key, msgs, true
}
