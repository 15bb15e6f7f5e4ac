package dto

import (
	"bytes"
	"encoding/json"
)

// MontoTexto keeps an amount exactly as the client typed it. It accepts a
// JSON number or a JSON string ("12,50" included); the service parses it with
// caja.ParseMonto so malformed input surfaces as InvalidAmount instead of a
// binding error or a silent zero.
type MontoTexto string

func (m *MontoTexto) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*m = MontoTexto(s)
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		*m = ""
		return nil
	}
	*m = MontoTexto(b)
	return nil
}

func (m MontoTexto) String() string { return string(m) }
