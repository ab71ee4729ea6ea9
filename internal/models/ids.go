// Package models defines the database entities, view aggregates and shared
// domain types for the mod hosting API.
package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// ID is a 64-bit entity identifier. Internally it is a plain integer primary
// key; on the wire it is encoded as an opaque base-62 string. The two forms
// are isomorphic and conversion is lossless.
type ID int64

const base62Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// Base62 returns the canonical external encoding of the id.
func (id ID) Base62() string {
	n := uint64(id)
	if n == 0 {
		return "0"
	}
	var buf [11]byte // ceil(64 / log2(62))
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = base62Alphabet[n%62]
		n /= 62
	}
	return string(buf[i:])
}

// ParseID decodes a base-62 encoded id. It is the exact inverse of Base62.
func ParseID(s string) (ID, error) {
	if s == "" {
		return 0, fmt.Errorf("empty id")
	}
	var n uint64
	for _, c := range []byte(s) {
		idx := strings.IndexByte(base62Alphabet, c)
		if idx < 0 {
			return 0, fmt.Errorf("invalid character %q in id %q", c, s)
		}
		// Modular wrap-around after the multiply can land anywhere, so the
		// bound has to be checked before n is scaled.
		if n > (math.MaxUint64-uint64(idx))/62 {
			return 0, fmt.Errorf("id %q overflows 64 bits", s)
		}
		n = n*62 + uint64(idx)
	}
	return ID(n), nil
}

// MarshalJSON encodes the id as its base-62 string form.
func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.Base62())
}

// UnmarshalJSON accepts the base-62 string form.
func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseID(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id ID) String() string {
	return id.Base62()
}
