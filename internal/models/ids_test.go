package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDBase62RoundTrip(t *testing.T) {
	cases := []ID{0, 1, 61, 62, 12345, 999999999, 1<<62 + 17}
	for _, id := range cases {
		parsed, err := ParseID(id.Base62())
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
	}
}

func TestIDBase62KnownValues(t *testing.T) {
	assert.Equal(t, "0", ID(0).Base62())
	assert.Equal(t, "z", ID(61).Base62())
	assert.Equal(t, "10", ID(62).Base62())
	assert.Equal(t, "100", ID(62*62).Base62())
}

func TestParseIDRejectsInvalidCharacters(t *testing.T) {
	_, err := ParseID("abc-def")
	assert.Error(t, err)

	_, err = ParseID("with space")
	assert.Error(t, err)

	_, err = ParseID("")
	assert.Error(t, err)
}

func TestParseIDRejectsOverflow(t *testing.T) {
	// 12 base62 digits always exceed 64 bits.
	_, err := ParseID("zzzzzzzzzzzz")
	assert.Error(t, err)

	// 11-digit strings above 2^64-1 must not wrap around to a smaller value;
	// this one is 22872263831466450828.
	_, err = ParseID("RFbD56TI2sm")
	assert.Error(t, err)

	// The largest representable value is still accepted.
	parsed, err := ParseID("LygHa16AHYF")
	require.NoError(t, err)
	assert.Equal(t, "LygHa16AHYF", parsed.Base62())
}

func TestIDJSONEncoding(t *testing.T) {
	type wrapper struct {
		ID ID `json:"id"`
	}

	raw, err := json.Marshal(wrapper{ID: 12345})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"3D7"}`, string(raw))

	var w wrapper
	require.NoError(t, json.Unmarshal(raw, &w))
	assert.Equal(t, ID(12345), w.ID)
}

func TestIDJSONRejectsNumbers(t *testing.T) {
	type wrapper struct {
		ID ID `json:"id"`
	}
	var w wrapper
	assert.Error(t, json.Unmarshal([]byte(`{"id":12345}`), &w))
}
