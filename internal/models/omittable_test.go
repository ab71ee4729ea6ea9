package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type omittablePayload struct {
	LicenseURL Omittable[string] `json:"license_url"`
}

func TestOmittableAbsentField(t *testing.T) {
	var p omittablePayload
	require.NoError(t, json.Unmarshal([]byte(`{}`), &p))

	assert.False(t, p.LicenseURL.Present())
	assert.Nil(t, p.LicenseURL.Value())
}

func TestOmittableExplicitNull(t *testing.T) {
	var p omittablePayload
	require.NoError(t, json.Unmarshal([]byte(`{"license_url":null}`), &p))

	assert.True(t, p.LicenseURL.Present())
	assert.Nil(t, p.LicenseURL.Value())
}

func TestOmittableValue(t *testing.T) {
	var p omittablePayload
	require.NoError(t, json.Unmarshal([]byte(`{"license_url":"https://example.com"}`), &p))

	assert.True(t, p.LicenseURL.Present())
	require.NotNil(t, p.LicenseURL.Value())
	assert.Equal(t, "https://example.com", *p.LicenseURL.Value())
}

func TestOmittableConstructors(t *testing.T) {
	set := OmittableOf("x")
	assert.True(t, set.Present())
	require.NotNil(t, set.Value())
	assert.Equal(t, "x", *set.Value())

	null := OmittableNull[string]()
	assert.True(t, null.Present())
	assert.Nil(t, null.Value())
}
