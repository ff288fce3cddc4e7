package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSONObjectArg_InlineJSON(t *testing.T) {
	obj, err := parseJSONObjectArg(`{"a": 1, "b": "two"}`)
	require.NoError(t, err)
	assert.Equal(t, float64(1), obj["a"])
	assert.Equal(t, "two", obj["b"])
}

func TestParseJSONObjectArg_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trigger.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"source": "file"}`), 0o644))

	obj, err := parseJSONObjectArg("@" + path)
	require.NoError(t, err)
	assert.Equal(t, "file", obj["source"])
}

func TestParseJSONObjectArg_Empty(t *testing.T) {
	obj, err := readTriggerPayload("")
	require.NoError(t, err)
	assert.Empty(t, obj)
}

func TestParseJSONObjectArg_InvalidJSON(t *testing.T) {
	_, err := parseJSONObjectArg(`not json`)
	assert.Error(t, err)
}
