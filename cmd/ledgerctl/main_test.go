package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRulesListsBuiltInCatalog(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"rules"}, &out))

	var views []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &views))
	require.NotEmpty(t, views)

	codes := make(map[string]bool, len(views))
	for _, v := range views {
		codes[v["code"].(string)] = true
	}
	assert.True(t, codes["GAAP_DOUBLE_ENTRY"])
}

func TestRulesRejectsBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules: [{code: X, family: NOPE}]\n"), 0o600))

	var out bytes.Buffer
	err := run(context.Background(), []string{"rules", "-file", path}, &out)
	require.Error(t, err)
	assert.Empty(t, out.String())
}

func TestUnknownCommand(t *testing.T) {
	t.Setenv("LEDGERGUARD_AUTH_JWT_SIGNING_KEY", "0123456789abcdef0123456789abcdef")
	t.Chdir(t.TempDir())

	err := run(context.Background(), []string{"frobnicate"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

func TestMissingCommand(t *testing.T) {
	err := run(context.Background(), nil, &bytes.Buffer{})
	require.Error(t, err)
}
