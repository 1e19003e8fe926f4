package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetErr(&bytes.Buffer{})
	RootCmd.SetArgs(args)
	err := RootCmd.Execute()
	return out.String(), err
}

func setupEnv(t *testing.T) string {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("DEV_MODE", "true")
	t.Setenv("GOOGLE_CLIENT_ID", "client-id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "client-secret")
	t.Setenv("JWT_SECRET", "jwt-secret")
	t.Setenv("AWS_REGION", "eu-west-1")
	return filepath.Join(t.TempDir(), "links.db")
}

func TestAuthURLCommand(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "auth-url", "u1", "--backend", "memory")
	require.NoError(t, err)
	assert.Contains(t, out, "state=u1")
	assert.Contains(t, out, "access_type=offline")
}

func TestStatusAndUnlinkCommands(t *testing.T) {
	db := setupEnv(t)

	out, err := run(t, "status", "u1", "--backend", "bolt", "--bolt-path", db)
	require.NoError(t, err)
	assert.JSONEq(t, `{"linked":false}`, strings.TrimSpace(out))

	out, err = run(t, "unlink", "u1", "--backend", "bolt", "--bolt-path", db)
	require.NoError(t, err)
	assert.Equal(t, "unlinked u1\n", out)

	_, err = os.Stat(db)
	assert.NoError(t, err)
}

func TestCommands_Errors(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "status")
	assert.Error(t, err)

	_, err = run(t, "status", "u1", "--backend", "postgres")
	assert.Error(t, err)
}
