package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"YieldOptimizer/internal/fund"
	"YieldOptimizer/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := `
auth:
  jwt_secret: "cli-test-secret-0123456789"
database:
  sqlite_path: "` + filepath.Join(dir, "records.db") + `"
  events_path: "` + filepath.Join(dir, "events.db") + `"
fund:
  min_reallocation_period: "0s"
governance:
  authority: "gov"
  fee_rate: 100
rates:
  static:
    raydium: 5
    solend: 8
log:
  level: "error"
`
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

func run(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCommandsShareState(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, cfg, "init", "alice")
	require.NoError(t, err, out)

	_, err = run(t, cfg, "init", "alice")
	assert.ErrorIs(t, err, model.ErrAlreadyInitialized)

	_, err = run(t, cfg, "credit", "alice", "USDC", "1000")
	require.NoError(t, err)

	out, err = run(t, cfg, "optimize", "alice", "--from", "raydium", "--to", "solend", "--mint", "USDC", "--amount", "1000")
	require.NoError(t, err, out)
	var res fund.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, uint64(990), res.Net)

	out, err = run(t, cfg, "optimize", "alice", "--from", "solend", "--to", "raydium", "--mint", "USDC", "--amount", "990")
	require.NoError(t, err)
	assert.Contains(t, out, "no reallocation")

	out, err = run(t, cfg, "ledger", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, `"current_protocol": "solend"`)
	assert.Contains(t, out, `"in_progress": false`)

	_, err = run(t, cfg, "debit", "alice", "USDC", "2000")
	assert.ErrorIs(t, err, model.ErrInsufficientFunds)

	out, err = run(t, cfg, "events", "--owner", "alice", "--type", "funds_reallocated")
	require.NoError(t, err)
	assert.Contains(t, out, "funds_reallocated")
}

func TestFeeCommands(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, cfg, "fee", "get")
	require.NoError(t, err)
	assert.Contains(t, out, `"fee_rate": 100`)

	_, err = run(t, cfg, "fee", "set", "250", "--as", "mallory")
	assert.ErrorIs(t, err, model.ErrUnauthorized)

	_, err = run(t, cfg, "fee", "set", "10001")
	assert.ErrorIs(t, err, model.ErrInvalidFeeRate)

	out, err = run(t, cfg, "fee", "set", "250")
	require.NoError(t, err)
	assert.Contains(t, out, `"fee_rate": 250`)
}

func TestTokenAndVersion(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, cfg, "token", "alice")
	require.NoError(t, err)
	assert.Regexp(t, `^[\w-]+\.[\w-]+\.[\w-]+\n$`, out)

	out, err = run(t, cfg, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "optimizer version")
}
