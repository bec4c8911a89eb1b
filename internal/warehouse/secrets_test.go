package warehouse

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSecrets(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "secrets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadCredentials(t *testing.T) {
	path := writeSecrets(t, `
snowflake:
  user: analyst
  password: secret
  account: xy12345
  warehouse: COMPUTE_WH
  database: AVALANCHE_DB
  schema: AVALANCHE_SCHEMA
  role: ACCOUNTADMIN
`)

	creds, err := LoadCredentials(path, "")
	require.NoError(t, err)
	assert.Equal(t, testCredentials(), creds)
	assert.Equal(t, "analyst@xy12345/AVALANCHE_DB.AVALANCHE_SCHEMA", creds.String())
}

func TestLoadCredentialsErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadCredentials(filepath.Join(t.TempDir(), "nope.yaml"), "")
		assert.Error(t, err)
	})

	t.Run("missing section", func(t *testing.T) {
		path := writeSecrets(t, "other:\n  user: x\n")
		_, err := LoadCredentials(path, "snowflake")
		assert.ErrorContains(t, err, `no "snowflake" section`)
	})

	t.Run("missing fields", func(t *testing.T) {
		path := writeSecrets(t, "prod:\n  user: x\n  password: y\n")
		_, err := LoadCredentials(path, "prod")
		assert.ErrorContains(t, err, "account, warehouse, database, schema, role")
	})

	t.Run("bad yaml", func(t *testing.T) {
		path := writeSecrets(t, "snowflake: [unterminated")
		_, err := LoadCredentials(path, "")
		assert.Error(t, err)
	})
}
