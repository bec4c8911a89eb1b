package warehouse

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultSecretsSection is the top-level key holding the credential bundle.
const DefaultSecretsSection = "snowflake"

// Credentials is the bundle needed by the explicit-credential strategy.
type Credentials struct {
	User      string `yaml:"user"`
	Password  string `yaml:"password"`
	Account   string `yaml:"account"`
	Warehouse string `yaml:"warehouse"`
	Database  string `yaml:"database"`
	Schema    string `yaml:"schema"`
	Role      string `yaml:"role"`
}

// Validate reports every missing field at once.
func (c Credentials) Validate() error {
	var missing []string
	for _, f := range []struct {
		name, value string
	}{
		{"user", c.User},
		{"password", c.Password},
		{"account", c.Account},
		{"warehouse", c.Warehouse},
		{"database", c.Database},
		{"schema", c.Schema},
		{"role", c.Role},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("credentials missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// String identifies the target without the password.
func (c Credentials) String() string {
	return fmt.Sprintf("%s@%s/%s.%s", c.User, c.Account, c.Database, c.Schema)
}

// LoadCredentials reads a YAML secrets file and returns the named section.
//
//	snowflake:
//	  user: ...
//	  password: ...
func LoadCredentials(path, section string) (Credentials, error) {
	if section == "" {
		section = DefaultSecretsSection
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("read secrets: %w", err)
	}

	var sections map[string]Credentials
	if err := yaml.Unmarshal(data, &sections); err != nil {
		return Credentials{}, fmt.Errorf("parse secrets %s: %w", path, err)
	}

	creds, ok := sections[section]
	if !ok {
		return Credentials{}, fmt.Errorf("secrets %s: no %q section", path, section)
	}

	return creds, creds.Validate()
}
