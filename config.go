package thrift

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// AllowlistConfig is the on-disk allowlist format.
//
// Example YAML:
//
//	tables:
//	  transactions:
//	    columns:
//	      account_id: uuid
//	      transaction_type: text
//	      creation_time: timestamptz
//	    constraints:
//	      account_id: not_null
//	    expressions:
//	      - count(transaction_id)
type AllowlistConfig struct {
	Tables map[string]TableSchema `yaml:"tables"`
}

// LoadAllowlist reads an allowlist from a YAML file.
func LoadAllowlist(path string) (*Allowlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read allowlist config: %w", err)
	}
	return ParseAllowlist(data)
}

// ParseAllowlist builds an allowlist from YAML bytes.
func ParseAllowlist(data []byte) (*Allowlist, error) {
	var cfg AllowlistConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse allowlist config: %w", err)
	}
	if len(cfg.Tables) == 0 {
		return nil, fmt.Errorf("allowlist config declares no tables")
	}

	names := make([]string, 0, len(cfg.Tables))
	for name := range cfg.Tables {
		names = append(names, name)
	}
	sort.Strings(names)

	schemas := make([]TableSchema, 0, len(names))
	for _, name := range names {
		schema := cfg.Tables[name]
		schema.Name = name
		schemas = append(schemas, schema)
	}

	return NewAllowlist(schemas...)
}
