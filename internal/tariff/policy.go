package tariff

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tariffshield/harrier/internal/domain"
)

// LoadPolicyFile reads a policy table override from a JSON file.
// Missing fields fall back to the built-in defaults so an override
// can patch a single rate without restating the whole table.
func LoadPolicyFile(path string) (*domain.PolicyTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy table: %w", err)
	}
	policy := domain.DefaultPolicyTable()
	if err := json.Unmarshal(data, policy); err != nil {
		return nil, fmt.Errorf("parse policy table %s: %w", path, err)
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("policy table %s: %w", path, err)
	}
	return policy, nil
}
