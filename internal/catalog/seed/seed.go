// Package seed loads catalog fixtures.
package seed

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dwikikusuma/rocketshoes-cart/internal/catalog/domain"
)

//go:embed default.json
var defaultSeed []byte

// Load reads the fixture at path, or the embedded default when path is empty.
func Load(path string) (domain.Seed, error) {
	data := defaultSeed
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return domain.Seed{}, fmt.Errorf("read seed: %w", err)
		}
		data = b
	}
	var s domain.Seed
	if err := json.Unmarshal(data, &s); err != nil {
		return domain.Seed{}, fmt.Errorf("decode seed: %w", err)
	}
	return s, nil
}
