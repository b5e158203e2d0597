package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/chicago-dig-bot/internal/domain"
)

// LoadAliases reads the contractor alias table: a YAML mapping of observed
// name variants to canonical names. A missing path yields an empty table,
// not an error, since the file is optional operational data.
func LoadAliases(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read alias file: %w", err)
	}

	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse alias file %s: %w", path, err)
	}
	return domain.NormalizeAliasTable(raw), nil
}

// LoadHolidays reads the holiday calendar: a YAML list of YYYY-MM-DD dates
// excluded from historical baselines. Like the alias table, the file is
// optional.
func LoadHolidays(path string) (map[time.Time]bool, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read holidays file: %w", err)
	}

	var dates []string
	if err := yaml.Unmarshal(data, &dates); err != nil {
		return nil, fmt.Errorf("parse holidays file %s: %w", path, err)
	}

	holidays := make(map[time.Time]bool, len(dates))
	for _, s := range dates {
		day, err := domain.ParseDate(s)
		if err != nil {
			return nil, fmt.Errorf("holidays file %s: %w", path, err)
		}
		holidays[day] = true
	}
	return holidays, nil
}
