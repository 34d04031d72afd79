package rules

import (
	_ "embed"
	"fmt"
	"os"

	"import-service/internal/core/domain"

	"gopkg.in/yaml.v2"
)

//go:embed default_rules.yaml
var defaultRulesYAML []byte

// Default возвращает встроенные таблицы правил
func Default() (*domain.RuleSet, error) {
	return Parse(defaultRulesYAML)
}

// Load читает таблицы правил из файла. Пустой путь означает встроенные правила.
func Load(path string) (*domain.RuleSet, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse разбирает и проверяет YAML с таблицами правил
func Parse(data []byte) (*domain.RuleSet, error) {
	var set domain.RuleSet
	if err := yaml.UnmarshalStrict(data, &set); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	if err := validate(&set); err != nil {
		return nil, err
	}
	return &set, nil
}

func validate(set *domain.RuleSet) error {
	if len(set.Cities) == 0 {
		return fmt.Errorf("rules: at least one city is required")
	}
	if set.PlaceholderOffset <= 0 || set.PlaceholderOffset > domain.PlaceholderSpread {
		return fmt.Errorf("rules: placeholder_offset must be in (0, %g]", domain.PlaceholderSpread)
	}
	foundDefault := false
	for i, c := range set.Cities {
		if c.City == "" || len(c.Keywords) == 0 {
			return fmt.Errorf("rules: city #%d needs a name and keywords", i)
		}
		if !(domain.Coordinates{Latitude: c.Latitude, Longitude: c.Longitude}).Valid() {
			return fmt.Errorf("rules: city %s has out of range coordinates", c.City)
		}
		if c.City == set.DefaultCity {
			foundDefault = true
		}
	}
	if !foundDefault {
		return fmt.Errorf("rules: default_city %q is not in the city table", set.DefaultCity)
	}
	for i, c := range set.Categories {
		if c.Category == "" || len(c.Keywords) == 0 {
			return fmt.Errorf("rules: category #%d needs a name and keywords", i)
		}
	}
	return nil
}
