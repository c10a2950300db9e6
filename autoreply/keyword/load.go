package keyword

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadRulesFile reads a rule set from a JSON file and compiles it. The file
// holds two ordered lists:
//
//	{
//	  "keywords":  [{"pattern": "mumbai", "matchType": "exact", "priority": 3, "category": "india_specific"}],
//	  "blacklist": [{"pattern": "nsfw"}]
//	}
func LoadRulesFile(p string) (*RuleSet, error) {
	raw, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}
	var rs RuleSet
	if err := json.Unmarshal(raw, &rs); err != nil {
		return nil, fmt.Errorf("parsing rules file %s: %w", p, err)
	}
	if err := rs.Compile(); err != nil {
		return nil, err
	}
	return &rs, nil
}
