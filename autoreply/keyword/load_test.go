package keyword

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRulesFile(t *testing.T) {
	assert := assert.New(t)

	blob := `{
		"keywords": [
			{"pattern": "pune", "matchType": "exact", "priority": 3, "category": "india_specific"},
			{"pattern": "visa", "scope": "title"}
		],
		"blacklist": [
			{"pattern": "giveaway"}
		]
	}`
	p := filepath.Join(t.TempDir(), "rules.json")
	require.NoError(t, os.WriteFile(p, []byte(blob), 0o644))

	rs, err := LoadRulesFile(p)
	require.NoError(t, err)
	assert.Len(rs.Keywords, 2)
	assert.Len(rs.Blacklist, 1)

	v := rs.Evaluate("moving to Pune", "")
	assert.True(v.Matched)
	assert.Equal("india_specific", v.Category)

	// second rule got defaults filled in
	assert.Equal(MatchPartial, rs.Keywords[1].MatchType)
	assert.Equal("general", rs.Keywords[1].Category)
}

func TestLoadRulesFileErrors(t *testing.T) {
	assert := assert.New(t)

	_, err := LoadRulesFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(err)

	p := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(p, []byte(`{"keywords": [{"pattern": "[", "matchType": "regex"}]}`), 0o644))
	_, err = LoadRulesFile(p)
	assert.Error(err)
	assert.ErrorContains(err, "invalid keywords rule")
}
