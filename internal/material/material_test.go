package material

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}

func TestNormalize(t *testing.T) {
	testCases := []struct {
		name     string
		raw      string
		expected string
	}{
		{
			name:     "Alias PET",
			raw:      "pet",
			expected: "plastica",
		},
		{
			name:     "Alias cardboard",
			raw:      "cardboard",
			expected: "carta",
		},
		{
			name:     "Uppercase with padding",
			raw:      "  PET  ",
			expected: "plastica",
		},
		{
			name:     "Spaces become underscores",
			raw:      "Food Waste",
			expected: "organico",
		},
		{
			name:     "Hyphens become underscores",
			raw:      "plastic-bottle",
			expected: "plastica",
		},
		{
			name:     "Canonical name passes through",
			raw:      "plastica",
			expected: "plastica",
		},
		{
			name:     "Unknown passes through normalized",
			raw:      "Mystery Goo",
			expected: "mystery_goo",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Normalize(tc.raw))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	for _, raw := range []string{"pet", "Cardboard", "vetro", "mystery goo", "  Aluminium "} {
		once := Normalize(raw)
		assert.Equal(t, once, Normalize(once), "normalizing %q twice should be a no-op", raw)
	}
}

func TestTableFactor(t *testing.T) {
	table := NewTable(map[string]float64{"plastica": 1.5, "carta": 0.9})

	f, err := table.Factor("plastica")
	require.NoError(t, err)
	assert.Equal(t, 1.5, f)

	_, err = table.Factor("polistirolo")
	require.Error(t, err)

	var unknown *UnknownMaterialError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "polistirolo", unknown.Name)
	assert.Contains(t, err.Error(), "polistirolo")
}

func TestLoadTableDefaults(t *testing.T) {
	table, err := LoadTable("")
	require.NoError(t, err)

	// The canonical set every alias resolves into must be present.
	for _, canonical := range []string{"plastica", "carta", "vetro", "alluminio", "metallo", "organico", "indifferenziato"} {
		_, err := table.Factor(canonical)
		assert.NoError(t, err, "missing factor for %s", canonical)
	}
}

func TestLoadTableFromFile(t *testing.T) {
	path := t.TempDir() + "/factors.yaml"
	require.NoError(t, writeFile(path, "plastica: 2.0\ncarta: 1.0\n"))

	table, err := LoadTable(path)
	require.NoError(t, err)

	f, err := table.Factor("plastica")
	require.NoError(t, err)
	assert.Equal(t, 2.0, f)

	_, err = table.Factor("vetro")
	assert.Error(t, err, "file factors replace the defaults, not merge")
}
