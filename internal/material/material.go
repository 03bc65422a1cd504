package material

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// defaultFactors maps canonical material names to grams of CO2 saved
// per gram diverted. Values follow the project's reference factor
// file; a deployment can override them via materials.factors_path.
var defaultFactors = map[string]float64{
	"plastica":        1.5,
	"carta":           0.9,
	"vetro":           0.3,
	"alluminio":       9.0,
	"metallo":         2.5,
	"organico":        0.2,
	"indifferenziato": 0.0,
}

// aliases maps normalized free-form labels to canonical names.
var aliases = map[string]string{
	"pet":            "plastica",
	"plastic":        "plastica",
	"plastic_bottle": "plastica",
	"hdpe":           "plastica",
	"paper":          "carta",
	"cardboard":      "carta",
	"cartone":        "carta",
	"glass":          "vetro",
	"aluminium":      "alluminio",
	"aluminum":       "alluminio",
	"lattina":        "alluminio",
	"can":            "alluminio",
	"metal":          "metallo",
	"acciaio":        "metallo",
	"organic":        "organico",
	"umido":          "organico",
	"food_waste":     "organico",
	"general_waste":  "indifferenziato",
	"secco":          "indifferenziato",
}

// UnknownMaterialError reports a material absent from the factor
// table. Name is the normalized form, so callers echo what the lookup
// actually used rather than the raw label.
type UnknownMaterialError struct {
	Name string
}

func (e *UnknownMaterialError) Error() string {
	return fmt.Sprintf("unknown material: %s", e.Name)
}

// Normalize canonicalizes a free-form material label: lower-case,
// trimmed, spaces and hyphens collapsed to underscores, then resolved
// through the alias table. Unknown labels pass through unchanged, so
// normalizing an already-canonical name is a no-op.
func Normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	if canonical, ok := aliases[s]; ok {
		return canonical
	}
	return s
}

// Table is the read-only CO2 factor lookup. It is loaded once at
// startup and never mutated during request handling.
type Table struct {
	factors map[string]float64
}

// NewTable builds a table from explicit factors. Mostly used by tests.
func NewTable(factors map[string]float64) *Table {
	m := make(map[string]float64, len(factors))
	for k, v := range factors {
		m[k] = v
	}
	return &Table{factors: m}
}

// LoadTable reads the factor table from a YAML file, or returns the
// built-in defaults when path is empty.
func LoadTable(path string) (*Table, error) {
	if path == "" {
		return NewTable(defaultFactors), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read factor file %s: %w", path, err)
	}

	var factors map[string]float64
	if err := yaml.Unmarshal(data, &factors); err != nil {
		return nil, fmt.Errorf("failed to parse factor file %s: %w", path, err)
	}
	if len(factors) == 0 {
		return nil, fmt.Errorf("factor file %s defines no materials", path)
	}
	return NewTable(factors), nil
}

// Factor returns the CO2 factor for an already-normalized material,
// or an UnknownMaterialError naming it.
func (t *Table) Factor(normalized string) (float64, error) {
	f, ok := t.factors[normalized]
	if !ok {
		return 0, &UnknownMaterialError{Name: normalized}
	}
	return f, nil
}
