// Package urls builds candidate agency and investor-relations URLs for a
// company name. It performs no network I/O.
package urls

import (
	_ "embed"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/rating-finder/internal/alias"
	"github.com/sells-group/rating-finder/internal/model"
)

//go:embed known.yaml
var knownYAML []byte

// Entity is a known issuer with direct agency URLs.
type Entity struct {
	Key      string                  `yaml:"key"`
	Match    []string                `yaml:"match"`
	IRDomain string                  `yaml:"ir_domain"`
	URLs     map[model.Agency]string `yaml:"urls"`
}

// Table holds the known-entity and IR-domain lookups.
type Table struct {
	Entities  []Entity          `yaml:"entities"`
	IRDomains map[string]string `yaml:"ir_domains"`
}

// LoadTable parses a lookup table.
func LoadTable(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, eris.Wrap(err, "urls: parse table")
	}
	for i, e := range t.Entities {
		for j, m := range e.Match {
			t.Entities[i].Match[j] = alias.Key(m)
		}
		for a := range e.URLs {
			if !validAgency(a) {
				return nil, eris.Errorf("urls: entity %s: unknown agency %q", e.Key, a)
			}
		}
	}
	return &t, nil
}

// DefaultTable returns the embedded table.
func DefaultTable() *Table {
	t, err := LoadTable(knownYAML)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup finds the known entity whose match keys overlap name.
func (t *Table) Lookup(name string) (*Entity, bool) {
	key := alias.Key(name)
	if len(key) < 3 {
		return nil, false
	}
	for i := range t.Entities {
		for _, m := range t.Entities[i].Match {
			if containsWord(key, m) || (len(key) >= 4 && containsWord(m, key)) {
				return &t.Entities[i], true
			}
		}
	}
	return nil, false
}

// containsWord reports whether needle occurs in hay on word boundaries.
func containsWord(hay, needle string) bool {
	return strings.Contains(" "+hay+" ", " "+needle+" ")
}

func validAgency(a model.Agency) bool {
	for _, v := range model.AllAgencies() {
		if a == v {
			return true
		}
	}
	return false
}
