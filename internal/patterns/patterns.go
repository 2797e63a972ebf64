// Package patterns holds the field matchers used to pull invoice fields out
// of decoded document text. Patterns are declared as data (patterns.json) and
// compiled once; a bad pattern file is a configuration error.
package patterns

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/invoice-scanner/constants"
	"github.com/joseph-ayodele/invoice-scanner/internal/common"
)

//go:embed patterns.json
var defaultPatterns []byte

//go:embed schema.json
var patternSchema []byte

// Capture binds one regexp submatch to an invoice field.
type Capture struct {
	Field string `json:"field"`
	Group int    `json:"group"`
}

// Pattern is a named, stateless matcher over raw text.
type Pattern struct {
	Name     string    `json:"name"`
	Expr     string    `json:"expr"`
	Captures []Capture `json:"captures"`

	re *regexp.Regexp
}

// Regexp returns the compiled expression.
func (p *Pattern) Regexp() *regexp.Regexp { return p.re }

// Set is an ordered, immutable collection of compiled patterns.
type Set struct {
	patterns []*Pattern
}

type file struct {
	Patterns []*Pattern `json:"patterns"`
}

// Patterns returns the patterns in declaration order.
func (s *Set) Patterns() []*Pattern {
	out := make([]*Pattern, len(s.patterns))
	copy(out, s.patterns)
	return out
}

// Load validates data against the pattern schema and compiles every expression.
// Every invoice field must be captured by exactly one pattern.
func Load(data []byte) (*Set, error) {
	if err := validateShape(data); err != nil {
		return nil, common.ConfigError("pattern file rejected", err)
	}

	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, common.ConfigError("decode pattern file", err)
	}

	seen := map[string]string{}
	for _, p := range f.Patterns {
		re, err := regexp.Compile(p.Expr)
		if err != nil {
			return nil, common.ConfigError(fmt.Sprintf("pattern %q does not compile", p.Name), err)
		}
		for _, c := range p.Captures {
			if c.Group > re.NumSubexp() {
				return nil, common.ConfigError(fmt.Sprintf("pattern %q: group %d out of range (%d groups)", p.Name, c.Group, re.NumSubexp()), nil)
			}
			if prev, dup := seen[c.Field]; dup {
				return nil, common.ConfigError(fmt.Sprintf("field %q captured by both %q and %q", c.Field, prev, p.Name), nil)
			}
			seen[c.Field] = p.Name
		}
		p.re = re
	}
	for _, field := range constants.Columns {
		if _, ok := seen[field]; !ok {
			return nil, common.ConfigError(fmt.Sprintf("no pattern captures field %q", field), nil)
		}
	}
	return &Set{patterns: f.Patterns}, nil
}

// LoadFile reads and loads a pattern file from disk.
func LoadFile(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, common.ConfigError("read pattern file", err)
	}
	return Load(data)
}

// MustLoad is Load that panics on error.
func MustLoad(data []byte) *Set {
	s, err := Load(data)
	if err != nil {
		panic(err)
	}
	return s
}

var (
	defaultOnce sync.Once
	defaultSet  *Set
)

// Default returns the embedded pattern set, compiled on first use.
func Default() *Set {
	defaultOnce.Do(func() {
		defaultSet = MustLoad(defaultPatterns)
	})
	return defaultSet
}

func validateShape(data []byte) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("patterns.schema.json", bytes.NewReader(patternSchema)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("patterns.schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal patterns: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("patterns do not match schema: %w", err)
	}
	return nil
}
