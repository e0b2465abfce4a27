package report

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

//go:embed layout.yml
var defaultLayout []byte

type Margins struct {
	Left  float64 `yaml:"left"`
	Top   float64 `yaml:"top"`
	Right float64 `yaml:"right"`
}

type FieldRef struct {
	Label string `yaml:"label"`
	Key   string `yaml:"key"`
}

// Section renders exactly one of: a list of fields, the checklist, or images.
type Section struct {
	Heading   string     `yaml:"heading"`
	Fields    []FieldRef `yaml:"fields"`
	Checklist bool       `yaml:"checklist"`
	Images    []string   `yaml:"images"`
}

type Layout struct {
	Title    string    `yaml:"title"`
	Subtitle string    `yaml:"subtitle"`
	Margins  Margins   `yaml:"margins"`
	Sections []Section `yaml:"sections"`
}

func (l *Layout) Validate() error {
	if l.Title == "" {
		return errors.New("layout has no title")
	}
	if len(l.Sections) == 0 {
		return errors.New("layout has no sections")
	}
	for i, s := range l.Sections {
		kinds := 0
		if len(s.Fields) > 0 {
			kinds++
		}
		if s.Checklist {
			kinds++
		}
		if len(s.Images) > 0 {
			kinds++
		}
		if kinds != 1 {
			return fmt.Errorf("section %d (%q) must define exactly one of fields, checklist or images", i, s.Heading)
		}
		for _, f := range s.Fields {
			if f.Key == "" {
				return fmt.Errorf("section %d (%q) has a field without key", i, s.Heading)
			}
		}
	}
	return nil
}

// ParseLayout decodes a YAML layout, rejecting unknown keys.
func ParseLayout(raw []byte) (*Layout, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var l Layout
	if err := dec.Decode(&l); err != nil {
		return nil, fmt.Errorf("decode layout: %w", err)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return &l, nil
}

// LoadLayout reads the layout at path, or the embedded default when path is empty.
func LoadLayout(path string) (*Layout, error) {
	if path == "" {
		return ParseLayout(defaultLayout)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layout %s: %w", path, err)
	}
	return ParseLayout(raw)
}

var placeholder = regexp.MustCompile(`\{\{\s*([a-z0-9_]+)\s*\}\}`)

// Expand substitutes {{key}} placeholders from the merge context. Unknown keys
// become empty strings.
func Expand(s string, mc MergeContext) string {
	return placeholder.ReplaceAllStringFunc(s, func(m string) string {
		key := placeholder.FindStringSubmatch(m)[1]
		v, _ := mc.Value(key)
		return v
	})
}
