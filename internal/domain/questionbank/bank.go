// Package questionbank is the immutable questionnaire catalogue.
//
// The bank is parsed once from YAML (embedded by default) into a lookup
// table keyed by category id and question id. Nothing mutates it after
// Load returns, so one *Bank is shared by every request.
package questionbank

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/wellcheck/wellcheck/internal/domain/risk"
	"github.com/wellcheck/wellcheck/pkg/bilingual"
)

//go:embed data/*.yaml
var embedded embed.FS

// Bank is the catalogue of every category.
type Bank struct {
	categories map[string]*Category
	order      []string
}

// Category returns the category with the given id.
func (b *Bank) Category(id string) (*Category, bool) {
	c, ok := b.categories[id]
	return c, ok
}

// Categories returns every category in load order.
func (b *Bank) Categories() []*Category {
	out := make([]*Category, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.categories[id])
	}
	return out
}

var (
	defaultOnce sync.Once
	defaultBank *Bank
	defaultErr  error
)

// Default returns the embedded bank, parsed on first use.
func Default() (*Bank, error) {
	defaultOnce.Do(func() {
		sub, err := fs.Sub(embedded, "data")
		if err != nil {
			defaultErr = err
			return
		}
		defaultBank, defaultErr = Load(sub)
	})
	return defaultBank, defaultErr
}

// LoadDir reads every *.yaml file in dir.
func LoadDir(dir string) (*Bank, error) {
	return Load(os.DirFS(dir))
}

// Load reads every *.yaml file at the root of fsys, sorted by name.
func Load(fsys fs.FS) (*Bank, error) {
	names, err := fs.Glob(fsys, "*.yaml")
	if err != nil {
		return nil, fmt.Errorf("list question bank files: %w", err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("question bank is empty")
	}
	sort.Strings(names)

	b := &Bank{categories: make(map[string]*Category)}
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		c, err := parseCategory(data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path.Base(name), err)
		}
		if _, dup := b.categories[c.ID]; dup {
			return nil, fmt.Errorf("duplicate category %q in %s", c.ID, name)
		}
		b.categories[c.ID] = c
		b.order = append(b.order, c.ID)
	}
	return b, nil
}

type categoryDoc struct {
	ID              string                                       `yaml:"id"`
	Title           bilingual.Text                               `yaml:"title"`
	Description     bilingual.Text                               `yaml:"description"`
	Thresholds      *risk.Thresholds                             `yaml:"thresholds"`
	Recommendations map[risk.Level]bilingual.Bilingual[[]string] `yaml:"recommendations"`
	Questions       []questionDoc                                `yaml:"questions"`
}

type questionDoc struct {
	ID       string         `yaml:"id"`
	Type     Kind           `yaml:"type"`
	Prompt   bilingual.Text `yaml:"prompt"`
	Required bool           `yaml:"required"`
	Options  []Option       `yaml:"options"`
	Min      *float64       `yaml:"min"`
	Max      *float64       `yaml:"max"`
	Step     *float64       `yaml:"step"`
	Buckets  []Bucket       `yaml:"buckets"`
}

func parseCategory(data []byte) (*Category, error) {
	var doc categoryDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	doc.ID = strings.TrimSpace(doc.ID)
	if doc.ID == "" {
		return nil, fmt.Errorf("category id is required")
	}
	if doc.Title.IsEmpty() {
		return nil, fmt.Errorf("category %s: title is required", doc.ID)
	}
	if len(doc.Questions) == 0 {
		return nil, fmt.Errorf("category %s: no questions", doc.ID)
	}

	c := &Category{
		ID:              doc.ID,
		Title:           doc.Title,
		Description:     doc.Description,
		Thresholds:      risk.DefaultThresholds,
		Recommendations: doc.Recommendations,
		byID:            make(map[string]*Question, len(doc.Questions)),
	}
	if doc.Thresholds != nil {
		if err := doc.Thresholds.Validate(); err != nil {
			return nil, fmt.Errorf("category %s: %w", doc.ID, err)
		}
		c.Thresholds = *doc.Thresholds
	}
	for level := range doc.Recommendations {
		if !level.Valid() {
			return nil, fmt.Errorf("category %s: recommendations for unknown level %q", doc.ID, level)
		}
	}

	for _, qd := range doc.Questions {
		q := &Question{
			ID:       strings.TrimSpace(qd.ID),
			Kind:     qd.Type,
			Prompt:   qd.Prompt,
			Required: qd.Required,
			Options:  qd.Options,
			Min:      qd.Min,
			Max:      qd.Max,
			Step:     qd.Step,
			Buckets:  qd.Buckets,
		}
		if q.ID == "" {
			return nil, fmt.Errorf("category %s: question without id", doc.ID)
		}
		if _, dup := c.byID[q.ID]; dup {
			return nil, fmt.Errorf("category %s: duplicate question %q", doc.ID, q.ID)
		}
		rule, err := newRule(q)
		if err != nil {
			return nil, err
		}
		q.rule = rule
		c.Questions = append(c.Questions, q)
		c.byID[q.ID] = q
		c.maxScore += rule.MaxScore()
	}
	return c, nil
}
