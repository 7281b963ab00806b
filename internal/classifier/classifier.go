package classifier

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Package classifier decides whether a catalog title is worth a detail
// lookup. The rule set is external data so the denylist can be tuned
// without touching the engine.

// Rule kinds supported by the rules file.
const (
	KindSubstring = "substring"
	KindSuffix    = "suffix"
	KindRegex     = "regex"
)

// Rule is one denylist entry. A title matching any rule is dropped.
type Rule struct {
	Kind    string `yaml:"kind" json:"kind"`
	Pattern string `yaml:"pattern" json:"pattern"`
}

type rulesFile struct {
	Rules []Rule `yaml:"rules" json:"rules"`
}

// Classifier applies an ordered denylist of title rules.
type Classifier struct {
	rules    []Rule
	compiled []*regexp.Regexp // parallel to rules; nil for non-regex kinds
}

// New compiles the given rules into a Classifier.
func New(rules []Rule) (*Classifier, error) {
	if len(rules) == 0 {
		return nil, errors.New("classifier needs at least one rule")
	}

	c := &Classifier{
		rules:    make([]Rule, 0, len(rules)),
		compiled: make([]*regexp.Regexp, 0, len(rules)),
	}
	for i, r := range rules {
		r.Kind = strings.ToLower(strings.TrimSpace(r.Kind))
		if r.Kind == "" {
			r.Kind = KindSubstring
		}
		if r.Pattern == "" {
			return nil, fmt.Errorf("rule[%d]: pattern is required", i)
		}

		var re *regexp.Regexp
		switch r.Kind {
		case KindSubstring, KindSuffix:
		case KindRegex:
			var err error
			re, err = regexp.Compile(r.Pattern)
			if err != nil {
				return nil, fmt.Errorf("rule[%d]: compile %q: %w", i, r.Pattern, err)
			}
		default:
			return nil, fmt.Errorf("rule[%d]: unsupported kind %q", i, r.Kind)
		}

		c.rules = append(c.rules, r)
		c.compiled = append(c.compiled, re)
	}
	return c, nil
}

// Load reads the rules file (YAML) and compiles it.
func Load(path string) (*Classifier, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("classifier rules file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open classifier rules file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read classifier rules file: %w", err)
	}

	var rf rulesFile
	if err := yaml.Unmarshal(raw, &rf); err != nil {
		return nil, fmt.Errorf("decode classifier rules: %w", err)
	}
	if len(rf.Rules) == 0 {
		return nil, errors.New("classifier rules file contains no rules")
	}

	return New(rf.Rules)
}

// Drop reports whether the title is noise that should never reach the
// detail endpoint. Pure and deterministic.
func (c *Classifier) Drop(title string) bool {
	if c == nil {
		return false
	}
	for i, r := range c.rules {
		switch r.Kind {
		case KindSubstring:
			if strings.Contains(title, r.Pattern) {
				return true
			}
		case KindSuffix:
			if strings.HasSuffix(title, r.Pattern) {
				return true
			}
		case KindRegex:
			if c.compiled[i].MatchString(title) {
				return true
			}
		}
	}
	return false
}

// Len returns the number of loaded rules.
func (c *Classifier) Len() int {
	if c == nil {
		return 0
	}
	return len(c.rules)
}
