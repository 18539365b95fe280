package category

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

const DefaultCategory = "general"

//go:embed categories.yaml
var defaultTableFS embed.FS

type yamlTable struct {
	Version int        `yaml:"version"`
	Default string     `yaml:"default"`
	Rules   []yamlRule `yaml:"rules"`
}

type yamlRule struct {
	Segment  string `yaml:"segment"`
	Category string `yaml:"category"`
}

type Rule struct {
	Segment  string
	Category string
}

// Table maps document paths to categories. The first rule whose segment
// matches a directory of the path wins.
type Table struct {
	rules    []Rule
	fallback string
}

func NewTable(rules []Rule, fallback string) *Table {
	if strings.TrimSpace(fallback) == "" {
		fallback = DefaultCategory
	}
	out := &Table{fallback: fallback}
	for _, r := range rules {
		seg := strings.ToLower(strings.TrimSpace(r.Segment))
		cat := strings.TrimSpace(r.Category)
		if seg == "" || cat == "" {
			continue
		}
		out.rules = append(out.rules, Rule{Segment: seg, Category: cat})
	}
	return out
}

// Load reads the table at filePath, or the embedded default when filePath is empty.
func Load(filePath string) (*Table, error) {
	var (
		data []byte
		err  error
	)
	if p := strings.TrimSpace(filePath); p != "" {
		data, err = os.ReadFile(p)
	} else {
		data, err = defaultTableFS.ReadFile("categories.yaml")
	}
	if err != nil {
		return nil, fmt.Errorf("read category table: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Table, error) {
	var spec yamlTable
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse category table: %w", err)
	}
	if len(spec.Rules) == 0 && strings.TrimSpace(spec.Default) == "" {
		return nil, errors.New("category table is empty")
	}
	seen := map[string]bool{}
	rules := make([]Rule, 0, len(spec.Rules))
	for i, r := range spec.Rules {
		seg := strings.ToLower(strings.TrimSpace(r.Segment))
		if seg == "" || strings.TrimSpace(r.Category) == "" {
			return nil, fmt.Errorf("category rule %d: segment and category are required", i)
		}
		if seen[seg] {
			return nil, fmt.Errorf("duplicate category segment: %s", seg)
		}
		seen[seg] = true
		rules = append(rules, Rule{Segment: seg, Category: r.Category})
	}
	return NewTable(rules, spec.Default), nil
}

func (t *Table) Default() string {
	if t == nil {
		return DefaultCategory
	}
	return t.fallback
}

func (t *Table) Resolve(docPath string) string {
	if t == nil {
		return DefaultCategory
	}
	clean := path.Clean("/" + strings.ReplaceAll(strings.TrimSpace(docPath), "\\", "/"))
	dir := strings.Trim(path.Dir(clean), "/")
	if dir == "" {
		return t.fallback
	}
	segs := strings.Split(strings.ToLower(dir), "/")
	for _, r := range t.rules {
		for _, s := range segs {
			if s == r.Segment {
				return r.Category
			}
		}
	}
	return t.fallback
}
