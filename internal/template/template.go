// Package template provides the built-in assessment templates.
package template

import (
	"embed"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kalambet/talentflow/internal/document"
)

//go:embed templates/*.yaml
var templateFS embed.FS

// ErrUnknownTemplate is returned for names without a bundled template.
var ErrUnknownTemplate = errors.New("unknown template")

// Template is a named starting point for an assessment.
type Template struct {
	Name  string
	Title string
	Tree  document.Tree
}

// Names lists the bundled templates in alphabetical order.
func Names() []string {
	entries, err := templateFS.ReadDir("templates")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// Get returns the template as bundled, with its placeholder ids.
func Get(name string) (Template, error) {
	data, err := templateFS.ReadFile(path.Join("templates", name+".yaml"))
	if err != nil {
		return Template{}, fmt.Errorf("%q: %w", name, ErrUnknownTemplate)
	}
	var raw struct {
		Title    string              `yaml:"title"`
		Sections []*document.Section `yaml:"sections"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Template{}, fmt.Errorf("parsing template %s: %w", name, err)
	}
	return Template{Name: name, Title: raw.Title, Tree: document.FromSections(raw.Sections)}, nil
}

// Instantiate returns the template tree with every section and question id
// replaced by one from newID. Condition references follow their questions.
func Instantiate(name string, newID func() string) (document.Tree, error) {
	tpl, err := Get(name)
	if err != nil {
		return document.Tree{}, err
	}

	ids := map[string]string{}
	sections := tpl.Tree.Sections()
	for _, s := range sections {
		for _, q := range s.Questions {
			ids[q.ID] = newID()
		}
	}

	out := make([]*document.Section, 0, len(sections))
	for _, s := range sections {
		ns := *s
		ns.ID = newID()
		ns.Questions = make([]*document.Question, 0, len(s.Questions))
		for _, q := range s.Questions {
			nq := *q
			nq.ID = ids[q.ID]
			nq.Conditions = make([]document.Condition, len(q.Conditions))
			for i, c := range q.Conditions {
				if mapped, ok := ids[c.DependsOn]; ok {
					c.DependsOn = mapped
				}
				nq.Conditions[i] = c
			}
			ns.Questions = append(ns.Questions, &nq)
		}
		out = append(out, &ns)
	}
	return document.NewTree(out...), nil
}
