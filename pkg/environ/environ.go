// Package environ provides the environment record threaded through
// configuration resolution and handed to every spawned subprocess, so that
// variables declared by a configuration document never leak into the
// process environment of contain itself.
package environ

import (
	"fmt"
	"os"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/syntax"
)

type Environment struct {
	vars []string
}

// New returns an environment holding a copy of the given KEY=VALUE pairs.
func New(pairs []string) *Environment {
	env := &Environment{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			continue
		}
		env.Set(key, value)
	}
	return env
}

// FromOS returns an environment seeded with the current process environment.
func FromOS() *Environment {
	return New(os.Environ())
}

func (e *Environment) Lookup(key string) (string, bool) {
	prefix := key + "="
	for _, pair := range e.vars {
		if strings.HasPrefix(pair, prefix) {
			return pair[len(prefix):], true
		}
	}
	return "", false
}

func (e *Environment) Get(key string) string {
	value, _ := e.Lookup(key)
	return value
}

// Set replaces the value of key, or appends it if unknown.
func (e *Environment) Set(key, value string) {
	prefix := key + "="
	for i, pair := range e.vars {
		if strings.HasPrefix(pair, prefix) {
			e.vars[i] = prefix + value
			return
		}
	}
	e.vars = append(e.vars, prefix+value)
}

// Environ returns the KEY=VALUE pairs in insertion order.
func (e *Environment) Environ() []string {
	return append([]string{}, e.vars...)
}

func (e *Environment) Clone() *Environment {
	return &Environment{vars: e.Environ()}
}

// Expand substitutes $VAR, ${VAR} and the usual ${VAR:-default} forms
// against this environment. Unset variables expand to the empty string.
// Backslashes, backquotes and $( or $[ are kept as literal text.
func (e *Environment) Expand(value string) (string, error) {
	if !strings.Contains(value, "$") {
		return value, nil
	}

	word, err := syntax.NewParser().Document(strings.NewReader(escapeNonReferences(value)))
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", value, err)
	}

	cfg := &expand.Config{Env: expand.ListEnviron(e.vars...)}
	expanded, err := expand.Document(cfg, word)
	if err != nil {
		return "", fmt.Errorf("expand %q: %w", value, err)
	}

	return expanded, nil
}

// escapeNonReferences escapes everything a here-document would interpret
// besides parameter references.
func escapeNonReferences(value string) string {
	var b strings.Builder
	for i := 0; i < len(value); i++ {
		switch c := value[i]; c {
		case '\\', '`':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '$':
			if i+1 < len(value) && (value[i+1] == '(' || value[i+1] == '[') {
				b.WriteByte('\\')
			}
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
