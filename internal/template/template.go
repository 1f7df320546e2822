// Package template compiles prompt templates with {{variable}} substitution.
// Dotted paths ({{user.name}}) index nested maps; section tokens
// ({{#block}}...{{/block}}) are delimiters, not variables, and are never
// counted as required placeholders.
package template

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var tokenRegex = regexp.MustCompile(`\{\{([#/]?)([\w.]+)\}\}`)

// Placeholders extracts the variable names a template requires.
// Dotted paths report their root key, since supplying the root satisfies
// the whole path. Section open/close tokens are excluded. The result is
// sorted and de-duplicated.
func Placeholders(text string) []string {
	seen := make(map[string]struct{})
	for _, match := range tokenRegex.FindAllStringSubmatch(text, -1) {
		if match[1] != "" {
			continue // section token
		}
		root := match[2]
		if idx := strings.IndexByte(root, '.'); idx >= 0 {
			root = root[:idx]
		}
		seen[root] = struct{}{}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Compile replaces {{variable}} tokens with values from vars. Dotted paths
// traverse nested map[string]any values. Tokens with no resolvable value
// are left verbatim.
func Compile(text string, vars map[string]any) string {
	return tokenRegex.ReplaceAllStringFunc(text, func(match string) string {
		parts := tokenRegex.FindStringSubmatch(match)
		if parts[1] != "" {
			return match // section tokens pass through untouched
		}
		value, ok := resolve(parts[2], vars)
		if !ok {
			return match
		}
		return stringValue(value)
	})
}

// CompileStrict validates that vars covers every required placeholder
// before substituting. On any missing variable it fails with a
// *MissingVariablesError listing all absent keys and performs no
// substitution at all.
func CompileStrict(text string, vars map[string]any) (string, error) {
	var missing []string
	for _, name := range Placeholders(text) {
		if _, ok := vars[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return "", &MissingVariablesError{Missing: missing}
	}
	return Compile(text, vars), nil
}

// resolve looks up a possibly-dotted path in vars.
func resolve(path string, vars map[string]any) (any, bool) {
	segments := strings.Split(path, ".")

	current, ok := vars[segments[0]]
	if !ok {
		return nil, false
	}
	for _, segment := range segments[1:] {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = node[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func stringValue(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", value)
}

// MissingVariablesError reports which required template variables were
// absent from a strict compile call.
type MissingVariablesError struct {
	Missing []string
}

func (e *MissingVariablesError) Error() string {
	return "missing template variables: " + strings.Join(e.Missing, ", ")
}
