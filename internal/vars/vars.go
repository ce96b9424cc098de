// Package vars implements the layered variable scope and the textual
// substitution of ${NAME} and $NAME placeholders in job commands.
package vars

import "regexp"

// placeholder matches both supported syntaxes in one pattern so that a
// single replacement pass sees each position exactly once. Inserted values
// are never re-substituted.
var placeholder = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// Merge layers variable maps left to right: later layers win on key
// collision. The inputs are never mutated.
func Merge(layers ...map[string]string) map[string]string {
	merged := map[string]string{}
	for _, layer := range layers {
		for k, v := range layer {
			merged[k] = v
		}
	}
	return merged
}

// Expand substitutes ${NAME} and $NAME placeholders in text using the given
// variables. Placeholders with no matching variable are left verbatim so a
// later pass, or the shell itself, can still resolve them. Substitution is
// single-pass.
func Expand(text string, variables map[string]string) string {
	return placeholder.ReplaceAllStringFunc(text, func(match string) string {
		name := match[1:]
		if name[0] == '{' {
			name = name[1 : len(name)-1]
		}
		if value, ok := variables[name]; ok {
			return value
		}
		return match
	})
}

// ExpandAll applies Expand to every element of a command list.
func ExpandAll(commands []string, variables map[string]string) []string {
	out := make([]string, len(commands))
	for i, cmd := range commands {
		out[i] = Expand(cmd, variables)
	}
	return out
}
