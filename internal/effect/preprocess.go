// SPDX-License-Identifier: MIT
package effect

import (
	"fmt"
	"regexp"
)

// pragmaPattern matches `#pragma shaderfilter set <identifier> <value>` lines.
var pragmaPattern = regexp.MustCompile(`(?m)^\s*#pragma\s+shaderfilter\s+set\s+(?P<identifier>\w+)\s+(?P<value>[^\s].*?)\s*$`)

// Directives holds the values set by pragmas, by identifier. A later pragma
// for the same identifier wins.
type Directives map[string]string

// Preprocess strips every shaderfilter pragma from source and returns the
// remaining source together with the collected directives.
func Preprocess(source string) (string, Directives) {
	directives := make(Directives)
	idIdx := pragmaPattern.SubexpIndex("identifier")
	valIdx := pragmaPattern.SubexpIndex("value")

	for _, m := range pragmaPattern.FindAllStringSubmatch(source, -1) {
		directives[m[idIdx]] = m[valIdx]
	}
	return pragmaPattern.ReplaceAllString(source, ""), directives
}

// Lookup returns the raw value set for identifier.
func (d Directives) Lookup(identifier string) (string, bool) {
	v, ok := d[identifier]
	return v, ok
}

// lookupParsed parses the directive for identifier with c. The boolean
// reports whether the directive exists at all.
func lookupParsed[T any](d Directives, identifier string, c codec[T]) (T, bool, error) {
	var zero T
	raw, ok := d.Lookup(identifier)
	if !ok {
		return zero, false, nil
	}
	v, err := c.parse(raw)
	if err != nil {
		return zero, true, fmt.Errorf("could not parse property `%s` of type `%s`", identifier, c.typeName)
	}
	return v, true, nil
}
