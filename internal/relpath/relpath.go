// Package relpath implements the relative, normalized, POSIX-internal path
// type exchanged between the host and every extension guest (spec §4.H).
//
// A RelPath is guaranteed relative and normalized: no leading "./", no
// trailing separator, no empty/"."/".." components, and never escapes its
// own root. Internally paths are always stored '/'-delimited; callers pick
// a Style only when displaying or re-parsing a path coming from outside the
// runtime.
package relpath

import (
	"fmt"
	"strings"
)

// Style selects the separator convention used at a host/guest boundary.
// Wire and storage representations always use Posix; Style only matters
// for Display and for recognizing "./" vs ".\" prefixes on Parse.
type Style int

const (
	Posix Style = iota
	Windows
)

// RelPath is a relative, normalized, '/'-delimited path. The zero value is
// the empty path (self-referential root).
type RelPath struct {
	posix string
}

// Empty is the canonical empty RelPath.
var Empty = RelPath{}

// Parse normalizes s under the given style and returns a RelPath, or an
// error if s is absolute or its ".." components would escape the root.
func Parse(s string, style Style) (RelPath, error) {
	prefixes := []string{"./"}
	suffixes := []byte{'/'}
	if style == Windows {
		prefixes = append(prefixes, `.\`)
		suffixes = append(suffixes, '\\')
	}

	for hasAnyPrefix(s, prefixes) {
		s = s[len(prefixes[0]):]
		// re-check all prefixes, in case they interleave ("././a").
		for hasAnyPrefix(s, prefixes) {
			matched := false
			for _, p := range prefixes {
				if strings.HasPrefix(s, p) {
					s = s[len(p):]
					matched = true
					break
				}
			}
			if !matched {
				break
			}
		}
	}
	for len(s) > 0 && hasAnySuffix(s, suffixes) {
		s = s[:len(s)-1]
	}

	if isAbsolute(s, style) {
		return RelPath{}, fmt.Errorf("relpath: absolute path not allowed: %q", s)
	}

	if style == Windows && strings.ContainsRune(s, '\\') {
		s = strings.ReplaceAll(s, `\`, "/")
	}

	var out []string
	for _, part := range strings.Split(s, "/") {
		switch part {
		case "", ".":
			continue
		case "..":
			if len(out) == 0 {
				return RelPath{}, fmt.Errorf("relpath: path escapes root: %q", s)
			}
			out = out[:len(out)-1]
		default:
			out = append(out, part)
		}
	}

	return RelPath{posix: strings.Join(out, "/")}, nil
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func hasAnySuffix(s string, suffixes []byte) bool {
	if len(s) == 0 {
		return false
	}
	last := s[len(s)-1]
	for _, suf := range suffixes {
		if last == suf {
			return true
		}
	}
	return false
}

func isAbsolute(s string, style Style) bool {
	if strings.HasPrefix(s, "/") {
		return true
	}
	if style == Windows {
		// "C:\" or "C:/" or a leading backslash.
		if strings.HasPrefix(s, `\`) {
			return true
		}
		if len(s) >= 2 && s[1] == ':' {
			return true
		}
	}
	return false
}

// IsEmpty reports whether the path refers to its own root.
func (p RelPath) IsEmpty() bool { return p.posix == "" }

// String returns the internal POSIX-style representation. Not for display
// to a user expecting Windows separators; use Display for that.
func (p RelPath) String() string { return p.posix }

// Display renders the path using the given separator convention.
func (p RelPath) Display(style Style) string {
	if style == Windows && strings.Contains(p.posix, "/") {
		return strings.ReplaceAll(p.posix, "/", `\`)
	}
	return p.posix
}

// Components splits the path into its '/'-delimited parts. Empty for the
// root path.
func (p RelPath) Components() []string {
	if p.posix == "" {
		return nil
	}
	return strings.Split(p.posix, "/")
}

// Join concatenates two relative paths with a single separator.
func Join(a, b RelPath) RelPath {
	switch {
	case a.posix == "":
		return b
	case b.posix == "":
		return a
	default:
		return RelPath{posix: a.posix + "/" + b.posix}
	}
}

// Parent returns the path's parent and true, or the zero value and false if
// the path is already the root.
func (p RelPath) Parent() (RelPath, bool) {
	comps := p.Components()
	if len(comps) == 0 {
		return RelPath{}, false
	}
	return RelPath{posix: strings.Join(comps[:len(comps)-1], "/")}, true
}
