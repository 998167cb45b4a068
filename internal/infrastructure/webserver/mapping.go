package webserver

import (
	"fmt"
	"strings"
)

type mappingKind uint8

const (
	mappingExact mappingKind = iota
	mappingPrefix
	mappingExtension
	mappingDefault
)

// mapping is a parsed url pattern: "/exact", "/prefix/*", "*.ext" or "/".
type mapping struct {
	kind    mappingKind
	value   string
	pattern string
}

func parseMapping(pattern string) (mapping, error) {
	switch {
	case pattern == "" || pattern == "/":
		return mapping{kind: mappingDefault, pattern: "/"}, nil
	case pattern == "/*":
		return mapping{kind: mappingPrefix, value: "", pattern: pattern}, nil
	case strings.HasPrefix(pattern, "*."):
		ext := pattern[1:]
		if strings.ContainsAny(ext, "/*") || len(ext) < 2 {
			break
		}
		return mapping{kind: mappingExtension, value: ext, pattern: pattern}, nil
	case strings.HasPrefix(pattern, "/") && strings.HasSuffix(pattern, "/*"):
		prefix := strings.TrimSuffix(pattern, "/*")
		if strings.Contains(prefix, "*") {
			break
		}
		return mapping{kind: mappingPrefix, value: prefix, pattern: pattern}, nil
	case strings.HasPrefix(pattern, "/") && !strings.Contains(pattern, "*"):
		return mapping{kind: mappingExact, value: pattern, pattern: pattern}, nil
	}
	return mapping{}, fmt.Errorf("invalid url pattern '%v'", pattern)
}

func (m mapping) matches(path string) bool {
	switch m.kind {
	case mappingExact:
		return path == m.value
	case mappingPrefix:
		return m.value == "" || path == m.value || strings.HasPrefix(path, m.value+"/")
	case mappingExtension:
		segment := path[strings.LastIndex(path, "/")+1:]
		return strings.HasSuffix(segment, m.value)
	}
	return true
}

// split returns the servlet path and the path info of a matching path.
func (m mapping) split(path string) (string, string) {
	if m.kind == mappingPrefix {
		return m.value, path[len(m.value):]
	}
	return path, ""
}

// better indicates if m takes precedence over other for the same path.
func (m mapping) better(other mapping) bool {
	if m.kind != other.kind {
		return m.kind < other.kind
	}
	return len(m.value) > len(other.value)
}
