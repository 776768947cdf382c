package broadcast

import "strings"

// HomePage is the canonical identifier the root path resolves to.
const HomePage = "index.html"

// PageName resolves a context's resource path to its page identifier. Pure
// and total: the root path maps to the home identifier, a path without a
// type suffix gets ".html" appended, and anything else is used as given.
func PageName(path string) string {
	trimmed := strings.TrimSuffix(path, "/")
	name := trimmed
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		name = trimmed[i+1:]
	}

	if name == "" {
		return HomePage
	}
	if !strings.Contains(name, ".") {
		return name + ".html"
	}
	return name
}
