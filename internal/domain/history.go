package domain

// History is the ordered list of URLs visited by one fetch call,
// starting with the original URL. It is the single source of truth for
// both the loop check and the attempt ceiling: duplicate detection runs
// before append, and its length is what the ceiling is measured
// against. A history is owned by exactly one in-flight call.
type History []string

// Contains reports whether the URL was already visited.
func (h History) Contains(url string) bool {
	for _, visited := range h {
		if visited == url {
			return true
		}
	}
	return false
}

// First returns the original URL of the chain, or "" for an empty
// history.
func (h History) First() string {
	if len(h) == 0 {
		return ""
	}
	return h[0]
}
