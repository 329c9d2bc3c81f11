package index

import "sort"

// QueryResult holds the occurrences of one token across the index.
type QueryResult struct {
	Token       string         `json:"token"`
	Total       int            `json:"totalOccurrences"`
	Occurrences map[string]int `json:"occurrences"` // key: absolute path
}

func newQueryResult(token string, occurrences map[string]int) QueryResult {
	total := 0
	for _, count := range occurrences {
		total += count
	}
	return QueryResult{Token: token, Total: total, Occurrences: occurrences}
}

// Paths returns the matching paths sorted by descending count, then by path.
func (r QueryResult) Paths() []string {
	paths := make([]string, 0, len(r.Occurrences))
	for path := range r.Occurrences {
		paths = append(paths, path)
	}
	sort.Slice(paths, func(i, j int) bool {
		ci, cj := r.Occurrences[paths[i]], r.Occurrences[paths[j]]
		if ci != cj {
			return ci > cj
		}
		return paths[i] < paths[j]
	})
	return paths
}
