package routes

import "sort"

// Conflict lists the collection positions that share one name or path.
type Conflict struct {
	Key     string `json:"key"`
	Indexes []int  `json:"indexes"`
}

// DuplicateReport describes ambiguous entries in a route collection. The
// host's own lookup policy decides which entry wins; nothing here fixes it.
type DuplicateReport struct {
	Names []Conflict `json:"names,omitempty"`
	Paths []Conflict `json:"paths,omitempty"`
}

// Empty reports whether no duplicates were found.
func (r DuplicateReport) Empty() bool {
	return len(r.Names) == 0 && len(r.Paths) == 0
}

// Duplicates scans routes for repeated names and repeated paths.
func Duplicates(routes []Route) DuplicateReport {
	names := make(map[string][]int)
	paths := make(map[string][]int)
	for i, route := range routes {
		names[route.Name] = append(names[route.Name], i)
		paths[route.Path] = append(paths[route.Path], i)
	}
	return DuplicateReport{
		Names: conflicts(names),
		Paths: conflicts(paths),
	}
}

func conflicts(index map[string][]int) []Conflict {
	var out []Conflict
	for key, positions := range index {
		if len(positions) > 1 {
			out = append(out, Conflict{Key: key, Indexes: positions})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Indexes[0] < out[j].Indexes[0] })
	return out
}
