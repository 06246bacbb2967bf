package plan

import (
	"sort"
	"strings"

	"github.com/opnlabs/slipway/pkg/models"
)

// CycleError reports a dependency cycle with one stable witness path.
type CycleError struct {
	Path []models.JobName
}

func (e *CycleError) Error() string {
	parts := make([]string, len(e.Path))
	for i, n := range e.Path {
		parts[i] = n.String()
	}
	return "plan: dependency cycle: " + strings.Join(parts, " -> ")
}

// Waves orders names into dependency waves using Kahn's algorithm.
// edges maps a job to the jobs that depend on it. Each wave is drained in
// name order, so the result is deterministic for a given graph.
func Waves(names []models.JobName, edges map[models.JobName][]models.JobName) ([][]models.JobName, error) {
	indegree := make(map[models.JobName]int, len(names))
	for _, n := range names {
		indegree[n] = 0
	}
	for _, dependents := range edges {
		for _, d := range dependents {
			indegree[d]++
		}
	}

	var ready []models.JobName
	for _, n := range names {
		if indegree[n] == 0 {
			ready = append(ready, n)
		}
	}

	var waves [][]models.JobName
	done := 0
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })
		wave := ready
		ready = nil
		waves = append(waves, wave)
		for _, n := range wave {
			done++
			for _, m := range edges[n] {
				indegree[m]--
				if indegree[m] == 0 {
					ready = append(ready, m)
				}
			}
		}
	}

	if done != len(names) {
		return nil, &CycleError{Path: findCycle(names, edges)}
	}
	return waves, nil
}

// findCycle performs a deterministic DFS to extract one cycle path as a
// stable witness. It does not attempt to list all cycles.
func findCycle(names []models.JobName, edges map[models.JobName][]models.JobName) []models.JobName {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	sortedNames := append([]models.JobName(nil), names...)
	sort.Slice(sortedNames, func(i, j int) bool { return sortedNames[i] < sortedNames[j] })

	sortedEdges := make(map[models.JobName][]models.JobName, len(edges))
	for n, adj := range edges {
		out := append([]models.JobName(nil), adj...)
		sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
		sortedEdges[n] = out
	}

	color := make(map[models.JobName]int, len(names))
	parent := make(map[models.JobName]models.JobName, len(names))

	var cycle []models.JobName
	var dfs func(u models.JobName) bool
	dfs = func(u models.JobName) bool {
		color[u] = gray
		for _, v := range sortedEdges[u] {
			if color[v] == white {
				parent[v] = u
				if dfs(v) {
					return true
				}
				continue
			}
			if color[v] == gray {
				// Back-edge u -> v. Reconstruct v ... u -> v.
				cycle = append(cycle, v)
				cur := u
				for cur != v && cur != "" {
					cycle = append(cycle, cur)
					cur = parent[cur]
				}
				cycle = append(cycle, v)
				return true
			}
		}
		color[u] = black
		return false
	}

	for _, n := range sortedNames {
		if color[n] != white {
			continue
		}
		if dfs(n) {
			break
		}
	}

	if len(cycle) == 0 {
		return nil
	}

	// The walk collected the path in reverse; flip it so the witness reads
	// forward and starts and ends on the same job.
	out := make([]models.JobName, 0, len(cycle))
	for i := len(cycle) - 1; i >= 0; i-- {
		out = append(out, cycle[i])
	}
	return out
}
