package lint

import (
	"fmt"
	"sort"

	"newton/internal/workflowgraph/state"
)

// CycleWithoutIterationOverride is WFG-LINT-007: a task inside a cycle
// (strongly connected component of size > 1, or a self-loop) that has no
// per-task max_iterations override relies entirely on
// settings.max_task_iterations to bound it. That's legal — the scheduler
// treats cycles as ordinary graph structure, not an error — but it is
// easy to author by accident, so this rule flags it at info severity.
func CycleWithoutIterationOverride(doc *state.WorkflowDocument) []Finding {
	adjacency := make(map[string][]string, len(doc.Workflow.Tasks))
	byID := make(map[string]state.Task, len(doc.Workflow.Tasks))
	ids := make([]string, 0, len(doc.Workflow.Tasks))
	for _, t := range doc.Workflow.Tasks {
		byID[t.ID] = t
		ids = append(ids, t.ID)
		for _, tr := range t.Transitions {
			adjacency[t.ID] = append(adjacency[t.ID], tr.To)
		}
	}
	sort.Strings(ids)

	var findings []Finding
	for _, component := range tarjanSCC(ids, adjacency) {
		isCycle := len(component) > 1
		if len(component) == 1 {
			for _, to := range adjacency[component[0]] {
				if to == component[0] {
					isCycle = true
					break
				}
			}
		}
		if !isCycle {
			continue
		}
		sorted := append([]string{}, component...)
		sort.Strings(sorted)
		for _, taskID := range sorted {
			task, ok := byID[taskID]
			if !ok || task.MaxIterations > 0 {
				continue
			}
			findings = append(findings, Finding{
				Code:     "WFG-LINT-007",
				Severity: SeverityInfo,
				Message:  fmt.Sprintf("task %q is part of a cycle and has no per-task max_iterations", taskID),
				TaskID:   taskID,
				Hint:     "set task.max_iterations to guard against an accidental infinite loop",
			})
		}
	}
	return findings
}

// tarjanSCC computes strongly connected components over the adjacency map
// using Tarjan's algorithm, iterating node ids in sorted order so results
// are deterministic across runs.
func tarjanSCC(ids []string, adjacency map[string][]string) [][]string {
	index := 0
	indices := make(map[string]int, len(ids))
	lowlink := make(map[string]int, len(ids))
	onStack := make(map[string]bool, len(ids))
	var stack []string
	var components [][]string

	var strongconnect func(v string)
	strongconnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range adjacency[v] {
			if _, visited := indices[w]; !visited {
				strongconnect(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] {
				if indices[w] < lowlink[v] {
					lowlink[v] = indices[w]
				}
			}
		}

		if lowlink[v] == indices[v] {
			var component []string
			for {
				n := len(stack) - 1
				w := stack[n]
				stack = stack[:n]
				onStack[w] = false
				component = append(component, w)
				if w == v {
					break
				}
			}
			components = append(components, component)
		}
	}

	for _, id := range ids {
		if _, visited := indices[id]; !visited {
			strongconnect(id)
		}
	}
	return components
}
