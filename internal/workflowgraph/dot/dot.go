// Package dot renders a parsed workflow document as a Graphviz DOT graph,
// and reports tasks unreachable from the entry task. Both are pure,
// read-only views over a state.WorkflowDocument; neither touches the
// engine or any execution state.
package dot

import (
	"fmt"
	"sort"
	"strings"

	"newton/internal/workflowgraph/state"
)

// Render produces a Graphviz DOT string for document's task graph: one
// node per task labeled "<id>\n<operator>", one edge per transition to a
// known task, labeled with its explicit label when set and otherwise with
// its priority and, where present, its condition.
func Render(doc *state.WorkflowDocument) string {
	var b strings.Builder
	b.WriteString("digraph workflow {\n")

	ids := make([]string, 0, len(doc.Workflow.Tasks))
	byID := make(map[string]state.Task, len(doc.Workflow.Tasks))
	for _, t := range doc.Workflow.Tasks {
		ids = append(ids, t.ID)
		byID[t.ID] = t
	}
	sort.Strings(ids)

	for _, id := range ids {
		task := byID[id]
		b.WriteString(fmt.Sprintf("    %q [label=%q];\n", id, id+"\\n"+task.Operator))
	}

	for _, id := range ids {
		task := byID[id]
		transitions := append([]state.Transition{}, task.Transitions...)
		sort.SliceStable(transitions, func(i, j int) bool { return transitions[i].To < transitions[j].To })
		for _, tr := range transitions {
			if _, known := byID[tr.To]; !known {
				continue
			}
			label := transitionLabel(tr)
			b.WriteString(fmt.Sprintf("    %q -> %q [label=%q];\n", id, tr.To, label))
		}
	}

	b.WriteString("}\n")
	return b.String()
}

// ReachabilityWarnings returns the sorted ids of tasks not reachable from
// the workflow's entry task via a breadth-first walk of the transition
// graph. An unknown entry task yields no warnings (document validation
// already rejects that shape before this is ever called).
func ReachabilityWarnings(doc *state.WorkflowDocument) []string {
	adjacency := make(map[string][]string, len(doc.Workflow.Tasks))
	known := make(map[string]bool, len(doc.Workflow.Tasks))
	for _, t := range doc.Workflow.Tasks {
		known[t.ID] = true
		for _, tr := range t.Transitions {
			adjacency[t.ID] = append(adjacency[t.ID], tr.To)
		}
	}

	entry := doc.Workflow.Settings.EntryTask
	if !known[entry] {
		return nil
	}

	reachable := map[string]bool{}
	queue := []string{entry}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if reachable[current] {
			continue
		}
		reachable[current] = true
		queue = append(queue, adjacency[current]...)
	}

	var unreachable []string
	for id := range known {
		if !reachable[id] {
			unreachable = append(unreachable, id)
		}
	}
	sort.Strings(unreachable)
	return unreachable
}

func transitionLabel(tr state.Transition) string {
	var base string
	switch {
	case tr.Label != "":
		base = tr.Label
	case tr.When != nil:
		switch w := tr.When.(type) {
		case bool:
			base = fmt.Sprintf("when=%t priority=%d", w, tr.Priority)
		case map[string]interface{}:
			if expr, ok := w["$expr"].(string); ok {
				base = fmt.Sprintf("when:%s priority=%d", truncate(expr, 60), tr.Priority)
				break
			}
			base = fmt.Sprintf("priority=%d", tr.Priority)
		default:
			base = fmt.Sprintf("priority=%d", tr.Priority)
		}
	default:
		base = fmt.Sprintf("priority=%d", tr.Priority)
	}
	return truncate(base, 80)
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit] + "..."
}
