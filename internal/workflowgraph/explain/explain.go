// Package explain builds a human-readable snapshot of a parsed workflow
// document: its entry task, its context (with any caller-supplied
// overrides applied), and every task's resolved params and transitions.
// It is a read-only view used by `newton explain`; it never
// touches execution state, and best-effort evaluates $expr leaves that
// don't depend on task outputs.
package explain

import (
	"fmt"
	"sort"
	"strings"

	"newton/internal/workflowgraph/expr"
	"newton/internal/workflowgraph/state"
)

// Transition is one outgoing edge from a task, in priority order.
type Transition struct {
	Target   string
	Priority int
	When     string
}

// Task is one task's explainable surface: its operator, its params with
// any safely-evaluable $expr leaves resolved, and its transitions.
type Task struct {
	ID          string
	Operator    string
	Params      interface{}
	Transitions []Transition
}

// Document is the full explain snapshot for a workflow document.
type Document struct {
	EntryTask string
	Context   map[string]interface{}
	Tasks     []Task
}

// Build produces a Document snapshot. contextOverrides are merged over
// the document's own context before any $expr leaves are evaluated,
// mirroring a caller supplying a JSON object via --context at the CLI.
func Build(doc *state.WorkflowDocument, exprEngine *expr.Engine, contextOverrides map[string]interface{}) Document {
	context := map[string]interface{}{}
	for k, v := range doc.Workflow.Context {
		context[k] = v
	}
	for k, v := range contextOverrides {
		context[k] = v
	}

	bindings := expr.Bindings{
		Context:  context,
		Tasks:    map[string]interface{}{},
		Triggers: map[string]interface{}{},
	}

	tasks := make([]Task, 0, len(doc.Workflow.Tasks))
	for _, t := range doc.Workflow.Tasks {
		tasks = append(tasks, explainTask(t, exprEngine, bindings))
	}

	return Document{
		EntryTask: doc.Workflow.Settings.EntryTask,
		Context:   context,
		Tasks:     tasks,
	}
}

func explainTask(task state.Task, e *expr.Engine, bindings expr.Bindings) Task {
	transitions := append([]state.Transition{}, task.Transitions...)
	sort.SliceStable(transitions, func(i, j int) bool { return transitions[i].Priority < transitions[j].Priority })

	out := Task{ID: task.ID, Operator: task.Operator, Params: explainValue(task.Params, e, bindings)}
	for _, tr := range transitions {
		out.Transitions = append(out.Transitions, Transition{
			Target:   tr.To,
			Priority: tr.Priority,
			When:     formatCondition(tr.When),
		})
	}
	return out
}

// explainValue walks a params tree, resolving any $expr leaf that does
// not reference task outputs (those can only be known at run time, so
// they're rendered as the literal string "(runtime)").
func explainValue(value interface{}, e *expr.Engine, bindings expr.Bindings) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		if len(v) == 1 {
			if raw, ok := v["$expr"]; ok {
				if exprStr, ok := raw.(string); ok {
					if dependsOnTasks(exprStr) {
						return "(runtime)"
					}
					if evaluated, err := e.Evaluate(exprStr, bindings); err == nil {
						return evaluated
					}
				}
				return v
			}
		}
		resolved := make(map[string]interface{}, len(v))
		for k, child := range v {
			resolved[k] = explainValue(child, e, bindings)
		}
		return resolved
	case []interface{}:
		resolved := make([]interface{}, len(v))
		for i, item := range v {
			resolved[i] = explainValue(item, e, bindings)
		}
		return resolved
	default:
		return v
	}
}

func dependsOnTasks(expr string) bool {
	return strings.Contains(expr, "tasks.") || strings.Contains(expr, "tasks[")
}

func formatCondition(when interface{}) string {
	switch w := when.(type) {
	case nil:
		return "(always)"
	case bool:
		return fmt.Sprintf("%t", w)
	case map[string]interface{}:
		if exprStr, ok := w["$expr"].(string); ok {
			return exprStr
		}
		return fmt.Sprintf("%v", w)
	default:
		return fmt.Sprintf("%v", w)
	}
}

// Render renders doc as an indented tree: one line per task, one
// indented line per transition underneath it.
func Render(doc Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "entry: %s\n", doc.EntryTask)

	ids := make([]string, 0, len(doc.Tasks))
	byID := make(map[string]Task, len(doc.Tasks))
	for _, t := range doc.Tasks {
		ids = append(ids, t.ID)
		byID[t.ID] = t
	}
	sort.Strings(ids)

	for _, id := range ids {
		task := byID[id]
		fmt.Fprintf(&b, "%s [%s]\n", task.ID, task.Operator)
		for i, tr := range task.Transitions {
			branch := "├──"
			if i == len(task.Transitions)-1 {
				branch = "└──"
			}
			fmt.Fprintf(&b, "  %s %s (priority=%d, when=%s)\n", branch, tr.Target, tr.Priority, tr.When)
		}
	}

	return b.String()
}
