package lint

import "newton/internal/workflowgraph/state"

// ShellOptIn is WFG-LINT-008: a Command task with shell=true is legal and
// the scheduler still runs it (the Command operator itself does not check
// the opt-in), but authoring a shell-invoking task without an explicit
// settings.command_operator.allow_shell is almost always an oversight.
func ShellOptIn(doc *state.WorkflowDocument) []Finding {
	if doc.Workflow.Settings.CommandOperator.AllowShell {
		return nil
	}

	var findings []Finding
	for _, task := range doc.Workflow.Tasks {
		if task.Operator != "Command" {
			continue
		}
		shell, _ := task.Params["shell"].(bool)
		if !shell {
			continue
		}
		findings = append(findings, Finding{
			Code:     "WFG-LINT-008",
			Severity: SeverityError,
			Message:  "Command task uses shell=true but settings.command_operator.allow_shell is not true",
			TaskID:   task.ID,
			Hint:     "set settings.command_operator.allow_shell=true to opt in explicitly",
		})
	}
	return findings
}
