package state

// WorkflowDocument is the root of a parsed workflow graph file. It is
// immutable once the transform pipeline has produced it.
type WorkflowDocument struct {
	Version  string                 `yaml:"version" json:"version"`
	Mode     string                 `yaml:"mode" json:"mode"`
	Metadata map[string]interface{} `yaml:"metadata,omitempty" json:"metadata,omitempty"`
	Macros   map[string]Macro       `yaml:"macros,omitempty" json:"macros,omitempty"`
	Triggers map[string]interface{} `yaml:"triggers,omitempty" json:"triggers,omitempty"`
	Workflow Workflow               `yaml:"workflow" json:"workflow"`
}

const (
	SupportedVersion = "2.0"
	SupportedMode    = "workflow_graph"
)

// Workflow carries the document's executable payload: shared context,
// settings, and the ordered task list.
type Workflow struct {
	Context  map[string]interface{} `yaml:"context,omitempty" json:"context,omitempty"`
	Settings Settings                `yaml:"settings" json:"settings"`
	Tasks    []Task                  `yaml:"tasks" json:"tasks"`
}

// Macro is a named, parameterized group of tasks expanded by the transform
// pipeline's macro-expansion stage before validation sees individual tasks.
type Macro struct {
	Params []string `yaml:"params,omitempty" json:"params,omitempty"`
	Tasks  []Task   `yaml:"tasks" json:"tasks"`
}

// Task is a single node in the workflow graph, or (when Macro is set in
// place of Operator) a macro invocation awaiting expansion by the
// transform pipeline's macro-expansion stage.
type Task struct {
	ID            string                 `yaml:"id" json:"id"`
	Name          string                 `yaml:"name,omitempty" json:"name,omitempty"`
	Operator      string                 `yaml:"operator,omitempty" json:"operator,omitempty"`
	Params        map[string]interface{} `yaml:"params,omitempty" json:"params,omitempty"`
	Classes       []string               `yaml:"classes,omitempty" json:"classes,omitempty"`
	TimeoutMs     int64                  `yaml:"timeout_ms,omitempty" json:"timeout_ms,omitempty"`
	Retry         *RetryPolicy           `yaml:"retry,omitempty" json:"retry,omitempty"`
	MaxIterations int                    `yaml:"max_iterations,omitempty" json:"max_iterations,omitempty"`
	ParallelGroup string                 `yaml:"parallel_group,omitempty" json:"parallel_group,omitempty"`
	Terminal      string                 `yaml:"terminal,omitempty" json:"terminal,omitempty"`
	GoalGate      bool                   `yaml:"goal_gate,omitempty" json:"goal_gate,omitempty"`
	GoalGateGroup string                 `yaml:"goal_gate_group,omitempty" json:"goal_gate_group,omitempty"`
	IncludeIf     interface{}            `yaml:"include_if,omitempty" json:"include_if,omitempty"`
	Transitions   []Transition           `yaml:"transitions,omitempty" json:"transitions,omitempty"`

	// Macro and With are set instead of Operator when this entry is a
	// macro invocation rather than a concrete task; the macro-expansion
	// transform stage replaces it with the macro's tasks and clears these.
	Macro string                 `yaml:"macro,omitempty" json:"macro,omitempty"`
	With  map[string]interface{} `yaml:"with,omitempty" json:"with,omitempty"`
}

// IsMacroInvocation reports whether t is a macro invocation awaiting
// expansion rather than a directly executable task.
func (t *Task) IsMacroInvocation() bool {
	return t.Macro != ""
}

// TerminalSuccess / TerminalFailure are the only legal values of Task.Terminal.
const (
	TerminalSuccess = "success"
	TerminalFailure = "failure"
)

// Transition wires one task to a candidate successor.
type Transition struct {
	To        string      `yaml:"to" json:"to"`
	When      interface{} `yaml:"when,omitempty" json:"when,omitempty"`
	Priority  int         `yaml:"priority" json:"priority"`
	Label     string      `yaml:"label,omitempty" json:"label,omitempty"`
	IncludeIf interface{} `yaml:"include_if,omitempty" json:"include_if,omitempty"`
}

const DefaultTransitionPriority = 100

// RetryPolicy bounds how many times a task's operator execution is retried
// and the backoff between attempts.
type RetryPolicy struct {
	MaxAttempts       int     `yaml:"max_attempts" json:"max_attempts"`
	BackoffMs         int64   `yaml:"backoff_ms" json:"backoff_ms"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier,omitempty" json:"backoff_multiplier,omitempty"`
	JitterMs          int64   `yaml:"jitter_ms,omitempty" json:"jitter_ms,omitempty"`
}

// Settings configures the scheduler, artifact store, checkpoint store, and
// completion policy for a single workflow document.
type Settings struct {
	EntryTask              string                `yaml:"entry_task" json:"entry_task"`
	MaxTimeSeconds         int64                 `yaml:"max_time_seconds" json:"max_time_seconds"`
	ParallelLimit          int                   `yaml:"parallel_limit" json:"parallel_limit"`
	ContinueOnError        bool                  `yaml:"continue_on_error" json:"continue_on_error"`
	MaxTaskIterations      int                   `yaml:"max_task_iterations" json:"max_task_iterations"`
	MaxWorkflowIterations  int                   `yaml:"max_workflow_iterations" json:"max_workflow_iterations"`
	ArtifactStorage        ArtifactStorageConfig `yaml:"artifact_storage,omitempty" json:"artifact_storage,omitempty"`
	Checkpoint             CheckpointConfig      `yaml:"checkpoint,omitempty" json:"checkpoint,omitempty"`
	Redaction              RedactionConfig       `yaml:"redaction,omitempty" json:"redaction,omitempty"`
	CommandOperator        CommandOperatorConfig `yaml:"command_operator,omitempty" json:"command_operator,omitempty"`
	Completion             CompletionConfig      `yaml:"completion,omitempty" json:"completion,omitempty"`
	DefaultEngine          string                `yaml:"default_engine,omitempty" json:"default_engine,omitempty"`
	ModelStylesheet        string                `yaml:"model_stylesheet,omitempty" json:"model_stylesheet,omitempty"`
	RequiredTriggers       []string              `yaml:"required_triggers,omitempty" json:"required_triggers,omitempty"`
	Webhook                WebhookConfig         `yaml:"webhook,omitempty" json:"webhook,omitempty"`
}

type ArtifactStorageConfig struct {
	BasePath         string `yaml:"base_path,omitempty" json:"base_path,omitempty"`
	MaxInlineBytes   int64  `yaml:"max_inline_bytes,omitempty" json:"max_inline_bytes,omitempty"`
	MaxArtifactBytes int64  `yaml:"max_artifact_bytes,omitempty" json:"max_artifact_bytes,omitempty"`
	MaxTotalBytes    int64  `yaml:"max_total_bytes,omitempty" json:"max_total_bytes,omitempty"`
	RetentionHours   int64  `yaml:"retention_hours,omitempty" json:"retention_hours,omitempty"`
}

type CheckpointConfig struct {
	Enabled            bool  `yaml:"enabled" json:"enabled"`
	IntervalSeconds    int64 `yaml:"interval_seconds,omitempty" json:"interval_seconds,omitempty"`
	OnTaskComplete     bool  `yaml:"on_task_complete,omitempty" json:"on_task_complete,omitempty"`
	KeepHistory        bool  `yaml:"keep_history,omitempty" json:"keep_history,omitempty"`
	AllowWorkflowChange bool `yaml:"allow_workflow_change,omitempty" json:"allow_workflow_change,omitempty"`
}

type RedactionConfig struct {
	RedactKeys []string `yaml:"redact_keys,omitempty" json:"redact_keys,omitempty"`
}

type CommandOperatorConfig struct {
	AllowShell bool `yaml:"allow_shell,omitempty" json:"allow_shell,omitempty"`
}

type CompletionConfig struct {
	StopOnTerminal               bool   `yaml:"stop_on_terminal,omitempty" json:"stop_on_terminal,omitempty"`
	RequireGoalGates             bool   `yaml:"require_goal_gates,omitempty" json:"require_goal_gates,omitempty"`
	GoalGateFailureBehavior      string `yaml:"goal_gate_failure_behavior,omitempty" json:"goal_gate_failure_behavior,omitempty"`
	SuccessRequiresNoTaskFailure bool   `yaml:"success_requires_no_task_failures,omitempty" json:"success_requires_no_task_failures,omitempty"`
}

const (
	GoalGateBehaviorFail  = "fail"
	GoalGateBehaviorAllow = "allow"
)

type WebhookConfig struct {
	Enabled bool   `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Path    string `yaml:"path,omitempty" json:"path,omitempty"`
}
