package agent

import "encoding/json"

type Kind string

const (
	KindUpdateTask    Kind = "update_task"
	KindCreateSubtask Kind = "create_subtask"
	KindCommentTask   Kind = "comment_task"
	KindCreateTask    Kind = "create_task"
	KindAssignTask    Kind = "assign_task"
	KindSetTags       Kind = "set_tags"
	KindSetSection    Kind = "set_section"
	KindCompleteTask  Kind = "complete_task"
)

// Kinds lists every supported action kind in a stable order.
var Kinds = []Kind{
	KindUpdateTask,
	KindCreateSubtask,
	KindCommentTask,
	KindCreateTask,
	KindAssignTask,
	KindSetTags,
	KindSetSection,
	KindCompleteTask,
}

// Action is a validated descriptor. The set of implementations is closed:
// only the types in this file satisfy it.
type Action interface {
	Kind() Kind
	isAction()
}

type UpdateTask struct {
	TaskGID string
	Fields  map[string]any
}

type CreateSubtask struct {
	ParentGID string
	Fields    map[string]any
}

type CommentTask struct {
	TaskGID string
	Text    string
}

type CreateTask struct {
	Name      string
	Notes     string
	DueOn     string
	DueAt     string
	Workspace string
	Projects  []string
	// Assignee is a user gid, "me", or an email address.
	Assignee string
	Tags     []string
	// Extra carries any remaining fields through to the create call untouched.
	Extra map[string]any
}

type AssignTask struct {
	TaskGID   string
	Workspace string
	Assignee  string
}

type SetTags struct {
	TaskGID   string
	Workspace string
	Add       []string
	Remove    []string
}

type SetSection struct {
	TaskGID     string
	Project     string
	SectionGID  string
	SectionName string
}

type CompleteTask struct {
	TaskGID   string
	Completed bool
}

func (UpdateTask) Kind() Kind    { return KindUpdateTask }
func (CreateSubtask) Kind() Kind { return KindCreateSubtask }
func (CommentTask) Kind() Kind   { return KindCommentTask }
func (CreateTask) Kind() Kind    { return KindCreateTask }
func (AssignTask) Kind() Kind    { return KindAssignTask }
func (SetTags) Kind() Kind       { return KindSetTags }
func (SetSection) Kind() Kind    { return KindSetSection }
func (CompleteTask) Kind() Kind  { return KindCompleteTask }

func (UpdateTask) isAction()    {}
func (CreateSubtask) isAction() {}
func (CommentTask) isAction()   {}
func (CreateTask) isAction()    {}
func (AssignTask) isAction()    {}
func (SetTags) isAction()       {}
func (SetSection) isAction()    {}
func (CompleteTask) isAction()  {}

// Credentials travel with every engine call. The defaults are used only when
// a descriptor omits workspace or project.
type Credentials struct {
	Token        string `json:"-"`
	WorkspaceGID string `json:"workspace_gid,omitempty"`
	ProjectGID   string `json:"project_gid,omitempty"`
	UserGID      string `json:"user_gid,omitempty"`
}

// Descriptor is the loosely typed wire shape produced by the model-output
// parser.
type Descriptor struct {
	Type          string          `json:"type"`
	TaskGID       string          `json:"task_gid,omitempty"`
	ParentGID     string          `json:"parent_gid,omitempty"`
	Text          string          `json:"text,omitempty"`
	Fields        map[string]any  `json:"fields,omitempty"`
	Assignee      string          `json:"assignee,omitempty"`
	AssigneeEmail string          `json:"assignee_email,omitempty"`
	WorkspaceGID  string          `json:"workspace_gid,omitempty"`
	ProjectGID    string          `json:"project_gid,omitempty"`
	SectionGID    string          `json:"section_gid,omitempty"`
	SectionName   string          `json:"section_name,omitempty"`
	AddTags       json.RawMessage `json:"add_tags,omitempty"`
	RemoveTags    json.RawMessage `json:"remove_tags,omitempty"`
	Completed     *bool           `json:"completed,omitempty"`
	Reason        string          `json:"reason,omitempty"`
}

// Plan is the file format accepted by the apply command.
type Plan struct {
	Instruction string            `json:"instruction,omitempty"`
	CreatedAt   string            `json:"created_at,omitempty"`
	Actions     []json.RawMessage `json:"actions"`
}

type PlanSummary struct {
	Total  int          `json:"total"`
	ByKind map[Kind]int `json:"by_kind"`
	Reject int          `json:"invalid"`
}
