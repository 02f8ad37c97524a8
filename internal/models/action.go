package models

// ActionType identifies the kind of work a step performs.
type ActionType string

// Supported action types. Each carries its own parameter fields on Action.
const (
	ActionReadFile       ActionType = "read-file"
	ActionWriteFile      ActionType = "write-file"
	ActionCreateFile     ActionType = "create-file"
	ActionRunCommand     ActionType = "run-command"
	ActionSearchCodebase ActionType = "search-codebase"
	ActionCallModel      ActionType = "call-model"
	ActionRequestAssist  ActionType = "request-assistance"
)

// Action is the tagged payload of a step. Type selects the variant; the
// remaining fields are parameters and only the ones relevant to the variant
// are populated.
type Action struct {
	Type    ActionType `json:"type"`
	Path    string     `json:"path,omitempty"`    // read-file, write-file, create-file
	Content string     `json:"content,omitempty"` // write-file, create-file
	Command string     `json:"command,omitempty"` // run-command
	Query   string     `json:"query,omitempty"`   // search-codebase
	Prompt  string     `json:"prompt,omitempty"`  // call-model, request-assistance

	// Destructive marks commands that modify or remove existing state
	// (forced pushes, recursive deletes, schema drops). Destructive actions
	// require approval before dispatch.
	Destructive bool `json:"destructive,omitempty"`
}

// ReferencesPath returns the file path this action references, or "" if the
// action does not operate on a path.
func (a Action) ReferencesPath() string {
	switch a.Type {
	case ActionReadFile, ActionWriteFile, ActionCreateFile:
		return a.Path
	default:
		return ""
	}
}

// ExpectsExistingFile reports whether the action assumes its path already
// exists on disk.
func (a Action) ExpectsExistingFile() bool {
	return a.Type == ActionReadFile && a.Path != ""
}

// IsComplex reports whether the action type is inherently risky: model-driven
// generation or destructive commands.
func (a Action) IsComplex() bool {
	switch a.Type {
	case ActionCallModel:
		return true
	case ActionRunCommand:
		return a.Destructive
	default:
		return false
	}
}

// Summary returns a short human-readable description of the action for logs.
func (a Action) Summary() string {
	switch a.Type {
	case ActionReadFile:
		return "read " + a.Path
	case ActionWriteFile:
		return "write " + a.Path
	case ActionCreateFile:
		return "create " + a.Path
	case ActionRunCommand:
		return "run " + a.Command
	case ActionSearchCodebase:
		return "search for " + a.Query
	case ActionCallModel:
		return "call model"
	case ActionRequestAssist:
		return "request operator assistance"
	default:
		return string(a.Type)
	}
}
