// Package intent turns free-form user utterances into structured
// intents. The primary path asks the LLM for a JSON classification; a
// deterministic keyword fallback guarantees a well-formed intent even
// when the model is unreachable or returns garbage.
package intent

// Tag identifies the kind of intent. Exactly one tag is active per
// classification result.
type Tag string

// Intent tags.
const (
	TagChat          Tag = "chat"
	TagExecuteAction Tag = "execute_action"
	TagPlanTask      Tag = "plan_task"
	TagQueryMemory   Tag = "query_memory"
)

// QueryRecent is the query_memory payload meaning "show recent turns";
// any other query value is treated as a search keyword.
const QueryRecent = "recent"

// Intent is the classified purpose of an utterance. Payload fields are
// populated according to the tag.
type Intent struct {
	Tag Tag

	// Action and Params are set for TagExecuteAction.
	Action string
	Params map[string]any

	// Goal is set for TagPlanTask.
	Goal string

	// Query is set for TagQueryMemory: QueryRecent or a search keyword.
	Query string
}

// Chat returns the default free-form chat intent.
func Chat() Intent {
	return Intent{Tag: TagChat}
}

// Result is the typed outcome of a classification. Degraded marks that
// the deterministic fallback produced the intent, with Reason saying why
// the primary path was skipped or failed.
type Result struct {
	Intent   Intent
	Degraded bool
	Reason   string
}
