// Package dispatch routes classified user utterances to specialist
// collaborators and formats their results into natural-language
// replies. It owns per-session in-memory history, serializes replies
// per session, and persists every turn into the durable memory store
// on a log-and-continue basis.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/okdesk/deskagent/internal/executor"
	"github.com/okdesk/deskagent/internal/intent"
	"github.com/okdesk/deskagent/internal/memory"
	"github.com/okdesk/deskagent/internal/planner"
	"github.com/okdesk/deskagent/internal/provider"
)

// chatPrompt is the system instruction for the free-form chat path.
const chatPrompt = "你是 openKylin 桌面助手。"

// recentWindow is how many turns a query_memory "recent" request renders.
const recentWindow = 10

// searchLimit caps keyword search results rendered in a reply.
const searchLimit = 10

// Classifier turns an utterance plus history into a typed intent result.
type Classifier interface {
	Classify(ctx context.Context, utterance string, history []provider.LLMMessage) intent.Result
}

// ActionRunner carries out a classified desktop action.
type ActionRunner interface {
	Execute(ctx context.Context, action string, params map[string]any) executor.Result
}

// GoalPlanner decomposes a goal into ordered steps.
type GoalPlanner interface {
	Plan(ctx context.Context, goal string) planner.Plan
}

// Options configures a Dispatcher. Classifier, Sessions and Lanes are
// required; the collaborators and the provider may be nil, in which
// case the corresponding branches degrade gracefully.
type Options struct {
	Classifier Classifier
	Executor   ActionRunner
	Planner    GoalPlanner
	Store      memory.Store
	Provider   provider.Provider
	Sessions   SessionStore
	Lanes      *LaneLock
	Logger     *slog.Logger
}

// Dispatcher implements the reply state machine: append the user turn,
// classify, branch, format, persist.
type Dispatcher struct {
	classifier Classifier
	executor   ActionRunner
	planner    GoalPlanner
	store      memory.Store
	provider   provider.Provider
	sessions   SessionStore
	lanes      *LaneLock
	logger     *slog.Logger

	// now is injectable for deterministic tests.
	now func() time.Time
}

// New creates a Dispatcher.
func New(opts Options) *Dispatcher {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Sessions == nil {
		opts.Sessions = NewInMemorySessionStore()
	}
	if opts.Lanes == nil {
		opts.Lanes = NewLaneLock()
	}
	return &Dispatcher{
		classifier: opts.Classifier,
		executor:   opts.Executor,
		planner:    opts.Planner,
		store:      opts.Store,
		provider:   opts.Provider,
		sessions:   opts.Sessions,
		lanes:      opts.Lanes,
		logger:     opts.Logger,
		now:        time.Now,
	}
}

// Sessions exposes the session store for background pruning.
func (d *Dispatcher) Sessions() SessionStore {
	return d.sessions
}

// Lanes exposes the lane lock for background cleanup.
func (d *Dispatcher) Lanes() *LaneLock {
	return d.lanes
}

// Reply processes one user message for the given session and returns
// the assistant's reply text. Replies within the same session are
// serialized; replies for different sessions proceed concurrently.
// Reply never returns an error: every failure degrades to a user-safe
// reply string.
func (d *Dispatcher) Reply(ctx context.Context, message, sessionID string) string {
	d.lanes.Acquire(sessionID)
	defer d.lanes.Release(sessionID)

	userAt := d.now()

	sess, _ := d.sessions.GetOrCreate(sessionID)
	if sess == nil {
		// Session limit reached; answer without history.
		sess = &Session{ID: sessionID}
	}
	sess.History = append(sess.History, provider.LLMMessage{
		Role:    provider.MessageRoleUser,
		Content: message,
	})
	d.sessions.Touch(sessionID)

	res := d.classifier.Classify(ctx, message, sess.History[:len(sess.History)-1])
	if res.Degraded {
		d.logger.Debug("dispatch: classifier degraded",
			"session_id", sessionID, "reason", res.Reason)
	}

	reply := d.handleIntent(ctx, sessionID, message, res.Intent, sess.History)
	assistantAt := d.now()

	sess.History = append(sess.History, provider.LLMMessage{
		Role:    provider.MessageRoleAssistant,
		Content: reply,
	})

	d.persistTurn(ctx, sessionID, string(provider.MessageRoleUser), message, userAt)
	d.persistTurn(ctx, sessionID, string(provider.MessageRoleAssistant), reply, assistantAt)

	return reply
}

// handleIntent branches on the intent tag. A panicking collaborator is
// converted into a degraded chat-style reply, never propagated.
func (d *Dispatcher) handleIntent(ctx context.Context, sessionID, message string, it intent.Intent, history []provider.LLMMessage) (reply string) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("dispatch: collaborator panicked",
				"session_id", sessionID, "tag", string(it.Tag), "panic", r)
			reply = degradedReply(fmt.Sprintf("%v", r))
		}
	}()

	switch it.Tag {
	case intent.TagExecuteAction:
		return d.handleExecute(ctx, sessionID, it)
	case intent.TagPlanTask:
		return d.handlePlan(ctx, sessionID, it.Goal)
	case intent.TagQueryMemory:
		return d.handleMemoryQuery(ctx, sessionID, it.Query)
	default:
		return d.handleChat(ctx, history)
	}
}

func (d *Dispatcher) handleExecute(ctx context.Context, sessionID string, it intent.Intent) string {
	if d.executor == nil {
		return degradedReply("executor unavailable")
	}

	res := d.executor.Execute(ctx, it.Action, it.Params)

	d.recordOperation(ctx, sessionID, it.Action, res)
	return formatExecution(it.Action, res)
}

func (d *Dispatcher) handlePlan(ctx context.Context, sessionID, goal string) string {
	if d.planner == nil {
		return degradedReply("planner unavailable")
	}

	plan := d.planner.Plan(ctx, goal)
	if plan.Degraded {
		d.logger.Debug("dispatch: plan degraded",
			"session_id", sessionID, "reason", plan.Reason)
	}

	if d.store != nil {
		err := d.store.RecordOperation(ctx, sessionID, "plan_task",
			fmt.Sprintf("规划任务: %s（%d 步）", plan.Goal, len(plan.Steps)), nil)
		if err != nil {
			d.logger.Warn("dispatch: record operation failed",
				"session_id", sessionID, "error", err)
		}
	}
	return formatPlan(plan)
}

func (d *Dispatcher) handleMemoryQuery(ctx context.Context, sessionID, query string) string {
	if d.store == nil {
		return degradedReply("memory store unavailable")
	}

	if query == "" || query == intent.QueryRecent {
		turns, err := d.store.RecentMessages(ctx, sessionID, recentWindow)
		if err != nil {
			d.logger.Warn("dispatch: recent messages query failed",
				"session_id", sessionID, "error", err)
			return fmt.Sprintf("❌ 查询记忆失败: %v", err)
		}
		return formatRecentTurns(turns)
	}

	turns, err := d.store.SearchMessages(ctx, sessionID, query, searchLimit)
	if err != nil {
		d.logger.Warn("dispatch: message search failed",
			"session_id", sessionID, "keyword", query, "error", err)
		return fmt.Sprintf("❌ 查询记忆失败: %v", err)
	}
	return formatSearchTurns(query, turns)
}

// handleChat is the default branch: a direct completion over the
// session's accumulated history, which already ends with the current
// user message.
func (d *Dispatcher) handleChat(ctx context.Context, history []provider.LLMMessage) string {
	if d.provider == nil {
		return degradedReply("no provider configured")
	}

	messages := make([]provider.LLMMessage, 0, len(history)+1)
	messages = append(messages, provider.LLMMessage{
		Role:    provider.MessageRoleSystem,
		Content: chatPrompt,
	})
	messages = append(messages, history...)

	resp, err := d.provider.Complete(ctx, provider.CompletionRequest{Messages: messages})
	if err != nil {
		d.logger.Warn("dispatch: chat completion failed", "error", err)
		return degradedReply(fmt.Sprintf("provider error: %v", err))
	}
	return resp.Content
}

// persistTurn writes a turn to the durable store. Failures are logged
// and swallowed: durability is best-effort on the reply path.
func (d *Dispatcher) persistTurn(ctx context.Context, sessionID, role, content string, ts time.Time) {
	if d.store == nil {
		return
	}
	if err := d.store.AppendMessage(ctx, sessionID, role, content, ts); err != nil {
		d.logger.Warn("dispatch: persist turn failed",
			"session_id", sessionID, "role", role, "error", err)
	}
}

// recordOperation writes the audit entry for an executed action,
// best-effort.
func (d *Dispatcher) recordOperation(ctx context.Context, sessionID, action string, res executor.Result) {
	if d.store == nil {
		return
	}
	meta := map[string]string{"success": fmt.Sprintf("%t", res.Success)}
	if err := d.store.RecordOperation(ctx, sessionID, action, res.Message, meta); err != nil {
		d.logger.Warn("dispatch: record operation failed",
			"session_id", sessionID, "action", action, "error", err)
	}
}

// degradedReply is the generic apologetic reply carrying a short,
// user-safe diagnostic.
func degradedReply(reason string) string {
	return fmt.Sprintf("抱歉，我暂时无法处理这个请求（%s），请稍后再试。", reason)
}
