package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/okdesk/deskagent/internal/provider"
)

// historyWindow caps how many recent turns accompany the utterance on
// the primary path.
const historyWindow = 6

// classifyPrompt enumerates the allowed actions, their parameter
// schemas, and the locale path-naming conventions the executor
// understands. The model must answer with a bare JSON object.
const classifyPrompt = `你是 openKylin 桌面助手的意图分类器。将用户输入分类为以下意图之一，只输出 JSON，不要输出其他内容。

意图类型:
- "chat": 普通对话
- "execute_action": 执行系统操作，需给出 action 和 params
- "plan_task": 任务规划，需给出 goal
- "query_memory": 查询会话记忆，query 为 "recent" 或搜索关键词

允许的 action 及参数:
- open_app {"name": 应用名}
- create_file {"path": 路径, "content": 内容}
- delete_file {"path": 路径}
- move_file {"source": 源, "destination": 目标}
- copy_file {"source": 源, "destination": 目标}
- read_file {"path": 路径}
- write_file {"path": 路径, "content": 内容, "mode": "w"|"a"}
- open_url {"url": 网址}
- search_web {"query": 关键词, "engine": "baidu"|"google"|"bing"}
- get_system_info {}
- get_disk_usage {"path": 路径}
- get_process_list {}
- search_package {"query": 包名}
- get_current_time {}

路径约定: 中文目录名（桌面、文档、下载、图片、音乐、视频、公共、模板）与英文目录名等价，相对路径基于用户主目录。

输出格式:
{"intent": "chat|execute_action|plan_task|query_memory", "action": "...", "params": {...}, "goal": "...", "query": "..."}`

// Classifier classifies utterances. A nil provider always takes the
// fallback path.
type Classifier struct {
	provider provider.Provider
	logger   *slog.Logger
}

// NewClassifier creates a classifier. provider may be nil.
func NewClassifier(p provider.Provider, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{provider: p, logger: logger}
}

// Classify turns an utterance into an Intent. It never returns an
// error: any failure on the primary path degrades to the keyword
// fallback, and the fallback is total.
func (c *Classifier) Classify(ctx context.Context, utterance string, history []provider.LLMMessage) Result {
	if c.provider == nil {
		return Result{Intent: Fallback(utterance), Degraded: true, Reason: "no provider configured"}
	}

	messages := make([]provider.LLMMessage, 0, historyWindow+2)
	messages = append(messages, provider.LLMMessage{
		Role:    provider.MessageRoleSystem,
		Content: classifyPrompt,
	})
	if n := len(history); n > historyWindow {
		history = history[n-historyWindow:]
	}
	messages = append(messages, history...)
	messages = append(messages, provider.LLMMessage{
		Role:    provider.MessageRoleUser,
		Content: utterance,
	})

	resp, err := c.provider.Complete(ctx, provider.CompletionRequest{Messages: messages})
	if err != nil {
		c.logger.Warn("intent: classification call failed, using fallback", "error", err)
		return Result{Intent: Fallback(utterance), Degraded: true, Reason: fmt.Sprintf("provider error: %v", err)}
	}

	parsed, err := parseClassification(resp.Content)
	if err != nil {
		c.logger.Warn("intent: unparsable classification, using fallback",
			"error", err,
			"content", truncate(resp.Content, 200),
		)
		return Result{Intent: Fallback(utterance), Degraded: true, Reason: fmt.Sprintf("parse error: %v", err)}
	}

	return Result{Intent: parsed}
}

// wire shape of the model's classification answer.
type classification struct {
	Intent string         `json:"intent"`
	Action string         `json:"action"`
	Params map[string]any `json:"params"`
	Goal   string         `json:"goal"`
	Query  string         `json:"query"`
}

// parseClassification sanitizes and decodes the model output into an
// Intent. Unknown tags and structurally empty payloads are errors so
// the caller degrades instead of propagating a half-formed intent.
func parseClassification(content string) (Intent, error) {
	cleaned := stripCodeFence(content)

	var cls classification
	if err := json.Unmarshal([]byte(cleaned), &cls); err != nil {
		return Intent{}, fmt.Errorf("intent: decode classification: %w", err)
	}

	switch Tag(cls.Intent) {
	case TagChat:
		return Chat(), nil
	case TagExecuteAction:
		if cls.Action == "" {
			return Intent{}, fmt.Errorf("intent: execute_action without action")
		}
		params := cls.Params
		if params == nil {
			params = map[string]any{}
		}
		return Intent{Tag: TagExecuteAction, Action: cls.Action, Params: params}, nil
	case TagPlanTask:
		if cls.Goal == "" {
			return Intent{}, fmt.Errorf("intent: plan_task without goal")
		}
		return Intent{Tag: TagPlanTask, Goal: cls.Goal}, nil
	case TagQueryMemory:
		query := cls.Query
		if query == "" {
			query = QueryRecent
		}
		return Intent{Tag: TagQueryMemory, Query: query}, nil
	default:
		return Intent{}, fmt.Errorf("intent: unknown tag %q", cls.Intent)
	}
}

// stripCodeFence removes a surrounding markdown code fence, with or
// without a language marker, plus any text outside the first JSON
// object.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if i := strings.Index(s, "\n"); i >= 0 {
			// Drop the language marker line (e.g. "json").
			s = s[i+1:]
		}
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	// Tolerate prose around the object.
	if start := strings.Index(s, "{"); start > 0 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
