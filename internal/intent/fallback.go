package intent

import "strings"

// fallbackRule maps trigger words to an intent builder. Rules are
// evaluated in declaration order; the first matching trigger wins and
// exactly one intent is returned.
type fallbackRule struct {
	triggers []string
	build    func(utterance, rest string) Intent
}

// The trigger lists and their priority order are carried over from the
// original assistant: open > create > system-info > disk > process >
// package-search > plan > memory > chat. Flagged for product review
// rather than rebalanced here.
var fallbackRules = []fallbackRule{
	{
		triggers: []string{"打开", "启动", "open ", "launch "},
		build: func(_, rest string) Intent {
			return Intent{
				Tag:    TagExecuteAction,
				Action: "open_app",
				Params: map[string]any{"name": rest},
			}
		},
	},
	{
		triggers: []string{"创建文件", "新建文件", "create file", "new file"},
		build: func(_, rest string) Intent {
			return Intent{
				Tag:    TagExecuteAction,
				Action: "create_file",
				Params: map[string]any{"path": rest},
			}
		},
	},
	{
		triggers: []string{"系统信息", "system info"},
		build: func(_, _ string) Intent {
			return Intent{Tag: TagExecuteAction, Action: "get_system_info", Params: map[string]any{}}
		},
	},
	{
		triggers: []string{"磁盘", "disk"},
		build: func(_, _ string) Intent {
			return Intent{Tag: TagExecuteAction, Action: "get_disk_usage", Params: map[string]any{}}
		},
	},
	{
		triggers: []string{"进程", "process"},
		build: func(_, _ string) Intent {
			return Intent{Tag: TagExecuteAction, Action: "get_process_list", Params: map[string]any{}}
		},
	},
	{
		triggers: []string{"搜索软件", "搜索包", "软件包", "search package"},
		build: func(_, rest string) Intent {
			return Intent{
				Tag:    TagExecuteAction,
				Action: "search_package",
				Params: map[string]any{"query": rest},
			}
		},
	},
	{
		triggers: []string{"计划", "规划", "plan "},
		build: func(_, rest string) Intent {
			return Intent{Tag: TagPlanTask, Goal: rest}
		},
	},
	{
		triggers: []string{"记忆", "历史记录", "聊过什么", "memory", "history"},
		build: func(utterance, rest string) Intent {
			return Intent{Tag: TagQueryMemory, Query: memoryQuery(rest)}
		},
	},
}

// Fallback is the deterministic keyword classifier. It is total: any
// input, including empty or garbage text, produces a well-formed intent.
func Fallback(utterance string) Intent {
	lower := strings.ToLower(utterance)
	// Byte offsets computed on the lowered text only transfer back to
	// the original when lowering preserved lengths; otherwise extract
	// from the lowered text.
	source := utterance
	if len(lower) != len(utterance) {
		source = lower
	}

	for _, rule := range fallbackRules {
		for _, trigger := range rule.triggers {
			idx := strings.Index(lower, trigger)
			if idx < 0 {
				continue
			}
			rest := restAfter(source, idx+len(trigger))
			return rule.build(source, rest)
		}
	}

	return Chat()
}

// restAfter extracts the payload text following a matched trigger:
// everything after the trigger with leading separators trimmed. May be
// empty; builders treat an empty payload as "no argument given".
func restAfter(utterance string, offset int) string {
	if offset > len(utterance) {
		offset = len(utterance)
	}
	rest := strings.TrimLeft(utterance[offset:], " \t:：,，。")
	return strings.TrimSpace(rest)
}

// memoryQuery maps the remainder of a memory trigger to "recent" or a
// search keyword.
func memoryQuery(rest string) string {
	switch rest {
	case "", QueryRecent, "最近", "最近的":
		return QueryRecent
	}
	// Phrases that merely ask "what did we talk about" are recency
	// queries, not keyword searches.
	for _, recency := range []string{"我们聊了什么", "聊了什么", "记录"} {
		if rest == recency {
			return QueryRecent
		}
	}
	return rest
}
