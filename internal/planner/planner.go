// Package planner decomposes a user goal into an ordered list of
// concrete steps. A provider-backed plan is preferred; when no provider
// is configured or the provider misbehaves the planner falls back to a
// deterministic generic outline so planning never fails outright.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/okdesk/deskagent/internal/provider"
)

// Step is one entry of a plan.
type Step struct {
	Step          int    `json:"step"`
	Description   string `json:"description"`
	Action        string `json:"action,omitempty"`
	EstimatedTime string `json:"estimated_time,omitempty"`
}

// Plan is the ordered decomposition of a goal.
type Plan struct {
	Goal  string `json:"goal"`
	Steps []Step `json:"steps"`

	// Degraded is set when the steps come from the generic fallback
	// rather than the provider; Reason says why.
	Degraded bool   `json:"degraded,omitempty"`
	Reason   string `json:"degradation_reason,omitempty"`
}

const planPrompt = `你是一个任务规划助手。请将用户的目标拆解成具体的执行步骤。

只返回 JSON，格式如下（不要输出其它内容）：
{"steps": [{"step": 1, "description": "步骤描述", "action": "可选的具体操作", "estimated_time": "预计耗时"}]}

步骤数量控制在 3 到 8 个之间，描述要具体可执行。`

// Planner produces plans from goals.
type Planner struct {
	provider provider.Provider
	logger   *slog.Logger
}

// New creates a Planner. provider may be nil; every goal then takes the
// fallback path.
func New(p provider.Provider, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{provider: p, logger: logger}
}

// Plan decomposes goal into steps. It never returns an error: any
// provider or parse failure degrades to the generic fallback plan.
func (p *Planner) Plan(ctx context.Context, goal string) Plan {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		goal = "未指定目标"
	}

	if p.provider == nil {
		return fallbackPlan(goal, "no provider configured")
	}

	resp, err := p.provider.Complete(ctx, provider.CompletionRequest{
		Messages: []provider.LLMMessage{
			{Role: provider.MessageRoleSystem, Content: planPrompt},
			{Role: provider.MessageRoleUser, Content: "目标：" + goal},
		},
		Temperature: 0.2,
	})
	if err != nil {
		p.logger.Warn("planner: provider failed, using fallback", "error", err)
		return fallbackPlan(goal, fmt.Sprintf("provider error: %v", err))
	}

	steps, err := parseSteps(resp.Content)
	if err != nil {
		p.logger.Warn("planner: unparsable plan, using fallback",
			"error", err, "content", truncate(resp.Content, 200))
		return fallbackPlan(goal, fmt.Sprintf("parse error: %v", err))
	}
	return Plan{Goal: goal, Steps: steps}
}

func parseSteps(content string) ([]Step, error) {
	content = stripCodeFence(content)

	var parsed struct {
		Steps []Step `json:"steps"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("plan is not valid JSON: %w", err)
	}
	if len(parsed.Steps) == 0 {
		return nil, fmt.Errorf("plan contains no steps")
	}

	for i := range parsed.Steps {
		parsed.Steps[i].Step = i + 1
		if strings.TrimSpace(parsed.Steps[i].Description) == "" {
			return nil, fmt.Errorf("step %d has no description", i+1)
		}
	}
	return parsed.Steps, nil
}

// fallbackPlan is the deterministic generic outline used when the
// provider path is unavailable.
func fallbackPlan(goal, reason string) Plan {
	return Plan{
		Goal:     goal,
		Degraded: true,
		Reason:   reason,
		Steps: []Step{
			{Step: 1, Description: "明确目标的具体要求和范围: " + goal, EstimatedTime: "10分钟"},
			{Step: 2, Description: "收集所需的资料和工具，拆分出可执行的子任务", EstimatedTime: "30分钟"},
			{Step: 3, Description: "按子任务逐项执行并检查结果", EstimatedTime: "视任务而定"},
		},
	}
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		return strings.TrimSpace(s)
	}
	if start := strings.Index(s, "{"); start > 0 {
		if end := strings.LastIndex(s, "}"); end > start {
			return s[start : end+1]
		}
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
