package dispatch

import (
	"fmt"
	"strings"

	"github.com/okdesk/deskagent/internal/executor"
	"github.com/okdesk/deskagent/internal/memory"
	"github.com/okdesk/deskagent/internal/planner"
)

// maxInlineContent caps how many runes of a read file are rendered
// inline in a reply.
const maxInlineContent = 500

// formatExecution renders an executor result. Failures always begin
// with the failure marker and carry the executor's message verbatim.
func formatExecution(action string, res executor.Result) string {
	if !res.Success {
		return "❌ " + res.Message
	}

	var b strings.Builder
	b.WriteString("✅ ")
	b.WriteString(res.Message)

	switch action {
	case "read_file":
		if content, ok := res.Data["content"].(string); ok {
			b.WriteString("\n")
			b.WriteString(truncateRunes(content, maxInlineContent))
		}
	case "get_system_info":
		writeKV(&b, res.Data, "system", "操作系统")
		writeKV(&b, res.Data, "architecture", "架构")
		writeKV(&b, res.Data, "hostname", "主机名")
		if cpus, ok := res.Data["cpus"].(int); ok {
			fmt.Fprintf(&b, "\nCPU 核心: %d", cpus)
		}
		writeKV(&b, res.Data, "distribution", "发行版")
	case "get_disk_usage":
		total, _ := res.Data["total"].(uint64)
		used, _ := res.Data["used"].(uint64)
		free, _ := res.Data["free"].(uint64)
		percent, _ := res.Data["percent"].(float64)
		fmt.Fprintf(&b, "\n总容量: %s，已用: %s（%.1f%%），可用: %s",
			humanBytes(total), humanBytes(used), percent, humanBytes(free))
	case "get_process_list":
		if header, ok := res.Data["header"].(string); ok && header != "" {
			b.WriteString("\n")
			b.WriteString(header)
		}
		if processes, ok := res.Data["processes"].([]string); ok {
			for _, line := range processes {
				b.WriteString("\n")
				b.WriteString(line)
			}
		}
	case "search_package":
		if packages, ok := res.Data["packages"].([]string); ok {
			for _, line := range packages {
				b.WriteString("\n- ")
				b.WriteString(line)
			}
		}
	case "get_current_time":
		writeKV(&b, res.Data, "datetime", "时间")
	}

	return b.String()
}

func writeKV(b *strings.Builder, data map[string]any, key, label string) {
	if v, ok := data[key].(string); ok && v != "" {
		fmt.Fprintf(b, "\n%s: %s", label, v)
	}
}

// formatPlan renders a plan as a numbered list, one step per line.
func formatPlan(plan planner.Plan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 任务规划: %s", plan.Goal)
	for _, step := range plan.Steps {
		fmt.Fprintf(&b, "\n%d. %s", step.Step, step.Description)
		if step.EstimatedTime != "" {
			fmt.Fprintf(&b, "（预计 %s）", step.EstimatedTime)
		}
	}
	return b.String()
}

// formatRecentTurns renders a "recent" memory query. An empty session
// reports zero records rather than erroring.
func formatRecentTurns(turns []memory.Turn) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🧠 最近的对话记录（%d 条）", len(turns))
	writeTurns(&b, turns)
	return b.String()
}

// formatSearchTurns renders a keyword memory search, newest-first as
// returned by the store.
func formatSearchTurns(keyword string, turns []memory.Turn) string {
	if len(turns) == 0 {
		return fmt.Sprintf("🧠 没有找到与「%s」相关的记录（0 条）", keyword)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🧠 与「%s」相关的记录（%d 条）", keyword, len(turns))
	writeTurns(&b, turns)
	return b.String()
}

func writeTurns(b *strings.Builder, turns []memory.Turn) {
	for _, turn := range turns {
		label := "用户"
		if turn.Role == "assistant" {
			label = "助手"
		}
		fmt.Fprintf(b, "\n[%s] %s", label, truncateRunes(turn.Content, 120))
	}
}

// humanBytes renders a byte count with a binary unit.
func humanBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…（内容已截断）"
}
