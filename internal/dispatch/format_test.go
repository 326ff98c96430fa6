package dispatch

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"testing"

	"github.com/okdesk/deskagent/internal/executor"
	"github.com/okdesk/deskagent/internal/memory"
	"github.com/okdesk/deskagent/internal/planner"
)

func TestFormatExecution_ReadFileTruncated(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("长", maxInlineContent+50)
	out := formatExecution("read_file", executor.Result{
		Success: true,
		Message: "已读取文件: /tmp/a.txt",
		Data:    map[string]any{"content": long},
	})

	if !strings.Contains(out, "内容已截断") {
		t.Error("oversized content not truncated")
	}
	if strings.Contains(out, long) {
		t.Error("full content rendered")
	}
}

func TestFormatExecution_DiskUsage(t *testing.T) {
	t.Parallel()

	out := formatExecution("get_disk_usage", executor.Result{
		Success: true,
		Message: "磁盘使用情况: /",
		Data: map[string]any{
			"total":   uint64(512 * 1024 * 1024 * 1024),
			"used":    uint64(128 * 1024 * 1024 * 1024),
			"free":    uint64(384 * 1024 * 1024 * 1024),
			"percent": 25.0,
		},
	})

	if !strings.Contains(out, "512.0 GB") || !strings.Contains(out, "25.0%") {
		t.Errorf("out = %q", out)
	}
}

// TestFormatExecution_DiskUsageLive feeds a real executor result through
// the formatter, so a shape drift between the two packages fails here
// instead of rendering zeros in replies.
func TestFormatExecution_DiskUsageLive(t *testing.T) {
	t.Parallel()

	exec := executor.NewWithHome(t.TempDir(), nil)
	res := exec.Execute(context.Background(), "get_disk_usage", map[string]any{"path": "/"})
	if !res.Success {
		t.Fatalf("get_disk_usage failed: %s", res.Message)
	}

	percent, ok := res.Data["percent"].(float64)
	if !ok {
		t.Fatalf("percent = %T, want float64", res.Data["percent"])
	}

	out := formatExecution("get_disk_usage", res)
	want := fmt.Sprintf("（%.1f%%）", percent)
	if !strings.Contains(out, want) {
		t.Errorf("out = %q, want rendered percent %q", out, want)
	}
}

func TestFormatExecution_SystemInfoLive(t *testing.T) {
	t.Parallel()

	exec := executor.NewWithHome(t.TempDir(), nil)
	res := exec.Execute(context.Background(), "get_system_info", nil)
	if !res.Success {
		t.Fatalf("get_system_info failed: %s", res.Message)
	}

	out := formatExecution("get_system_info", res)
	if !strings.Contains(out, "操作系统: "+runtime.GOOS) {
		t.Errorf("out = %q, want OS line", out)
	}
	if dist, _ := res.Data["distribution"].(string); dist != "" {
		if !strings.Contains(out, "发行版: "+dist) {
			t.Errorf("out = %q, want distribution line %q", out, dist)
		}
	}
}

func TestFormatPlan(t *testing.T) {
	t.Parallel()

	out := formatPlan(planner.Plan{
		Goal: "学习Python",
		Steps: []planner.Step{
			{Step: 1, Description: "安装 Python", EstimatedTime: "10分钟"},
			{Step: 2, Description: "学习语法"},
		},
	})

	if !strings.Contains(out, "1. 安装 Python（预计 10分钟）") {
		t.Errorf("out = %q", out)
	}
	if !strings.Contains(out, "2. 学习语法") {
		t.Errorf("out = %q", out)
	}
}

func TestFormatSearchTurns_NoMatch(t *testing.T) {
	t.Parallel()

	out := formatSearchTurns("Rust", nil)
	if !strings.Contains(out, "0 条") || !strings.Contains(out, "Rust") {
		t.Errorf("out = %q", out)
	}
}

func TestFormatRecentTurns_RoleLabels(t *testing.T) {
	t.Parallel()

	out := formatRecentTurns([]memory.Turn{
		{Role: "user", Content: "你好"},
		{Role: "assistant", Content: "你好！"},
	})

	if !strings.Contains(out, "[用户] 你好") || !strings.Contains(out, "[助手] 你好！") {
		t.Errorf("out = %q", out)
	}
	if !strings.Contains(out, "2 条") {
		t.Errorf("out = %q", out)
	}
}

func TestHumanBytes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n    uint64
		want string
	}{
		{500, "500 B"},
		{2048, "2.0 KB"},
		{3 * 1024 * 1024, "3.0 MB"},
	}
	for _, tt := range tests {
		if got := humanBytes(tt.n); got != tt.want {
			t.Errorf("humanBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
