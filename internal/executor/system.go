package executor

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"os"
	"runtime"
	"strings"
	"syscall"
	"time"
)

// browserCommands are the URL openers tried in order.
var browserCommands = []string{"xdg-open", "firefox", "google-chrome"}

// searchEngines maps engine names to query URL templates.
var searchEngines = map[string]string{
	"baidu":  "https://www.baidu.com/s?wd=%s",
	"google": "https://www.google.com/search?q=%s",
	"bing":   "https://www.bing.com/search?q=%s",
}

func (e *Executor) openURL(_ context.Context, params map[string]any) Result {
	target := stringParam(params, "url")
	if target == "" {
		return failure("缺少 URL")
	}
	if !strings.Contains(target, "://") {
		target = "https://" + target
	}

	if err := e.openInBrowser(target); err != nil {
		return failure("打开网页失败: %v", err)
	}
	return Result{Success: true, Message: "已打开网页: " + target, Data: map[string]any{"url": target}}
}

func (e *Executor) searchWeb(_ context.Context, params map[string]any) Result {
	query := stringParam(params, "query")
	if query == "" {
		return failure("缺少搜索关键词")
	}
	engine := stringParam(params, "engine")
	template, ok := searchEngines[engine]
	if !ok {
		engine = "baidu"
		template = searchEngines[engine]
	}

	target := fmt.Sprintf(template, url.QueryEscape(query))
	if err := e.openInBrowser(target); err != nil {
		return failure("搜索失败: %v", err)
	}
	return Result{
		Success: true,
		Message: fmt.Sprintf("已搜索: %s（使用 %s）", query, engine),
		Data:    map[string]any{"url": target},
	}
}

func (e *Executor) openInBrowser(target string) error {
	var lastErr error
	for _, cmd := range browserCommands {
		if _, err := e.lookPath(cmd); err != nil {
			lastErr = err
			continue
		}
		if err := e.startDetached(cmd, target); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("没有可用的浏览器")
	}
	return lastErr
}

func (e *Executor) systemInfo(_ context.Context, _ map[string]any) Result {
	hostname, _ := os.Hostname()
	return Result{
		Success: true,
		Message: "系统信息",
		Data: map[string]any{
			"system":       runtime.GOOS,
			"architecture": runtime.GOARCH,
			"cpus":         runtime.NumCPU(),
			"go_version":   runtime.Version(),
			"hostname":     hostname,
			"distribution": readOSRelease(),
		},
	}
}

// readOSRelease extracts PRETTY_NAME from /etc/os-release, best-effort.
func readOSRelease() string {
	raw, err := os.ReadFile("/etc/os-release")
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(raw), "\n") {
		if value, ok := strings.CutPrefix(line, "PRETTY_NAME="); ok {
			return strings.Trim(value, `"`)
		}
	}
	return ""
}

func (e *Executor) diskUsage(_ context.Context, params map[string]any) Result {
	path := stringParam(params, "path")
	if path == "" {
		path = "/"
	}

	var st syscall.Statfs_t
	if err := syscall.Statfs(path, &st); err != nil {
		return failure("获取磁盘信息失败: %v", err)
	}

	total := st.Blocks * uint64(st.Bsize)
	free := st.Bavail * uint64(st.Bsize)
	used := total - st.Bfree*uint64(st.Bsize)

	var percent float64
	if total > 0 {
		percent = math.Round(float64(used)/float64(total)*100*100) / 100
	}

	return Result{
		Success: true,
		Message: "磁盘使用情况: " + path,
		Data: map[string]any{
			"path":    path,
			"total":   total,
			"used":    used,
			"free":    free,
			"percent": percent,
		},
	}
}

func (e *Executor) processList(ctx context.Context, _ map[string]any) Result {
	out, err := e.runCommand(ctx, "ps", "-eo", "pid,comm,pcpu,pmem", "--sort=-pcpu")
	if err != nil {
		return failure("获取进程列表失败: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	const maxProcesses = 20
	header := ""
	if len(lines) > 0 {
		header = strings.TrimSpace(lines[0])
		lines = lines[1:]
	}
	if len(lines) > maxProcesses {
		lines = lines[:maxProcesses]
	}
	processes := make([]string, 0, len(lines))
	for _, line := range lines {
		processes = append(processes, strings.TrimSpace(line))
	}

	return Result{
		Success: true,
		Message: fmt.Sprintf("进程列表（前 %d 项，按 CPU 排序）", len(processes)),
		Data:    map[string]any{"header": header, "processes": processes},
	}
}

func (e *Executor) searchPackage(ctx context.Context, params map[string]any) Result {
	query := stringParam(params, "query")
	if query == "" {
		return failure("缺少包名关键词")
	}

	out, err := e.runCommand(ctx, "apt-cache", "search", query)
	if err != nil {
		return failure("软件包搜索失败: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	const maxPackages = 15
	packages := make([]string, 0, maxPackages)
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		packages = append(packages, line)
		if len(packages) == maxPackages {
			break
		}
	}

	return Result{
		Success: true,
		Message: fmt.Sprintf("软件包搜索: %s（%d 个结果）", query, len(packages)),
		Data:    map[string]any{"packages": packages},
	}
}

func (e *Executor) currentTime(_ context.Context, _ map[string]any) Result {
	now := time.Now()
	return Result{
		Success: true,
		Message: "当前时间",
		Data: map[string]any{
			"timestamp": now.Unix(),
			"datetime":  now.Format("2006-01-02 15:04:05"),
			"date":      now.Format("2006-01-02"),
			"time":      now.Format("15:04:05"),
		},
	}
}
