package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// newTestExecutor returns an executor rooted at a temp home whose
// launch hooks record instead of spawning.
func newTestExecutor(t *testing.T, installed ...string) (*Executor, *[]string) {
	t.Helper()

	var launched []string
	e := NewWithHome(t.TempDir(), nil)
	e.lookPath = func(name string) (string, error) {
		for _, cmd := range installed {
			if cmd == name {
				return "/usr/bin/" + name, nil
			}
		}
		return "", errors.New("not found")
	}
	e.startDetached = func(name string, args ...string) error {
		launched = append(launched, name)
		return nil
	}
	return e, &launched
}

func TestExecute_UnknownAction(t *testing.T) {
	t.Parallel()

	e, _ := newTestExecutor(t)
	res := e.Execute(context.Background(), "fly_to_moon", nil)
	if res.Success {
		t.Fatal("unknown action must fail")
	}
	if !strings.Contains(res.Message, "不支持的操作") {
		t.Errorf("Message = %q", res.Message)
	}
	actions, ok := res.Data["available_actions"].([]string)
	if !ok || len(actions) == 0 {
		t.Errorf("available_actions = %v", res.Data["available_actions"])
	}
}

func TestExecute_OpenApp(t *testing.T) {
	t.Parallel()

	t.Run("first candidate missing, second used", func(t *testing.T) {
		t.Parallel()

		e, launched := newTestExecutor(t, "kcalc")
		res := e.Execute(context.Background(), "open_app", map[string]any{"name": "计算器"})
		if !res.Success {
			t.Fatalf("open_app failed: %s", res.Message)
		}
		if res.Data["command"] != "kcalc" {
			t.Errorf("command = %v, want kcalc", res.Data["command"])
		}
		if len(*launched) != 1 || (*launched)[0] != "kcalc" {
			t.Errorf("launched = %v", *launched)
		}
		if !strings.Contains(res.Message, "计算器") {
			t.Errorf("Message = %q, should name the app", res.Message)
		}
	})

	t.Run("nothing installed", func(t *testing.T) {
		t.Parallel()

		e, _ := newTestExecutor(t)
		res := e.Execute(context.Background(), "open_app", map[string]any{"name": "计算器"})
		if res.Success {
			t.Fatal("expected failure")
		}
		tried, ok := res.Data["tried_commands"].([]string)
		if !ok || len(tried) != 3 {
			t.Errorf("tried_commands = %v", res.Data["tried_commands"])
		}
	})

	t.Run("untabled name tried literally", func(t *testing.T) {
		t.Parallel()

		e, launched := newTestExecutor(t, "obscure-tool")
		res := e.Execute(context.Background(), "open_app", map[string]any{"name": "obscure-tool"})
		if !res.Success {
			t.Fatalf("open_app failed: %s", res.Message)
		}
		if len(*launched) != 1 || (*launched)[0] != "obscure-tool" {
			t.Errorf("launched = %v", *launched)
		}
	})

	t.Run("missing name", func(t *testing.T) {
		t.Parallel()

		e, _ := newTestExecutor(t)
		if res := e.Execute(context.Background(), "open_app", nil); res.Success {
			t.Fatal("expected failure for missing name")
		}
	})
}

func TestExecute_FileLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e, _ := newTestExecutor(t)
	home := e.norm.Home()

	res := e.Execute(ctx, "create_file", map[string]any{"path": "docs/note.txt", "content": "第一行"})
	if !res.Success {
		t.Fatalf("create_file: %s", res.Message)
	}
	created := res.Data["path"].(string)
	if created != filepath.Join(home, "docs/note.txt") {
		t.Errorf("path = %q", created)
	}

	res = e.Execute(ctx, "read_file", map[string]any{"path": "docs/note.txt"})
	if !res.Success {
		t.Fatalf("read_file: %s", res.Message)
	}
	if res.Data["content"] != "第一行" {
		t.Errorf("content = %v", res.Data["content"])
	}

	res = e.Execute(ctx, "write_file", map[string]any{"path": "docs/note.txt", "content": "\n第二行", "mode": "a"})
	if !res.Success {
		t.Fatalf("write_file append: %s", res.Message)
	}
	raw, err := os.ReadFile(created)
	if err != nil {
		t.Fatalf("readback: %v", err)
	}
	if string(raw) != "第一行\n第二行" {
		t.Errorf("file = %q", raw)
	}

	res = e.Execute(ctx, "copy_file", map[string]any{"source": "docs/note.txt", "destination": "docs/copy.txt"})
	if !res.Success {
		t.Fatalf("copy_file: %s", res.Message)
	}

	res = e.Execute(ctx, "move_file", map[string]any{"source": "docs/copy.txt", "destination": "docs/moved.txt"})
	if !res.Success {
		t.Fatalf("move_file: %s", res.Message)
	}
	if _, err := os.Stat(filepath.Join(home, "docs/copy.txt")); !os.IsNotExist(err) {
		t.Error("source still present after move")
	}

	res = e.Execute(ctx, "delete_file", map[string]any{"path": "docs/moved.txt"})
	if !res.Success {
		t.Fatalf("delete_file: %s", res.Message)
	}

	res = e.Execute(ctx, "delete_file", map[string]any{"path": "docs/moved.txt"})
	if res.Success {
		t.Fatal("deleting a missing file must fail")
	}
}

func TestExecute_ReadMissingFile(t *testing.T) {
	t.Parallel()

	e, _ := newTestExecutor(t)
	res := e.Execute(context.Background(), "read_file", map[string]any{"path": "nope.txt"})
	if res.Success {
		t.Fatal("expected failure")
	}
}

func TestExecute_SystemQueries(t *testing.T) {
	t.Parallel()

	e, _ := newTestExecutor(t)
	e.runCommand = func(_ context.Context, name string, args ...string) ([]byte, error) {
		switch name {
		case "ps":
			return []byte("  PID COMMAND %CPU %MEM\n    1 systemd  0.1  0.2\n   42 deskagent 1.0 0.5\n"), nil
		case "apt-cache":
			return []byte("vim - Vi IMproved\nvim-tiny - compact version\n"), nil
		}
		return nil, fmt.Errorf("unexpected command %s", name)
	}

	ctx := context.Background()

	res := e.Execute(ctx, "get_system_info", nil)
	if !res.Success {
		t.Fatalf("get_system_info: %s", res.Message)
	}
	if res.Data["system"] == "" || res.Data["architecture"] == "" {
		t.Errorf("Data = %v", res.Data)
	}

	res = e.Execute(ctx, "get_disk_usage", map[string]any{"path": "/"})
	if !res.Success {
		t.Fatalf("get_disk_usage: %s", res.Message)
	}
	if res.Data["total"].(uint64) == 0 {
		t.Error("total = 0")
	}

	res = e.Execute(ctx, "get_process_list", nil)
	if !res.Success {
		t.Fatalf("get_process_list: %s", res.Message)
	}
	procs := res.Data["processes"].([]string)
	if len(procs) != 2 {
		t.Errorf("processes = %v", procs)
	}

	res = e.Execute(ctx, "search_package", map[string]any{"query": "vim"})
	if !res.Success {
		t.Fatalf("search_package: %s", res.Message)
	}
	pkgs := res.Data["packages"].([]string)
	if len(pkgs) != 2 {
		t.Errorf("packages = %v", pkgs)
	}

	res = e.Execute(ctx, "get_current_time", nil)
	if !res.Success {
		t.Fatalf("get_current_time: %s", res.Message)
	}
	if res.Data["datetime"] == "" {
		t.Error("datetime empty")
	}
}

func TestExecute_WebActions(t *testing.T) {
	t.Parallel()

	e, launched := newTestExecutor(t, "xdg-open")
	ctx := context.Background()

	res := e.Execute(ctx, "open_url", map[string]any{"url": "openkylin.top"})
	if !res.Success {
		t.Fatalf("open_url: %s", res.Message)
	}
	if res.Data["url"] != "https://openkylin.top" {
		t.Errorf("url = %v, want scheme added", res.Data["url"])
	}

	res = e.Execute(ctx, "search_web", map[string]any{"query": "openKylin 教程"})
	if !res.Success {
		t.Fatalf("search_web: %s", res.Message)
	}
	if !strings.Contains(res.Data["url"].(string), "baidu.com") {
		t.Errorf("default engine should be baidu, got %v", res.Data["url"])
	}
	if !strings.Contains(res.Data["url"].(string), "%E6%95%99%E7%A8%8B") {
		t.Errorf("query not escaped: %v", res.Data["url"])
	}

	if len(*launched) != 2 {
		t.Errorf("launched = %v", *launched)
	}

	if res := e.Execute(ctx, "search_web", nil); res.Success {
		t.Fatal("search_web without query must fail")
	}
}

func TestExecute_PanicRecovered(t *testing.T) {
	t.Parallel()

	e, _ := newTestExecutor(t)
	e.actions["explode"] = func(context.Context, map[string]any) Result {
		panic("boom")
	}

	res := e.Execute(context.Background(), "explode", nil)
	if res.Success {
		t.Fatal("panicking action must report failure")
	}
	if !strings.Contains(res.Message, "boom") {
		t.Errorf("Message = %q", res.Message)
	}
}
