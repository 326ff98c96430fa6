package executor

import (
	"context"
	"io"
	"os"
	"path/filepath"
)

// maxReadSize bounds read_file so a stray request cannot pull an entire
// disk image into the reply path.
const maxReadSize = 1 << 20

func (e *Executor) createFile(_ context.Context, params map[string]any) Result {
	logical := stringParam(params, "path")
	if logical == "" {
		return failure("缺少文件路径")
	}
	content := stringParam(params, "content")

	path := e.norm.Normalize(logical)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return failure("创建文件失败: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return failure("创建文件失败: %v", err)
	}
	return Result{
		Success: true,
		Message: "已创建文件: " + path,
		Data:    map[string]any{"path": path},
	}
}

func (e *Executor) deleteFile(_ context.Context, params map[string]any) Result {
	logical := stringParam(params, "path")
	if logical == "" {
		return failure("缺少文件路径")
	}

	path := e.norm.Normalize(logical)
	info, err := os.Stat(path)
	if err != nil {
		return failure("文件或目录不存在")
	}
	if info.IsDir() {
		if err := os.RemoveAll(path); err != nil {
			return failure("删除失败: %v", err)
		}
		return Result{Success: true, Message: "已删除目录: " + path}
	}
	if err := os.Remove(path); err != nil {
		return failure("删除失败: %v", err)
	}
	return Result{Success: true, Message: "已删除文件: " + path}
}

func (e *Executor) moveFile(_ context.Context, params map[string]any) Result {
	source := stringParam(params, "source")
	destination := stringParam(params, "destination")
	if source == "" || destination == "" {
		return failure("缺少源路径或目标路径")
	}

	src := e.norm.Normalize(source)
	dst := e.norm.Normalize(destination)
	if err := os.Rename(src, dst); err != nil {
		return failure("移动失败: %v", err)
	}
	return Result{Success: true, Message: "已移动: " + src + " -> " + dst}
}

func (e *Executor) copyFile(_ context.Context, params map[string]any) Result {
	source := stringParam(params, "source")
	destination := stringParam(params, "destination")
	if source == "" || destination == "" {
		return failure("缺少源路径或目标路径")
	}

	src := e.norm.Normalize(source)
	dst := e.norm.Normalize(destination)
	if err := copyPath(src, dst); err != nil {
		return failure("复制失败: %v", err)
	}
	return Result{Success: true, Message: "已复制: " + src + " -> " + dst}
}

func (e *Executor) readFile(_ context.Context, params map[string]any) Result {
	logical := stringParam(params, "path")
	if logical == "" {
		return failure("缺少文件路径")
	}

	path := e.norm.Normalize(logical)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return failure("文件不存在")
	}
	if info.Size() > maxReadSize {
		return failure("文件过大（超过 %d 字节）", maxReadSize)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return failure("读取失败: %v", err)
	}
	return Result{
		Success: true,
		Message: "已读取文件: " + path,
		Data:    map[string]any{"content": string(content)},
	}
}

func (e *Executor) writeFile(_ context.Context, params map[string]any) Result {
	logical := stringParam(params, "path")
	if logical == "" {
		return failure("缺少文件路径")
	}
	content := stringParam(params, "content")
	mode := stringParam(params, "mode")

	path := e.norm.Normalize(logical)

	if mode == "a" {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return failure("写入失败: %v", err)
		}
		defer func() { _ = f.Close() }()
		if _, err := f.WriteString(content); err != nil {
			return failure("写入失败: %v", err)
		}
	} else {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return failure("写入失败: %v", err)
		}
	}
	return Result{Success: true, Message: "已写入文件: " + path}
}

// copyPath copies a file or directory tree.
func copyPath(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return copyRegular(src, dst, info.Mode())
	}

	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return copyRegular(path, target, info.Mode())
	})
}

func copyRegular(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode.Perm())
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
