package executor

import (
	"context"
	"strings"
)

// appCommand is one launch candidate for a display name.
type appCommand struct {
	cmd  string
	args []string
}

// appCommands maps user-facing application names (Chinese and English
// synonyms) to launch candidates tried in order. Carried over from the
// original openKylin assistant's table.
var appCommands = map[string][]appCommand{
	// Browsers.
	"firefox":    {{"firefox", []string{"--new-window"}}},
	"火狐":         {{"firefox", []string{"--new-window"}}},
	"浏览器":        {{"firefox", []string{"--new-window"}}, {"google-chrome", []string{"--new-window"}}},
	"chrome":     {{"google-chrome", []string{"--new-window"}}, {"chromium-browser", []string{"--new-window"}}},
	"chromium":   {{"chromium-browser", []string{"--new-window"}}},
	"谷歌浏览器":      {{"google-chrome", []string{"--new-window"}}},

	// File managers.
	"文件管理器":   {{"nautilus", []string{"--new-window"}}, {"peony", nil}, {"dolphin", []string{"--new-window"}}},
	"文件":      {{"nautilus", []string{"--new-window"}}, {"peony", nil}},
	"peony":   {{"peony", nil}},
	"dolphin": {{"dolphin", []string{"--new-window"}}},

	// Terminals.
	"终端": {
		{"mate-terminal", nil},
		{"gnome-terminal", nil},
		{"xfce4-terminal", nil},
		{"konsole", nil},
		{"xterm", nil},
		{"uxterm", nil},
	},
	"konsole":  {{"konsole", nil}},
	"terminal": {{"mate-terminal", nil}, {"gnome-terminal", nil}, {"xterm", nil}},

	// Text editors.
	"文本编辑器": {{"gedit", nil}, {"kate", nil}, {"pluma", nil}},
	"gedit": {{"gedit", nil}},
	"kate":  {{"kate", nil}},
	"vim":   {{"vim", nil}},
	"nano":  {{"nano", nil}},
	"记事本":   {{"gedit", nil}, {"pluma", nil}},

	// Office.
	"wps":         {{"wps", nil}},
	"libreoffice": {{"libreoffice", nil}},
	"writer":      {{"libreoffice", []string{"--writer"}}},
	"calc":        {{"libreoffice", []string{"--calc"}}},
	"文字处理":        {{"libreoffice", []string{"--writer"}}},
	"表格":          {{"libreoffice", []string{"--calc"}}},

	// System tools.
	"计算器":        {{"gnome-calculator", nil}, {"kcalc", nil}, {"mate-calc", nil}},
	"calculator": {{"gnome-calculator", nil}, {"kcalc", nil}},
	"系统监视器":      {{"gnome-system-monitor", nil}, {"mate-system-monitor", nil}},
	"任务管理器":      {{"gnome-system-monitor", nil}, {"mate-system-monitor", nil}},
	"设置":         {{"gnome-control-center", nil}, {"mate-control-center", nil}},
	"控制中心":       {{"gnome-control-center", nil}, {"ukui-control-center", nil}},

	// Multimedia.
	"音乐": {{"rhythmbox", nil}},
	"视频": {{"totem", nil}, {"vlc", nil}},
	"vlc": {{"vlc", nil}},
	"截图": {{"gnome-screenshot", nil}, {"mate-screenshot", nil}},

	// openKylin specific.
	"应用商店":     {{"kylin-software-center", nil}},
	"软件中心":     {{"kylin-software-center", nil}},
	"ukui控制面板": {{"ukui-control-center", nil}},
}

// openApp launches the first candidate command found on PATH for the
// requested display name. Names outside the table are tried as literal
// commands.
func (e *Executor) openApp(_ context.Context, params map[string]any) Result {
	name := stringParam(params, "name")
	if name == "" {
		return failure("缺少应用程序名称")
	}

	candidates, ok := appCommands[strings.ToLower(name)]
	if !ok {
		candidates = []appCommand{{cmd: name}}
	}

	tried := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		tried = append(tried, candidate.cmd)
		if _, err := e.lookPath(candidate.cmd); err != nil {
			continue
		}
		if err := e.startDetached(candidate.cmd, candidate.args...); err != nil {
			e.logger.Warn("executor: launch failed, trying next candidate",
				"app", name,
				"command", candidate.cmd,
				"error", err,
			)
			continue
		}
		return Result{
			Success: true,
			Message: "已打开应用: " + name + " (使用 " + candidate.cmd + ")",
			Data:    map[string]any{"app": name, "command": candidate.cmd},
		}
	}

	return Result{
		Success: false,
		Message: "无法打开应用 " + name + "：命令不存在或未安装",
		Data:    map[string]any{"tried_commands": tried},
	}
}
