// Package collaborate relays tasks between named agent roles. It backs
// the /agent/collaborate endpoint: a sender hands a task to a receiver
// and gets a structured acknowledgment describing how the receiver
// accepted it.
package collaborate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Known agent roles a task may be addressed to.
const (
	RoleChat     = "chat"
	RolePlanner  = "planner"
	RoleExecutor = "executor"
	RoleMemory   = "memory"
)

// roleDescriptions carries the user-facing summary of what each
// receiver does with a relayed task.
var roleDescriptions = map[string]string{
	RoleChat:     "对话助手，负责自然语言回复",
	RolePlanner:  "规划助手，负责把任务拆解成执行步骤",
	RoleExecutor: "执行助手，负责桌面操作和系统查询",
	RoleMemory:   "记忆助手，负责保存和检索会话记录",
}

// Result is the structured outcome of a relay.
type Result struct {
	Accepted bool      `json:"accepted"`
	Sender   string    `json:"sender"`
	Receiver string    `json:"receiver"`
	Task     string    `json:"task"`
	Message  string    `json:"message"`
	RelayAt  time.Time `json:"relay_at"`
}

// Relay passes tasks between agents.
type Relay struct {
	logger *slog.Logger

	// now is injectable for deterministic tests.
	now func() time.Time
}

// New creates a Relay.
func New(logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{logger: logger, now: time.Now}
}

// KnownRoles returns the roles a task may be addressed to.
func KnownRoles() []string {
	return []string{RoleChat, RolePlanner, RoleExecutor, RoleMemory}
}

// Communicate relays task from sender to receiver. A blank task or an
// unknown receiver is rejected in the result; Communicate itself never
// fails.
func (r *Relay) Communicate(_ context.Context, sender, receiver, task string) Result {
	sender = strings.TrimSpace(sender)
	receiver = strings.TrimSpace(strings.ToLower(receiver))
	task = strings.TrimSpace(task)

	if sender == "" {
		sender = "user"
	}

	res := Result{
		Sender:   sender,
		Receiver: receiver,
		Task:     task,
		RelayAt:  r.now(),
	}

	if task == "" {
		res.Message = "缺少任务内容"
		return res
	}

	desc, ok := roleDescriptions[receiver]
	if !ok {
		res.Message = fmt.Sprintf("未知的接收方 %q，可用: %s",
			receiver, strings.Join(KnownRoles(), ", "))
		return res
	}

	res.Accepted = true
	res.Message = fmt.Sprintf("%s 已接收来自 %s 的任务：%s（%s）", receiver, sender, task, desc)
	r.logger.Info("collaborate: task relayed",
		"sender", sender, "receiver", receiver, "task", task)
	return res
}
