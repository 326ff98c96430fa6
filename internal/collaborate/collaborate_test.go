package collaborate_test

import (
	"context"
	"strings"
	"testing"

	"github.com/okdesk/deskagent/internal/collaborate"
)

func TestCommunicate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		sender   string
		receiver string
		task     string
		accepted bool
	}{
		{"planner accepts", "chat", "planner", "制定学习计划", true},
		{"executor accepts", "user", "executor", "打开浏览器", true},
		{"receiver case folded", "user", "Memory", "查一下昨天的记录", true},
		{"unknown receiver", "user", "scheduler", "做点什么", false},
		{"blank task", "user", "planner", "   ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := collaborate.New(nil)
			res := r.Communicate(context.Background(), tt.sender, tt.receiver, tt.task)

			if res.Accepted != tt.accepted {
				t.Fatalf("Accepted = %v, want %v (message: %s)", res.Accepted, tt.accepted, res.Message)
			}
			if res.Message == "" {
				t.Error("Message must never be empty")
			}
			if res.RelayAt.IsZero() {
				t.Error("RelayAt not stamped")
			}
		})
	}
}

func TestCommunicate_DefaultsSender(t *testing.T) {
	t.Parallel()

	res := collaborate.New(nil).Communicate(context.Background(), "", "chat", "你好")
	if res.Sender != "user" {
		t.Errorf("Sender = %q, want user", res.Sender)
	}
	if !res.Accepted {
		t.Fatalf("relay rejected: %s", res.Message)
	}
	if !strings.Contains(res.Message, "你好") {
		t.Errorf("Message should echo the task, got %q", res.Message)
	}
}

func TestCommunicate_UnknownReceiverListsRoles(t *testing.T) {
	t.Parallel()

	res := collaborate.New(nil).Communicate(context.Background(), "user", "nobody", "任务")
	for _, role := range collaborate.KnownRoles() {
		if !strings.Contains(res.Message, role) {
			t.Errorf("rejection should list role %q, got %q", role, res.Message)
		}
	}
}
