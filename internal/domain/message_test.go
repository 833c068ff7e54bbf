package domain

import (
	"reflect"
	"testing"
)

func TestNewTextMessageAndExtractText(t *testing.T) {
	msg := NewTextMessage(RoleUser, "hi")

	if msg.Role != RoleUser {
		t.Errorf("Role = %q, want %q", msg.Role, RoleUser)
	}
	if got := ExtractText(msg); got != "hi" {
		t.Errorf("ExtractText = %q, want %q", got, "hi")
	}
}

func TestExtractTextConcatenatesInOrder(t *testing.T) {
	msg := Message{
		Role: RoleAssistant,
		Content: []ContentBlock{
			{Type: BlockText, Text: "first "},
			{Type: BlockToolUse, ID: "c1", Name: "noop"},
			{Type: BlockText, Text: "second"},
		},
	}

	if got := ExtractText(msg); got != "first second" {
		t.Errorf("ExtractText = %q, want %q", got, "first second")
	}
}

func TestNewToolUseMessage(t *testing.T) {
	calls := []ToolCall{
		{ID: "c1", Name: "get_weather", Input: map[string]any{"city": "Tokyo"}},
	}
	msg := NewToolUseMessage(calls)

	if msg.Role != RoleAssistant {
		t.Errorf("Role = %q, want assistant", msg.Role)
	}
	if !HasToolUse(msg) {
		t.Error("HasToolUse = false, want true")
	}

	got := ExtractToolCalls(msg)
	if !reflect.DeepEqual(got, calls) {
		t.Errorf("ExtractToolCalls = %+v, want %+v", got, calls)
	}
}

func TestExtractToolCallsPreservesOrder(t *testing.T) {
	msg := NewToolUseMessage([]ToolCall{
		{ID: "c1", Name: "first"},
		{ID: "c2", Name: "second"},
		{ID: "c3", Name: "third"},
	})

	calls := ExtractToolCalls(msg)
	if len(calls) != 3 {
		t.Fatalf("len = %d, want 3", len(calls))
	}
	for i, want := range []string{"c1", "c2", "c3"} {
		if calls[i].ID != want {
			t.Errorf("calls[%d].ID = %q, want %q", i, calls[i].ID, want)
		}
	}
}

func TestNewToolResultMessage(t *testing.T) {
	msg := NewToolResultMessage("c1", "42 degrees", false)

	if msg.Role != RoleTool {
		t.Errorf("Role = %q, want tool", msg.Role)
	}
	if len(msg.Content) != 1 {
		t.Fatalf("len(Content) = %d, want 1", len(msg.Content))
	}
	block := msg.Content[0]
	if block.Type != BlockToolResult || block.ToolUseID != "c1" || block.Result != "42 degrees" || block.IsError {
		t.Errorf("unexpected block: %+v", block)
	}
}

func TestNewImageMessage(t *testing.T) {
	msg := NewImageMessage(RoleUser, "what is this?", []ImageSource{
		{Data: "aGVsbG8=", MediaType: "image/png"},
	})

	if len(msg.Content) != 2 {
		t.Fatalf("len(Content) = %d, want 2", len(msg.Content))
	}
	if msg.Content[0].Type != BlockText || msg.Content[1].Type != BlockImage {
		t.Errorf("unexpected block order: %+v", msg.Content)
	}
	if msg.Content[1].MediaType != "image/png" {
		t.Errorf("MediaType = %q, want image/png", msg.Content[1].MediaType)
	}
}

func TestHasToolUseFalseForTextOnly(t *testing.T) {
	if HasToolUse(NewTextMessage(RoleUser, "plain")) {
		t.Error("HasToolUse = true for text-only message")
	}
}
