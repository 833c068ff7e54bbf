package domain

// Role constants for message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Block type discriminators for ContentBlock.
const (
	BlockText       = "text"
	BlockImage      = "image"
	BlockToolUse    = "tool_use"
	BlockToolResult = "tool_result"
)

// Message is a provider-agnostic conversation turn: a role plus an ordered
// list of content blocks. Mapping to a concrete provider's wire format is
// the responsibility of each backend adapter and must be lossless for the
// block kinds that adapter supports.
type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// ContentBlock is a tagged variant over text, image, tool_use, and
// tool_result blocks. Type selects which payload fields are meaningful.
type ContentBlock struct {
	Type string `json:"type"`

	// BlockText
	Text string `json:"text,omitempty"`

	// BlockImage
	Data      string `json:"data,omitempty"`
	MediaType string `json:"media_type,omitempty"`

	// BlockToolUse
	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`

	// BlockToolResult. ToolUseID should reference a previously emitted
	// tool_use ID in the conversation; that is caller discipline, not a
	// structural invariant.
	ToolUseID string `json:"tool_use_id,omitempty"`
	Result    string `json:"result,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

// ToolCall is the payload of a tool_use block as seen by extractors.
type ToolCall struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// ImageSource holds one image attachment for NewImageMessage.
type ImageSource struct {
	Data      string `json:"data"`
	MediaType string `json:"media_type"`
}

// NewTextMessage builds a message with a single text block.
func NewTextMessage(role, text string) Message {
	return Message{
		Role:    role,
		Content: []ContentBlock{{Type: BlockText, Text: text}},
	}
}

// NewSystemMessage builds a system message with a single text block.
func NewSystemMessage(text string) Message {
	return NewTextMessage(RoleSystem, text)
}

// NewImageMessage builds a message with a leading text block followed by
// one image block per source, in order.
func NewImageMessage(role, text string, images []ImageSource) Message {
	content := make([]ContentBlock, 0, len(images)+1)
	content = append(content, ContentBlock{Type: BlockText, Text: text})
	for _, img := range images {
		content = append(content, ContentBlock{
			Type:      BlockImage,
			Data:      img.Data,
			MediaType: img.MediaType,
		})
	}
	return Message{Role: role, Content: content}
}

// NewToolUseMessage builds an assistant message carrying tool_use blocks,
// one per call, preserving order.
func NewToolUseMessage(calls []ToolCall) Message {
	content := make([]ContentBlock, 0, len(calls))
	for _, call := range calls {
		content = append(content, ContentBlock{
			Type:  BlockToolUse,
			ID:    call.ID,
			Name:  call.Name,
			Input: call.Input,
		})
	}
	return Message{Role: RoleAssistant, Content: content}
}

// NewToolResultMessage builds a tool message answering a prior tool_use.
func NewToolResultMessage(toolUseID, result string, isError bool) Message {
	return Message{
		Role: RoleTool,
		Content: []ContentBlock{{
			Type:      BlockToolResult,
			ToolUseID: toolUseID,
			Result:    result,
			IsError:   isError,
		}},
	}
}

// ExtractText concatenates the contents of all text blocks in order.
// Non-text blocks are skipped; nothing is synthesized.
func ExtractText(msg Message) string {
	var out string
	for _, block := range msg.Content {
		if block.Type == BlockText {
			out += block.Text
		}
	}
	return out
}

// HasToolUse reports whether any content block is a tool_use block.
func HasToolUse(msg Message) bool {
	for _, block := range msg.Content {
		if block.Type == BlockToolUse {
			return true
		}
	}
	return false
}

// ExtractToolCalls returns the ordered tool calls from tool_use blocks.
func ExtractToolCalls(msg Message) []ToolCall {
	var calls []ToolCall
	for _, block := range msg.Content {
		if block.Type == BlockToolUse {
			calls = append(calls, ToolCall{
				ID:    block.ID,
				Name:  block.Name,
				Input: block.Input,
			})
		}
	}
	return calls
}
