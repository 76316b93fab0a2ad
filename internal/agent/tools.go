package agent

import (
	"github.com/linq-team/bluebridge/internal/anthropic"
	"github.com/linq-team/bluebridge/internal/linq"
)

// Tool names as declared to the provider.
const (
	toolReaction  = "send_reaction"
	toolEffect    = "send_effect"
	toolRename    = "rename_group_chat"
	toolRemember  = "remember_user"
	toolImage     = "generate_image"
	toolGroupIcon = "set_group_chat_icon"
	toolWebSearch = "web_search"
)

// toolset builds the tool declarations for a turn. Rename and group-icon
// tools only exist in group chats; the effect tool is withheld when the
// service tier can't deliver effects.
func toolset(turn Turn) []anthropic.Tool {
	tools := []anthropic.Tool{reactionTool, rememberTool, imageTool, webSearchTool}
	if turn.Service.SupportsEffects() {
		tools = append(tools, effectTool)
	}
	if turn.IsGroup() {
		tools = append(tools, renameTool, groupIconTool)
	}
	return tools
}

var reactionTool = anthropic.Tool{
	Name:        toolReaction,
	Description: "Send an iMessage reaction to the user's message. Use standard tapbacks (love, like, laugh, etc.) OR any custom emoji. Custom emoji reactions are great for more expressive responses!",
	InputSchema: jsonSchema(map[string]propDef{
		"type":  {Type: "string", Desc: `The reaction type. Use "custom" to send any emoji.`, Required: true, Enum: []string{linq.ReactionLove, linq.ReactionLike, linq.ReactionDislike, linq.ReactionLaugh, linq.ReactionEmphasize, linq.ReactionQuestion, linq.ReactionCustom}},
		"emoji": {Type: "string", Desc: `Required when type is "custom". The emoji to react with (e.g., "🔥", "💯", "🎉", "👀", "🙌").`},
	}),
}

var effectTool = anthropic.Tool{
	Name:        toolEffect,
	Description: `Add an iMessage effect to your text response. ONLY use when the user explicitly asks for an effect (e.g. "send lasers", "show me fireworks"). You MUST also write a text message - the effect enhances your text, it does not replace it. Do NOT use for normal conversation.`,
	InputSchema: jsonSchema(map[string]propDef{
		"effect_type": {Type: "string", Desc: "Whether this is a full-screen effect or a bubble effect", Required: true, Enum: []string{linq.EffectScreen, linq.EffectBubble}},
		"effect":      {Type: "string", Desc: "The specific effect to use", Required: true, Enum: []string{"confetti", "fireworks", "lasers", "sparkles", "celebration", "hearts", "love", "balloons", "happy_birthday", "echo", "spotlight", "slam", "loud", "gentle", "invisible_ink"}},
	}),
}

var renameTool = anthropic.Tool{
	Name:        toolRename,
	Description: `Rename the current group chat. ONLY use when someone EXPLICITLY asks to rename/name the chat (e.g., "name this chat", "rename the group"). Do NOT use unprompted or just because conversation is interesting. You MUST also send a text response when renaming.`,
	InputSchema: jsonSchema(map[string]propDef{
		"name": {Type: "string", Desc: "The new name for the group chat", Required: true},
	}),
}

var rememberTool = anthropic.Tool{
	Name:        toolRemember,
	Description: "Save NEW information about someone. ONLY use when you learn genuinely NEW info. NEVER re-save info already shown in the system prompt. CRITICAL: You MUST write a text response too - this tool does NOT send any message, so if you use it without text, the user gets nothing!",
	InputSchema: jsonSchema(map[string]propDef{
		"handle": {Type: "string", Desc: "The phone number/handle of the person this info is about. In group chats, use this to save info about someone OTHER than the current sender. If omitted, saves to the current sender."},
		"name":   {Type: "string", Desc: `The person's name if they shared it (e.g., "Patrick", "Sarah"). Set this whenever you learn someone's name!`},
		"fact":   {Type: "string", Desc: `An interesting fact about them worth remembering (e.g., "Works at Google", "Has a dog named Max", "Loves hiking"). Keep facts concise.`},
	}),
}

var imageTool = anthropic.Tool{
	Name:        toolImage,
	Description: `Generate an image using DALL-E. Use when the user asks you to create, draw, generate, or make an image/picture/photo. Expand their request into a detailed prompt for better results. IMPORTANT: You MUST also write a brief text message (like "on it, making that corgi now" or "lemme draw that for u") - this message will be sent BEFORE the image starts generating so the user knows something is happening.`,
	InputSchema: jsonSchema(map[string]propDef{
		"prompt": {Type: "string", Desc: `Detailed description of the image to generate. Be specific about style, composition, lighting, etc. Example: "a fluffy corgi surfing on a wave, sunny day, action shot, ocean spray, photorealistic style"`, Required: true},
	}),
}

var groupIconTool = anthropic.Tool{
	Name:        toolGroupIcon,
	Description: "Set the group chat icon/photo using a DALL-E generated image. ONLY use in group chats when someone explicitly asks to set/change the group icon/photo/picture. Expand their request into a detailed prompt. IMPORTANT: You MUST also write a brief text message acknowledging the request.",
	InputSchema: jsonSchema(map[string]propDef{
		"prompt": {Type: "string", Desc: `Detailed description of the image to generate for the group icon. Keep it simple and iconic - good for a small circular avatar. Example: "a cute cartoon corgi face, simple illustration style, centered composition"`, Required: true},
	}),
}

// webSearchTool is a server-side tool; the provider executes it itself.
var webSearchTool = anthropic.Tool{
	Type: "web_search_20250305",
	Name: toolWebSearch,
}

type propDef struct {
	Type     string
	Desc     string
	Required bool
	Enum     []string
}

// jsonSchema builds a JSON Schema object for a tool's input.
func jsonSchema(props map[string]propDef) map[string]any {
	properties := make(map[string]any, len(props))
	var required []any

	for name, p := range props {
		prop := map[string]any{
			"type":        p.Type,
			"description": p.Desc,
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		properties[name] = prop
		if p.Required {
			required = append(required, name)
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
