package linq

// Service is the messaging tier a conversation rides on. iMessage has
// every feature; RCS drops screen/bubble effects; SMS is plain text.
type Service string

const (
	ServiceIMessage Service = "iMessage"
	ServiceRCS      Service = "RCS"
	ServiceSMS      Service = "SMS"
)

// SupportsEffects reports whether the service can deliver message effects.
func (s Service) SupportsEffects() bool {
	return s == ServiceIMessage
}

// Standard tapback kinds, plus "custom" for arbitrary emoji.
const (
	ReactionLove      = "love"
	ReactionLike      = "like"
	ReactionDislike   = "dislike"
	ReactionLaugh     = "laugh"
	ReactionEmphasize = "emphasize"
	ReactionQuestion  = "question"
	ReactionCustom    = "custom"
)

// Reaction is a tapback applied to a message. Emoji is set only when
// Kind is "custom".
type Reaction struct {
	Kind  string `json:"type"`
	Emoji string `json:"emoji,omitempty"`
}

// Display returns the human-readable form used in history markers.
func (r Reaction) Display() string {
	if r.Kind == ReactionCustom {
		return r.Emoji
	}
	return r.Kind
}

// ValidReaction reports whether the kind (and emoji, for custom) form a
// deliverable reaction.
func ValidReaction(kind, emoji string) bool {
	switch kind {
	case ReactionLove, ReactionLike, ReactionDislike, ReactionLaugh, ReactionEmphasize, ReactionQuestion:
		return true
	case ReactionCustom:
		return emoji != ""
	default:
		return false
	}
}

// Effect families.
const (
	EffectScreen = "screen"
	EffectBubble = "bubble"
)

// Effect is a full-screen or bubble animation attached to an outgoing
// message.
type Effect struct {
	Family string `json:"type"` // "screen" or "bubble"
	Name   string `json:"name"`
}

var screenEffects = map[string]bool{
	"confetti": true, "fireworks": true, "lasers": true, "sparkles": true,
	"celebration": true, "hearts": true, "love": true, "balloons": true,
	"happy_birthday": true, "echo": true, "spotlight": true,
}

var bubbleEffects = map[string]bool{
	"slam": true, "loud": true, "gentle": true, "invisible_ink": true,
}

// ValidEffect reports whether the family/name pair is a known effect.
func ValidEffect(family, name string) bool {
	switch family {
	case EffectScreen:
		return screenEffects[name]
	case EffectBubble:
		return bubbleEffects[name]
	default:
		return false
	}
}

// Attachment is a media resource sent with a message.
type Attachment struct {
	URL string `json:"url"`
}

// ReplyTo threads an outgoing message under an earlier one.
type ReplyTo struct {
	MessageID string `json:"message_id"`
}

// Handle is one participant in a chat.
type Handle struct {
	Handle string `json:"handle"`
}

// ChatInfo is the roster metadata for a conversation.
type ChatInfo struct {
	Handles     []Handle `json:"handles"`
	DisplayName string   `json:"display_name"`
}

// IsGroup reports whether the chat has more than two participants.
func (c ChatInfo) IsGroup() bool {
	return len(c.Handles) > 2
}

// ParticipantNames returns the roster handles in order.
func (c ChatInfo) ParticipantNames() []string {
	names := make([]string, len(c.Handles))
	for i, h := range c.Handles {
		names[i] = h.Handle
	}
	return names
}
