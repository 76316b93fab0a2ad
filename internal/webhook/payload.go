package webhook

import (
	"strings"

	"github.com/linq-team/bluebridge/internal/linq"
)

// InboundMessage is the Linq Blue webhook payload for a new message.
type InboundMessage struct {
	ChatID    string       `json:"chat_id"`
	MessageID string       `json:"message_id"`
	From      string       `json:"from"`
	Text      string       `json:"text"`
	Service   linq.Service `json:"service"`

	Attachments []InboundAttachment `json:"attachments,omitempty"`
	Effect      *linq.Effect        `json:"effect,omitempty"`
	ReplyTo     *linq.ReplyTo       `json:"reply_to,omitempty"`
}

// InboundAttachment is a media resource on an inbound message.
type InboundAttachment struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
}

// splitMedia partitions attachments into images and audio clips by MIME
// type; anything else (documents, contacts) is dropped.
func splitMedia(attachments []InboundAttachment) (images, audio []linq.Attachment) {
	for _, a := range attachments {
		switch {
		case strings.HasPrefix(a.MimeType, "image/"):
			images = append(images, linq.Attachment{URL: a.URL})
		case strings.HasPrefix(a.MimeType, "audio/"):
			audio = append(audio, linq.Attachment{URL: a.URL})
		}
	}
	return images, audio
}
