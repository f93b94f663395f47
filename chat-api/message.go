package chatapi

import "strings"

const SystemRole = "system"
const UserRole = "user"
const AnswerRole = "assistant"

// ImageAttachment is one client-supplied image on a user turn. Base64 may
// carry a data-URI header ("data:<mime>;base64,"); it is stripped before
// anything goes upstream.
type ImageAttachment struct {
	ID     string `json:"id"`
	Base64 string `json:"base64"`
}

// ConversationTurn is one turn of the conversation as submitted by the
// client. Images are only meaningful on user turns.
type ConversationTurn struct {
	Role    string            `json:"role"`
	Content string            `json:"content"`
	Images  []ImageAttachment `json:"images,omitempty"`
}

// Content variants for a normalized provider message. The upstream adapter
// switches exhaustively over these two.

type Content interface {
	isContent()
}

// TextContent is a plain text payload.
type TextContent string

func (TextContent) isContent() {}

// PartsContent is an ordered multi-modal payload: image parts first (in
// attachment order), then at most one text part.
type PartsContent []Part

func (PartsContent) isContent() {}

type PartType int

const (
	PartImage PartType = iota
	PartText
)

// Part is one element of a structured payload. For image parts Data is the
// bare base64 image bytes, never a data URI.
type Part struct {
	Type PartType
	Data string
}

// ProviderMessage is one provider-agnostic message ready for the upstream
// adapter.
type ProviderMessage struct {
	Role    string
	Content Content
}

// stripDataURI removes a "data:<mime>;base64," header if present, matching
// the split-on-comma behavior clients expect from data URLs.
func stripDataURI(b64 string) string {
	if _, rest, ok := strings.Cut(b64, ","); ok {
		return rest
	}
	return b64
}
