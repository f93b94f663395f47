package chatapi

import (
	"fmt"
	"strings"
)

// Normalize maps conversation turns onto provider messages. It is pure:
// order is preserved, turns are never merged, and nothing is fetched.
//
// User turns without images become plain text. User turns with images
// become image parts (attachment order, data-URI prefix stripped) followed
// by one text part when the trimmed text is non-empty. Assistant turns are
// always text-only on the wire; images smuggled onto them are dropped.
func Normalize(turns []ConversationTurn) ([]ProviderMessage, error) {
	msgs := make([]ProviderMessage, 0, len(turns))
	for i, t := range turns {
		switch t.Role {
		case UserRole:
			if t.Content == "" && len(t.Images) == 0 {
				return nil, fmt.Errorf("turn %d: empty user turn", i)
			}
			if len(t.Images) == 0 {
				msgs = append(msgs, ProviderMessage{Role: UserRole, Content: TextContent(t.Content)})
				continue
			}
			parts := make(PartsContent, 0, len(t.Images)+1)
			for _, img := range t.Images {
				parts = append(parts, Part{Type: PartImage, Data: stripDataURI(img.Base64)})
			}
			if text := strings.TrimSpace(t.Content); text != "" {
				parts = append(parts, Part{Type: PartText, Data: t.Content})
			}
			msgs = append(msgs, ProviderMessage{Role: UserRole, Content: parts})
		case AnswerRole:
			msgs = append(msgs, ProviderMessage{Role: AnswerRole, Content: TextContent(t.Content)})
		default:
			return nil, fmt.Errorf("turn %d: unknown role %q", i, t.Role)
		}
	}
	return msgs, nil
}
