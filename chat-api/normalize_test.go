package chatapi

import (
	"reflect"
	"testing"
)

func TestNormalizeTextOnlyUserTurn(t *testing.T) {
	msgs, err := Normalize([]ConversationTurn{
		{Role: UserRole, Content: "hello"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if msgs[0].Role != UserRole {
		t.Errorf("role = %q, want %q", msgs[0].Role, UserRole)
	}
	if got := msgs[0].Content; got != TextContent("hello") {
		t.Errorf("content = %#v, want TextContent(hello)", got)
	}
}

func TestNormalizeUserTurnWithImages(t *testing.T) {
	msgs, err := Normalize([]ConversationTurn{
		{
			Role:    UserRole,
			Content: "hi",
			Images: []ImageAttachment{
				{ID: "i1", Base64: "data:image/png;base64,AAAA"},
				{ID: "i2", Base64: "BBBB"},
			},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := PartsContent{
		{Type: PartImage, Data: "AAAA"},
		{Type: PartImage, Data: "BBBB"},
		{Type: PartText, Data: "hi"},
	}
	if !reflect.DeepEqual(msgs[0].Content, want) {
		t.Errorf("content = %#v, want %#v", msgs[0].Content, want)
	}
}

func TestNormalizeOmitsEmptyTextPart(t *testing.T) {
	msgs, err := Normalize([]ConversationTurn{
		{
			Role:    UserRole,
			Content: "   ",
			Images:  []ImageAttachment{{ID: "i1", Base64: "AAAA"}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	parts, ok := msgs[0].Content.(PartsContent)
	if !ok {
		t.Fatalf("content = %#v, want PartsContent", msgs[0].Content)
	}
	if len(parts) != 1 || parts[0].Type != PartImage {
		t.Errorf("parts = %#v, want a single image part", parts)
	}
}

func TestNormalizeAssistantTurnDropsImages(t *testing.T) {
	msgs, err := Normalize([]ConversationTurn{
		{
			Role:    AnswerRole,
			Content: "an answer",
			Images:  []ImageAttachment{{ID: "i1", Base64: "AAAA"}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := msgs[0].Content; got != TextContent("an answer") {
		t.Errorf("content = %#v, want text-only", got)
	}
}

func TestNormalizePreservesTurnOrder(t *testing.T) {
	turns := []ConversationTurn{
		{Role: UserRole, Content: "q1"},
		{Role: AnswerRole, Content: "a1"},
		{Role: UserRole, Content: "q2"},
	}
	msgs, err := Normalize(turns)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	for i, turn := range turns {
		if msgs[i].Role != turn.Role || msgs[i].Content != TextContent(turn.Content) {
			t.Errorf("message %d = %+v, want role %q content %q", i, msgs[i], turn.Role, turn.Content)
		}
	}
}

func TestNormalizeRejectsMalformedTurns(t *testing.T) {
	cases := []struct {
		name  string
		turns []ConversationTurn
	}{
		{"unknown role", []ConversationTurn{{Role: "tool", Content: "x"}}},
		{"empty user turn", []ConversationTurn{{Role: UserRole}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Normalize(tc.turns); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestStripDataURI(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"data:image/jpeg;base64,xyz", "xyz"},
		{"xyz", "xyz"},
		{"data:image/png;base64,", ""},
	}
	for _, tc := range cases {
		if got := stripDataURI(tc.in); got != tc.want {
			t.Errorf("stripDataURI(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
