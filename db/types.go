package db

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Flag is a truthy persistence marker. Clients send it as a bool or a
// 0/1 number; both coerce the same way, absent means false.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v := v.(type) {
	case bool:
		*f = Flag(v)
	case float64:
		*f = Flag(v != 0)
	case nil:
		*f = false
	default:
		return fmt.Errorf("cannot coerce %T to flag", v)
	}
	return nil
}

// ChatRecordInput is one completed exchange, as submitted for persistence.
type ChatRecordInput struct {
	PromptID         string `json:"prompt_id"`
	PromptName       string `json:"prompt_name"`
	ModelID          string `json:"model_id"`
	ModelName        string `json:"model_name"`
	UserMessage      string `json:"user_message"`
	AssistantMessage string `json:"assistant_message"`
	HasImages        Flag   `json:"has_images"`
}

// ChatRecord is a persisted exchange. Records are immutable: created once
// after the assistant response completed, removed only by explicit delete.
type ChatRecord struct {
	ID               int64  `json:"id"`
	PromptID         string `json:"prompt_id"`
	PromptName       string `json:"prompt_name"`
	ModelID          string `json:"model_id"`
	ModelName        string `json:"model_name"`
	UserMessage      string `json:"user_message"`
	AssistantMessage string `json:"assistant_message"`
	HasImages        int    `json:"has_images"`
	CreatedAt        string `json:"created_at"`
}
