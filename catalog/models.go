package catalog

// Model is one selectable upstream model.
type Model struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// DefaultModelID is used when a chat request omits the model.
const DefaultModelID = "anthropic/claude-3.5-sonnet"

// DefaultModels is the built-in model list, overridable from config.
var DefaultModels = []Model{
	{ID: "google/gemini-3-flash-preview", Name: "Gemini 3 Flash Preview"},
	{ID: "google/gemini-2.5-flash", Name: "Gemini 2.5 Flash"},
	{ID: "x-ai/grok-4.1-fast", Name: "Grok 4.1 Fast"},
	{ID: "openai/gpt-5-mini", Name: "GPT-5 Mini"},
	{ID: "anthropic/claude-haiku-4.5", Name: "Claude Haiku 4.5"},
	{ID: "deepseek/deepseek-v3.2", Name: "DeepSeek V3.2"},
	{ID: "z-ai/glm-4.7", Name: "GLM 4.7"},
	{ID: "minimax/minimax-m2.1", Name: "MiniMax M2.1"},
	{ID: "xiaomi/mimo-v2-flash:free", Name: "MiMo V2 Flash (Free)"},
}
