package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ErrPromptNotFound is returned when the named prompt file is missing.
var ErrPromptNotFound = errors.New("prompt not found")

// Prompt is one system prompt file in the prompts directory.
type Prompt struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Filename string `json:"filename"`
}

// ListPrompts lists the .md files of dir as prompts. The id is the bare
// filename, the display name replaces dashes with spaces.
func ListPrompts(dir string) ([]Prompt, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	prompts := make([]Prompt, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".md")
		prompts = append(prompts, Prompt{
			ID:       id,
			Name:     strings.ReplaceAll(id, "-", " "),
			Filename: e.Name(),
		})
	}
	return prompts, nil
}

// LoadPrompt reads the content of the prompt named name from dir. Names
// are bare filenames; anything that would escape dir is treated as missing.
func LoadPrompt(dir, name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", ErrPromptNotFound
	}
	content, err := os.ReadFile(filepath.Join(dir, name+".md"))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrPromptNotFound
		}
		return "", err
	}
	return string(content), nil
}
