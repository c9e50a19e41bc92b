package agent

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var promptsYAML []byte

// Legacy placeholders still honoured in template text.
const placeholderUserDescription = "[[USER_DESCRIPTION]]"

var reUserName = regexp.MustCompile(`(?i)\[\[user_name\]\]`)

// Prompts is the parsed prompt file.
type Prompts struct {
	Anonymous     string `yaml:"anonymous"`
	Named         string `yaml:"named"`
	AnonymousName string `yaml:"anonymousName"`
	Chef          struct {
		System string `yaml:"system"`
	} `yaml:"chef"`
	Ingredients struct {
		System string `yaml:"system"`
		User   string `yaml:"user"`
	} `yaml:"ingredients"`
}

// PromptSlots are the values a system prompt is rendered with.
type PromptSlots struct {
	ChefName        string
	UserDescription string
	UserName        string
}

var loadDefaultPrompts = sync.OnceValues(func() (*Prompts, error) {
	return ParsePrompts(promptsYAML)
})

// DefaultPrompts returns the embedded prompt set.
func DefaultPrompts() *Prompts {
	p, err := loadDefaultPrompts()
	if err != nil {
		// The file is embedded at build time; a parse failure is a build defect.
		panic(fmt.Sprintf("embedded prompts.yaml: %v", err))
	}
	return p
}

// ParsePrompts decodes a prompt file. Every template is parsed once here so
// a broken file fails at startup rather than mid-conversation.
func ParsePrompts(data []byte) (*Prompts, error) {
	var p Prompts
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}
	if strings.TrimSpace(p.Chef.System) == "" {
		return nil, fmt.Errorf("parse prompts: chef.system is empty")
	}
	for name, text := range map[string]string{
		"named":            p.Named,
		"chef.system":      p.Chef.System,
		"ingredients.user": p.Ingredients.User,
	} {
		if _, err := template.New(name).Parse(text); err != nil {
			return nil, fmt.Errorf("parse prompt %s: %w", name, err)
		}
	}
	return &p, nil
}

// SystemPrompt renders the Chef's system message from its slots.
type SystemPrompt struct {
	tmpl *template.Template
}

func NewSystemPrompt(text string) (SystemPrompt, error) {
	t, err := template.New("system").Parse(text)
	if err != nil {
		return SystemPrompt{}, fmt.Errorf("parse system prompt: %w", err)
	}
	return SystemPrompt{tmpl: t}, nil
}

// Render fills the template slots, then the legacy [[USER_DESCRIPTION]] and
// case-insensitive [[user_name]] placeholders.
func (s SystemPrompt) Render(slots PromptSlots) string {
	var b strings.Builder
	if err := s.tmpl.Execute(&b, slots); err != nil {
		return ""
	}
	out := strings.ReplaceAll(b.String(), placeholderUserDescription, slots.UserDescription)
	return reUserName.ReplaceAllLiteralString(out, slots.UserName)
}

// describe returns the description and name slots for a caller identity.
func (p *Prompts) describe(displayName string) (description, name string) {
	if displayName == "" {
		return p.Anonymous, p.AnonymousName
	}
	return renderText(p.Named, map[string]string{"UserName": displayName}), displayName
}

// ingredientsPrompt renders the extraction request for raw ingredient strings.
func (p *Prompts) ingredientsPrompt(ingredients []string) string {
	list, _ := json.Marshal(ingredients)
	return renderText(p.Ingredients.User, map[string]string{"Ingredients": string(list)})
}

func renderText(text string, data any) string {
	t, err := template.New("").Parse(text)
	if err != nil {
		return text
	}
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return text
	}
	return b.String()
}
