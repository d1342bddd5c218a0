// Package prompt composes the system prompt of one conversation turn from the live tool
// registry metadata and the selected policy variant.
package prompt

import (
	"embed"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/pkg/errors"

	"github.com/skosovsky/tooldesk"
	"github.com/skosovsky/tooldesk/policy"
)

//go:embed templates/system.tmpl templates/behavioral_rules.txt
var templates embed.FS

// DefaultRole opens every system prompt.
const DefaultRole = "You are an advanced personal assistant."

// BehavioralRules is the clothing-advice block added for variants with RequiresBehavioralRules.
var BehavioralRules = mustRead("templates/behavioral_rules.txt")

// Composer renders system prompts. It holds no per-turn state; Compose is a pure function of
// its arguments and safe for concurrent use.
type Composer struct {
	tmpl *template.Template
	role string
}

// Option configures a Composer.
type Option func(*Composer)

// WithRole replaces the opening line naming the assistant's role.
func WithRole(role string) Option {
	return func(c *Composer) {
		c.role = role
	}
}

// NewComposer parses the embedded template once.
func NewComposer(opts ...Option) (*Composer, error) {
	tmpl, err := template.New("system.tmpl").
		Funcs(sprig.TxtFuncMap()).
		ParseFS(templates, "templates/system.tmpl")
	if err != nil {
		return nil, errors.Wrap(err, "parse system prompt template")
	}
	c := &Composer{tmpl: tmpl, role: DefaultRole}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type promptData struct {
	Role        string
	Tools       []tooldesk.ToolSpec
	Rules       string
	Instruction string
}

// Compose builds the system prompt: the role and one line per tool (signature and description,
// taken from tools in the given order), then the behavioral rules when the variant requires them,
// then the variant's instruction last.
func (c *Composer) Compose(v policy.Variant, tools []tooldesk.ToolSpec) (string, error) {
	data := promptData{
		Role:        c.role,
		Tools:       tools,
		Instruction: v.Instruction,
	}
	if v.RequiresBehavioralRules {
		data.Rules = BehavioralRules
	}
	var b strings.Builder
	if err := c.tmpl.Execute(&b, data); err != nil {
		return "", errors.Wrap(err, "render system prompt")
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func mustRead(name string) string {
	data, err := templates.ReadFile(name)
	if err != nil {
		panic("prompt: " + err.Error())
	}
	return string(data)
}
