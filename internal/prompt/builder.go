package prompt

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"iracgo/internal/models"
)

const (
	// DefaultCaseName is used when the caller supplies neither a case name nor a docket number.
	DefaultCaseName = "Unnamed Case"
	// DefaultCharBudget is the number of characters of case text forwarded to the model.
	DefaultCharBudget = 4000

	systemPrompt = "You are a legal expert providing case analysis."
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Variant selects the prompt flavour sent to the model.
type Variant int

const (
	VariantStudent Variant = iota
	VariantParalegal
)

func (v Variant) String() string {
	switch v {
	case VariantStudent:
		return "student"
	case VariantParalegal:
		return "paralegal"
	default:
		return "unknown"
	}
}

// VariantFor maps a requested role onto a prompt variant. Unknown roles get the condensed brief.
func VariantFor(role models.Role) Variant {
	switch role.Canonical() {
	case models.RoleStudent:
		return VariantStudent
	default:
		return VariantParalegal
	}
}

// Builder renders IRAC prompts for extracted case text.
type Builder struct {
	budget    int
	templates map[Variant]prompt.ChatTemplate
}

// NewBuilder loads the embedded templates. A non-positive budget falls back to DefaultCharBudget.
func NewBuilder(budget int) (*Builder, error) {
	if budget <= 0 {
		budget = DefaultCharBudget
	}
	b := &Builder{
		budget:    budget,
		templates: make(map[Variant]prompt.ChatTemplate, 2),
	}
	for variant, name := range map[Variant]string{
		VariantStudent:   "templates/student.tmpl",
		VariantParalegal: "templates/paralegal.tmpl",
	} {
		raw, err := templateFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("load template %s: %w", name, err)
		}
		b.templates[variant] = prompt.FromMessages(schema.GoTemplate,
			schema.SystemMessage(systemPrompt),
			schema.UserMessage(string(raw)),
		)
	}
	return b, nil
}

// Messages renders the system and user messages for req.
// Metadata in req is expected to be sanitized already; text is only truncated to the budget.
func (b *Builder) Messages(ctx context.Context, req models.CaseRequest, text string) ([]*schema.Message, error) {
	tpl, ok := b.templates[VariantFor(req.Role)]
	if !ok {
		return nil, errors.New("prompt template not loaded")
	}
	msgs, err := tpl.Format(ctx, map[string]any{
		"case_label": CaseLabel(req.CaseName, req.DocketNumber),
		"case_text":  Truncate(text, b.budget),
	})
	if err != nil {
		return nil, fmt.Errorf("render prompt: %w", err)
	}
	return msgs, nil
}

// Render returns only the user prompt text, as sent to the model.
func (b *Builder) Render(ctx context.Context, req models.CaseRequest, text string) (string, error) {
	msgs, err := b.Messages(ctx, req, text)
	if err != nil {
		return "", err
	}
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == schema.User {
			return msgs[i].Content, nil
		}
	}
	return "", errors.New("rendered prompt has no user message")
}

// CaseLabel formats the case identity line.
func CaseLabel(caseName, docket string) string {
	caseName = strings.TrimSpace(caseName)
	docket = strings.TrimSpace(docket)
	switch {
	case caseName != "" && docket != "":
		return fmt.Sprintf("%s (Docket No. %s)", caseName, docket)
	case docket != "":
		return "Docket No. " + docket
	case caseName != "":
		return caseName
	default:
		return DefaultCaseName
	}
}

// Truncate keeps at most budget characters of text.
func Truncate(text string, budget int) string {
	if budget <= 0 {
		return ""
	}
	n := 0
	for i := range text {
		if n == budget {
			return text[:i]
		}
		n++
	}
	return text
}
