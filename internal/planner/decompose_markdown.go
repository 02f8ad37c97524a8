package planner

import (
	"context"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/harrison/pilot/internal/models"
)

// MarkdownDecomposer reads the request as a markdown playbook and turns each
// list item into a step. Checked task-list items ("[x]") are treated as
// already done and skipped.
type MarkdownDecomposer struct {
	md goldmark.Markdown
}

// NewMarkdownDecomposer creates a MarkdownDecomposer.
func NewMarkdownDecomposer() *MarkdownDecomposer {
	return &MarkdownDecomposer{md: goldmark.New()}
}

// Decompose parses the markdown AST and collects top-level list items in
// document order.
func (d *MarkdownDecomposer) Decompose(ctx context.Context, req models.PlanRequest) ([]DraftStep, error) {
	source := []byte(req.UserRequest)
	doc := d.md.Parser().Parse(text.NewReader(source))

	var drafts []DraftStep
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		item, ok := n.(*ast.ListItem)
		if !ok {
			return ast.WalkContinue, nil
		}

		clause := strings.TrimSpace(itemText(item, source))
		clause, done := stripCheckbox(clause)
		if clause == "" || done {
			return ast.WalkSkipChildren, nil
		}

		action := inferAction(clause)
		drafts = append(drafts, DraftStep{
			Title:            clampTitle(clause),
			Description:      clause,
			Action:           action,
			RequiresApproval: action.Destructive,
		})
		return ast.WalkSkipChildren, nil
	})
	if err != nil {
		return nil, err
	}
	return drafts, nil
}

// itemText concatenates the text content of a list item's first block,
// preserving inline code in backticks so command extraction still works.
func itemText(item ast.Node, source []byte) string {
	var sb strings.Builder
	for block := item.FirstChild(); block != nil; block = block.NextSibling() {
		switch block.(type) {
		case *ast.TextBlock, *ast.Paragraph:
			collectText(block, source, &sb)
			return sb.String()
		}
	}
	return sb.String()
}

func collectText(n ast.Node, source []byte, sb *strings.Builder) {
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		switch c := child.(type) {
		case *ast.Text:
			sb.Write(c.Segment.Value(source))
		case *ast.CodeSpan:
			sb.WriteString("`")
			collectText(c, source, sb)
			sb.WriteString("`")
		default:
			collectText(child, source, sb)
		}
	}
}

// stripCheckbox removes a leading task-list marker and reports whether the
// item was already checked off.
func stripCheckbox(clause string) (string, bool) {
	switch {
	case strings.HasPrefix(clause, "[ ]"):
		return strings.TrimSpace(clause[3:]), false
	case strings.HasPrefix(clause, "[x]"), strings.HasPrefix(clause, "[X]"):
		return strings.TrimSpace(clause[3:]), true
	default:
		return clause, false
	}
}
