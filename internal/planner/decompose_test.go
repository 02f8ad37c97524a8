package planner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/pilot/internal/models"
)

func TestRuleDecomposerSplitsClauses(t *testing.T) {
	d := NewRuleDecomposer()
	req := models.PlanRequest{
		UserRequest: "read README.md then run `go version`; search for TODO markers",
	}

	drafts, err := d.Decompose(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, drafts, 3)

	assert.Equal(t, models.ActionReadFile, drafts[0].Action.Type)
	assert.Equal(t, "README.md", drafts[0].Action.Path)

	assert.Equal(t, models.ActionRunCommand, drafts[1].Action.Type)
	assert.Equal(t, "go version", drafts[1].Action.Command)

	assert.Equal(t, models.ActionSearchCodebase, drafts[2].Action.Type)
	assert.Equal(t, "TODO markers", drafts[2].Action.Query)
}

func TestRuleDecomposerEmptyRequest(t *testing.T) {
	d := NewRuleDecomposer()

	drafts, err := d.Decompose(context.Background(), models.PlanRequest{UserRequest: "   \n  "})
	require.NoError(t, err)
	assert.Empty(t, drafts)
}

func TestRuleDecomposerStripsListMarkers(t *testing.T) {
	d := NewRuleDecomposer()
	req := models.PlanRequest{
		UserRequest: "1. read go.mod\n2. update CHANGELOG.md",
	}

	drafts, err := d.Decompose(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, drafts, 2)
	assert.Equal(t, "read go.mod", drafts[0].Description)
	assert.Equal(t, models.ActionWriteFile, drafts[1].Action.Type)
	assert.Equal(t, "CHANGELOG.md", drafts[1].Action.Path)
}

func TestRuleDecomposerFlagsDestructiveCommands(t *testing.T) {
	d := NewRuleDecomposer()
	req := models.PlanRequest{UserRequest: "run `rm -rf build`"}

	drafts, err := d.Decompose(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.True(t, drafts[0].Action.Destructive)
	assert.True(t, drafts[0].RequiresApproval)
}

func TestRuleDecomposerUnknownVerbFallsBackToModel(t *testing.T) {
	d := NewRuleDecomposer()
	req := models.PlanRequest{UserRequest: "refactor that gnarly helper"}

	drafts, err := d.Decompose(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, models.ActionCallModel, drafts[0].Action.Type)
}

func TestMarkdownDecomposerListItems(t *testing.T) {
	d := NewMarkdownDecomposer()
	req := models.PlanRequest{
		UserRequest: `# Release checklist

- read CHANGELOG.md
- run ` + "`make build`" + `
- update version.txt
`,
	}

	drafts, err := d.Decompose(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, drafts, 3)

	assert.Equal(t, models.ActionReadFile, drafts[0].Action.Type)
	assert.Equal(t, "CHANGELOG.md", drafts[0].Action.Path)

	assert.Equal(t, models.ActionRunCommand, drafts[1].Action.Type)
	assert.Equal(t, "make build", drafts[1].Action.Command, "inline code must survive as the command text")

	assert.Equal(t, models.ActionWriteFile, drafts[2].Action.Type)
}

func TestMarkdownDecomposerSkipsCheckedItems(t *testing.T) {
	d := NewMarkdownDecomposer()
	req := models.PlanRequest{
		UserRequest: `- [x] read README.md
- [ ] update CHANGELOG.md
`,
	}

	drafts, err := d.Decompose(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, drafts, 1, "checked items are already done")
	assert.Contains(t, drafts[0].Description, "CHANGELOG.md")
}

func TestMarkdownDecomposerNoLists(t *testing.T) {
	d := NewMarkdownDecomposer()
	req := models.PlanRequest{UserRequest: "just a paragraph with no list at all"}

	drafts, err := d.Decompose(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, drafts)
}

func TestInferActionVerbs(t *testing.T) {
	tests := []struct {
		clause string
		want   models.ActionType
	}{
		{"read src/main.go", models.ActionReadFile},
		{"open the README.md file", models.ActionReadFile},
		{"create docs/guide.md", models.ActionCreateFile},
		{"write pkg/version.go", models.ActionWriteFile},
		{"update the config.yaml settings", models.ActionWriteFile},
		{"run `npm install`", models.ActionRunCommand},
		{"find all TODO comments", models.ActionSearchCodebase},
		{"summarize recent activity", models.ActionCallModel},
	}

	for _, tt := range tests {
		t.Run(tt.clause, func(t *testing.T) {
			assert.Equal(t, tt.want, inferAction(tt.clause).Type)
		})
	}
}

func TestExtractCommand(t *testing.T) {
	assert.Equal(t, "go test ./...", extractCommand("run `go test ./...` please"))
	assert.Equal(t, "make lint", extractCommand("execute make lint"))
}
