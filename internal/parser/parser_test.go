package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zulandar/parsinator/internal/fileio"
	"github.com/zulandar/parsinator/internal/heuristics"
	"github.com/zulandar/parsinator/internal/models"
)

const setupBrief = `# Project Setup Brief Template: Widget CLI

## Project Name
Widget CLI

## Problem Statement
Teams need a consistent way to scaffold widgets.

They keep copying folders by hand.

## Core Setup Tasks
1. **Create directory structure**: Lay out cmd and internal packages
2. **Configure tooling**: Add linting and formatting
* Write README: Document the basics
Some stray prose that is not a task.

### Notes
1. **Not a task**: outside the section

## Optional Setup Tasks
- Add CI badge
* **Release script**: Automate tagging

## Technical Requirements
Go 1.22 or newer.
Runs on Linux and macOS.
`

func newParser(t *testing.T, h *heuristics.Heuristics) (*Parser, string) {
	t.Helper()
	dir := t.TempDir()
	files, err := fileio.New(dir)
	require.NoError(t, err)
	return New(files, h), dir
}

func TestParseBrief_SetupBrief(t *testing.T) {
	p, _ := newParser(t, nil)

	brief, err := p.ParseBrief("briefs/project_setup.md", setupBrief)
	require.NoError(t, err)

	assert.Equal(t, models.BriefSetup, brief.Type)
	assert.Equal(t, "Project Setup - Widget CLI", brief.Title)
	assert.Equal(t, "Teams need a consistent way to scaffold widgets. They keep copying folders by hand.", brief.Description)
	assert.Equal(t, []string{
		"Create directory structure: Lay out cmd and internal packages",
		"Configure tooling: Add linting and formatting",
		"Write README: Document the basics",
		"**Release script: Automate tagging",
	}, brief.Tasks)

	assert.Equal(t, "setup", brief.Metadata["brief_type"])
	assert.Equal(t, "Go 1.22 or newer. Runs on Linux and macOS.", brief.Metadata["technical_requirements"])
	assert.Greater(t, brief.Metadata["word_count"], 0)
	assert.Equal(t, 27, brief.Metadata["line_count"])
}

func TestParseBrief_ItemPriorities(t *testing.T) {
	p, _ := newParser(t, nil)
	items := p.Items(setupBrief, models.BriefSetup)
	require.Len(t, items, 4)
	assert.Equal(t, models.PriorityHigh, items[0].Priority)
	assert.False(t, items[0].Optional)
	assert.Equal(t, models.PriorityMedium, items[3].Priority)
	assert.True(t, items[3].Optional)
}

func TestParseBrief_DashSubBulletsAreNotTasks(t *testing.T) {
	content := `# Project Setup: Widget CLI

## Core Setup Tasks
1. **Create CLI**: Build the entry point
   - Use cobra for commands
   - Add a help screen
- Pin the Go version
`
	p, _ := newParser(t, nil)
	brief, err := p.ParseBrief("project_setup.md", content)
	require.NoError(t, err)
	assert.Equal(t, []string{"Create CLI: Build the entry point"}, brief.Tasks)
}

func TestParseBrief_FeatureSections(t *testing.T) {
	content := `# Feature Brief: Search

## Problem Statement
Users cannot find widgets.

## Core Feature Tasks
### Must-Have Implementation
1. **Implement index**: Build an inverted index
2. **Create query API**: Expose search over the index

### Nice-to-Have Enhancements
1. **Add fuzzy matching**: Tolerate typos

## Target Users
Widget maintainers
`
	p, _ := newParser(t, nil)
	brief, err := p.ParseBrief("search_feature.md", content)
	require.NoError(t, err)

	assert.Equal(t, models.BriefFeature, brief.Type)
	assert.Equal(t, "Feature Brief - Search", brief.Title)
	assert.Equal(t, []string{
		"Implement index: Build an inverted index",
		"Create query API: Expose search over the index",
		"Add fuzzy matching: Tolerate typos",
	}, brief.Tasks)
	assert.Equal(t, "Widget maintainers", brief.Metadata["target_users"])
}

func TestDetectBriefType(t *testing.T) {
	p, _ := newParser(t, nil)
	tests := []struct {
		name     string
		filename string
		content  string
		want     models.BriefType
	}{
		{"deployment filename", "deployment.md", "# Launch\nNothing else here.", models.BriefDeployment},
		{"deploy filename", "deploy_v2.md", "", models.BriefDeployment},
		{"setup filename wins over content", "setup.md", "quality assurance", models.BriefSetup},
		{"project filename", "my_project.md", "", models.BriefSetup},
		{"feature filename", "feature_x.md", "infrastructure", models.BriefFeature},
		{"setup content", "brief.md", "We need new Infrastructure.", models.BriefSetup},
		{"setup content before deployment content", "brief.md", "release the cli structure", models.BriefSetup},
		{"deployment content", "brief.md", "Cut a release.", models.BriefDeployment},
		{"ambiguous defaults to feature", "notes.md", "# Widgets\nMake widgets shinier.", models.BriefFeature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.DetectBriefType(tt.filename, tt.content))
		})
	}
}

func TestParseBrief_Fallbacks(t *testing.T) {
	p, _ := newParser(t, nil)
	brief, err := p.ParseBrief("notes.md", "Just some words about widgets.\n")
	require.NoError(t, err)

	assert.Equal(t, "Untitled Brief", brief.Title)
	assert.Equal(t, "Brief for feature implementation", brief.Description)
	assert.Empty(t, brief.Tasks)
	assert.NotNil(t, brief.Tasks)
}

func TestParseBrief_EmptyDocument(t *testing.T) {
	p, _ := newParser(t, nil)
	_, err := p.ParseBrief("empty.md", "  \n\n\t\n")
	require.ErrorIs(t, err, ErrParse)
	assert.Contains(t, err.Error(), "empty.md")
}

func TestParseBrief_TitleReducedToNothing(t *testing.T) {
	p, _ := newParser(t, nil)
	_, err := p.ParseBrief("feature.md", "# Brief Template\n\nbody\n")
	require.ErrorIs(t, err, ErrParse)
	assert.ErrorIs(t, err, models.ErrInvalidBrief)
}

func TestParseBrief_GenericFallback(t *testing.T) {
	h := heuristics.Default()
	delete(h.TaskSections, models.BriefFeature)
	p, _ := newParser(t, h)

	content := `# Misc

## Anything
1. **First**: one
* Ignored bullet
## Elsewhere
2. **Second**: two
`
	brief, err := p.ParseBrief("misc.md", content)
	require.NoError(t, err)
	assert.Equal(t, []string{"First: one", "Second: two"}, brief.Tasks)
}

func TestParseBriefFile(t *testing.T) {
	p, dir := newParser(t, nil)
	path := filepath.Join(dir, "setup.md")
	require.NoError(t, os.WriteFile(path, []byte(setupBrief), 0o644))

	brief, err := p.ParseBriefFile(path)
	require.NoError(t, err)
	assert.Equal(t, "setup.md", brief.Name())
	assert.Len(t, brief.Tasks, 4)

	_, err = p.ParseBriefFile(filepath.Join(dir, "missing.md"))
	require.ErrorIs(t, err, ErrParse)
	assert.ErrorIs(t, err, fileio.ErrFileIO)
}
