package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zulandar/parsinator/internal/models"
)

const completeDeploymentBrief = `# Deployment Brief

## Project Name
Widget CLI

## Deployment Goal
Ship 1.0

## Target Environment
Linux

## Core Deployment Tasks
1. **Write docs**: Document every command

## Quality Assurance
Full test pass

## Success Criteria
Release tagged
`

func TestTemplates(t *testing.T) {
	all := Templates()
	require.Len(t, all, 3)
	assert.Equal(t, models.BriefSetup, all[0].Type)
	assert.Equal(t, models.BriefFeature, all[1].Type)
	assert.Equal(t, models.BriefDeployment, all[2].Type)

	feature, ok := TemplateFor(models.BriefFeature)
	require.True(t, ok)
	assert.Len(t, feature.Sections, 7)
}

func TestDetectTemplateType(t *testing.T) {
	assert.Equal(t, models.BriefSetup, DetectTemplateType("Lay the foundation"))
	assert.Equal(t, models.BriefDeployment, DetectTemplateType("Prepare the release"))
	assert.Equal(t, models.BriefFeature, DetectTemplateType("Add search"))
}

func TestValidateBrief(t *testing.T) {
	ok, errs := ValidateBrief(completeDeploymentBrief, models.BriefDeployment)
	assert.True(t, ok)
	assert.Empty(t, errs)

	ok, errs = ValidateBrief("# Search\n## feature name\nSearch\n", models.BriefFeature)
	assert.False(t, ok)
	assert.Len(t, errs, 6)
	assert.Contains(t, errs, "Missing required section: Target Users")
	assert.NotContains(t, errs, "Missing required section: Feature Name")

	ok, errs = ValidateBrief("anything", models.BriefType("epic"))
	assert.False(t, ok)
	assert.Equal(t, []string{"Unknown template type: epic"}, errs)
}

func TestValidateBrief_DetectsType(t *testing.T) {
	ok, _ := ValidateBrief(completeDeploymentBrief, "")
	assert.True(t, ok)
}

func TestValidationReport(t *testing.T) {
	report := ValidationReport("# Nothing\n", models.BriefSetup, nil)
	assert.Contains(t, report, "Template Type: setup")
	assert.Contains(t, report, "Template Files Found: 0")
	assert.Contains(t, report, "Brief has 6 validation errors:")
	assert.Contains(t, report, "  - Missing required section: Setup Scope")

	report = ValidationReport(completeDeploymentBrief, models.BriefDeployment, nil)
	assert.True(t, strings.HasSuffix(report, "Brief is valid!"))
}

func TestFindTemplateFiles(t *testing.T) {
	root := t.TempDir()
	first := filepath.Join(root, "first")
	second := filepath.Join(root, "second")
	require.NoError(t, os.MkdirAll(first, 0o755))
	require.NoError(t, os.MkdirAll(second, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(first, "feature_brief_template.md"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(second, "project_brief_template.md"), []byte("x"), 0o644))

	files := FindTemplateFiles([]string{filepath.Join(root, "missing"), first, second})
	assert.Equal(t, map[models.BriefType]string{
		models.BriefFeature: filepath.Join(first, "feature_brief_template.md"),
	}, files)

	listing := ListTemplates(files)
	assert.Contains(t, listing, "Feature Brief (feature)")
	assert.Contains(t, listing, "File: "+filepath.Join(first, "feature_brief_template.md"))
	assert.Contains(t, listing, "Template file not found")
}
