package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/zulandar/parsinator/internal/models"
)

// DefaultTemplateDirs are searched, in order, for template files.
var DefaultTemplateDirs = []string{"docs/parsinator/brief_templates", "templates"}

// TemplateSection is a heading a brief of some type must carry.
type TemplateSection struct {
	Name     string
	Required bool
	pattern  *regexp.Regexp
}

// Template describes the expected shape of one brief type.
type Template struct {
	Type        models.BriefType
	Name        string
	Description string
	FileName    string
	Sections    []TemplateSection
}

func section(name string) TemplateSection {
	return TemplateSection{
		Name:     name,
		Required: true,
		pattern:  regexp.MustCompile(`(?i)` + regexp.QuoteMeta("## "+name)),
	}
}

var templates = []Template{
	{
		Type:        models.BriefSetup,
		Name:        "Project Setup Brief",
		Description: "Template for project infrastructure and setup tasks",
		FileName:    "project_brief_template.md",
		Sections: []TemplateSection{
			section("Project Name"),
			section("Problem Statement"),
			section("Setup Scope"),
			section("Core Setup Tasks"),
			section("Technical Requirements"),
			section("Success Criteria"),
		},
	},
	{
		Type:        models.BriefFeature,
		Name:        "Feature Brief",
		Description: "Template for individual feature implementation",
		FileName:    "feature_brief_template.md",
		Sections: []TemplateSection{
			section("Feature Name"),
			section("Problem Statement"),
			section("Target Users"),
			section("Feature Scope"),
			section("Core Feature Tasks"),
			section("Technical Implementation"),
			section("Success Criteria"),
		},
	},
	{
		Type:        models.BriefDeployment,
		Name:        "Deployment Brief",
		Description: "Template for testing, documentation, and release preparation",
		FileName:    "deployment_brief_template.md",
		Sections: []TemplateSection{
			section("Project Name"),
			section("Deployment Goal"),
			section("Target Environment"),
			section("Core Deployment Tasks"),
			section("Quality Assurance"),
			section("Success Criteria"),
		},
	},
}

var (
	templateSetupKeywords      = []string{"setup", "infrastructure", "project structure", "cli project", "foundation"}
	templateDeploymentKeywords = []string{"deployment", "release", "testing", "documentation", "quality assurance"}
)

// Templates returns the built-in templates in brief-type order.
func Templates() []Template {
	out := make([]Template, len(templates))
	copy(out, templates)
	return out
}

// TemplateFor returns the template for bt.
func TemplateFor(bt models.BriefType) (Template, bool) {
	for _, t := range templates {
		if t.Type == bt {
			return t, true
		}
	}
	return Template{}, false
}

// DetectTemplateType guesses which template a brief was written from.
// Unlike DetectBriefType it looks only at content.
func DetectTemplateType(content string) models.BriefType {
	lower := strings.ToLower(content)
	switch {
	case containsAny(lower, templateSetupKeywords):
		return models.BriefSetup
	case containsAny(lower, templateDeploymentKeywords):
		return models.BriefDeployment
	default:
		return models.BriefFeature
	}
}

// ValidateBrief checks content for every required section of the bt
// template. An empty bt is detected from content.
func ValidateBrief(content string, bt models.BriefType) (bool, []string) {
	if bt == "" {
		bt = DetectTemplateType(content)
	}
	tmpl, ok := TemplateFor(bt)
	if !ok {
		return false, []string{fmt.Sprintf("Unknown template type: %s", bt)}
	}
	var errs []string
	for _, s := range tmpl.Sections {
		if s.Required && !s.pattern.MatchString(content) {
			errs = append(errs, "Missing required section: "+s.Name)
		}
	}
	return len(errs) == 0, errs
}

// ValidationReport renders the result of ValidateBrief for display.
// files is the result of FindTemplateFiles.
func ValidationReport(content string, bt models.BriefType, files map[models.BriefType]string) string {
	if bt == "" {
		bt = DetectTemplateType(content)
	}
	ok, errs := ValidateBrief(content, bt)

	var b strings.Builder
	fmt.Fprintln(&b, "Brief Validation Report")
	fmt.Fprintf(&b, "  Template Type: %s\n", bt)
	fmt.Fprintf(&b, "  Content Length: %d characters\n", len([]rune(content)))
	fmt.Fprintf(&b, "  Template Files Found: %d\n", len(files))
	fmt.Fprintln(&b)
	if ok {
		fmt.Fprintln(&b, "Brief is valid!")
	} else {
		fmt.Fprintf(&b, "Brief has %d validation errors:\n", len(errs))
		for _, e := range errs {
			fmt.Fprintf(&b, "  - %s\n", e)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// FindTemplateFiles looks for the known template files in the first of
// dirs that exists.
func FindTemplateFiles(dirs []string) map[models.BriefType]string {
	found := make(map[models.BriefType]string)
	for _, dir := range dirs {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			continue
		}
		for _, t := range templates {
			path := filepath.Join(dir, t.FileName)
			if _, err := os.Stat(path); err == nil {
				found[t.Type] = path
			}
		}
		break
	}
	return found
}

// ListTemplates renders the built-in templates and where their files live.
func ListTemplates(files map[models.BriefType]string) string {
	var b strings.Builder
	fmt.Fprintln(&b, "Available Brief Templates:")
	fmt.Fprintln(&b)
	for _, t := range templates {
		fmt.Fprintf(&b, "%s (%s)\n", t.Name, t.Type)
		fmt.Fprintf(&b, "  %s\n", t.Description)
		if path, ok := files[t.Type]; ok {
			fmt.Fprintf(&b, "  File: %s\n", path)
		} else {
			fmt.Fprintln(&b, "  Template file not found")
		}
		fmt.Fprintln(&b)
	}
	return strings.TrimRight(b.String(), "\n")
}
