// Package parser turns markdown briefs into models.BriefContent.
package parser

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/zulandar/parsinator/internal/fileio"
	"github.com/zulandar/parsinator/internal/heuristics"
	"github.com/zulandar/parsinator/internal/models"
)

// ErrParse marks a brief that could not be read or parsed.
var ErrParse = errors.New("parser: parse error")

var (
	h1Re         = regexp.MustCompile(`^#\s+(.+)$`)
	h2Re         = regexp.MustCompile(`^##\s+(.+)$`)
	sectionRe    = regexp.MustCompile(`^#{2,3}\s+(.+)$`)
	numberedRe   = regexp.MustCompile(`^\d+\.\s+\*\*(.+?)\*\*:\s*(.+)$`)
	bulletRe     = regexp.MustCompile(`^\*\s+(.+)$`)
	templateWord = regexp.MustCompile(`(?i)\s*brief\s*template?\s*`)
	colonRe      = regexp.MustCompile(`\s*:\s*`)
)

// Item is one task line recognised inside a task section.
type Item struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Priority    models.Priority `json:"priority"`
	Optional    bool            `json:"optional"`
}

// Raw is the "title: description" form stored on BriefContent.
func (i Item) Raw() string {
	return i.Title + ": " + i.Description
}

// Parser parses brief files. It holds no per-file state and is safe for
// concurrent use.
type Parser struct {
	files *fileio.Handler
	h     *heuristics.Heuristics
}

// New returns a Parser reading through files and scoring with h. A nil h
// means the stock heuristics.
func New(files *fileio.Handler, h *heuristics.Heuristics) *Parser {
	if h == nil {
		h = heuristics.Default()
	}
	return &Parser{files: files, h: h}
}

// ParseBriefFile reads and parses the brief at path. Read failures wrap
// both ErrParse and fileio.ErrFileIO.
func (p *Parser) ParseBriefFile(path string) (*models.BriefContent, error) {
	content, err := p.files.ReadBrief(path)
	if err != nil {
		return nil, fmt.Errorf("%w: brief file %s: %w", ErrParse, path, err)
	}
	return p.ParseBrief(path, content)
}

// ParseBrief parses in-memory brief content. path names the brief and
// feeds type detection; it is not read.
func (p *Parser) ParseBrief(path, content string) (*models.BriefContent, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: brief file %s: document is empty", ErrParse, path)
	}
	lines := strings.Split(content, "\n")

	bt := p.DetectBriefType(filepath.Base(path), content)
	title := extractTitle(lines)
	description := p.extractDescription(lines, bt)
	items := p.items(lines, bt)
	metadata := p.extractMetadata(content, lines, bt)

	tasks := make([]string, 0, len(items))
	for _, it := range items {
		tasks = append(tasks, it.Raw())
	}

	brief, err := models.NewBriefContent(path, bt, title, description, tasks, metadata)
	if err != nil {
		return nil, fmt.Errorf("%w: brief file %s: %w", ErrParse, path, err)
	}
	log.Debug().
		Str("path", path).
		Str("type", string(bt)).
		Int("tasks", len(tasks)).
		Msg("parsed brief")
	return brief, nil
}

// Items returns the task items of content as brief type bt would parse them.
func (p *Parser) Items(content string, bt models.BriefType) []Item {
	return p.items(strings.Split(content, "\n"), bt)
}

// DetectBriefType classifies a brief by file name, then by content, and
// falls back to feature.
func (p *Parser) DetectBriefType(filename, content string) models.BriefType {
	name := strings.ToLower(filename)
	for _, hint := range p.h.TypeFilenameHints {
		if containsAny(name, hint.Keywords) {
			return hint.Type
		}
	}
	lower := strings.ToLower(content)
	for _, hint := range p.h.TypeContentIndicators {
		if containsAny(lower, hint.Keywords) {
			return hint.Type
		}
	}
	return models.BriefFeature
}

func extractTitle(lines []string) string {
	for _, line := range lines {
		m := h1Re.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		title := strings.TrimSpace(m[1])
		title = templateWord.ReplaceAllString(title, "")
		title = colonRe.ReplaceAllString(title, " - ")
		return strings.TrimSpace(title)
	}
	return "Untitled Brief"
}

func (p *Parser) extractDescription(lines []string, bt models.BriefType) string {
	for i, line := range lines {
		m := h2Re.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil || !containsAny(strings.ToLower(m[1]), p.h.DescriptionSections) {
			continue
		}
		if body := sectionBody(lines, i+1); body != "" {
			return body
		}
	}
	return fmt.Sprintf("Brief for %s implementation", bt)
}

// sectionBody joins the non-blank lines from start up to the next H2.
func sectionBody(lines []string, start int) string {
	var body []string
	for _, line := range lines[start:] {
		trimmed := strings.TrimSpace(line)
		if h2Re.MatchString(trimmed) {
			break
		}
		if trimmed != "" {
			body = append(body, trimmed)
		}
	}
	return strings.Join(body, " ")
}

func (p *Parser) items(lines []string, bt models.BriefType) []Item {
	sections, ok := p.h.TaskSections[bt]
	if !ok {
		return genericItems(lines)
	}
	var out []Item
	for _, sec := range sections {
		out = append(out, sectionItems(lines, sec)...)
	}
	return out
}

// sectionItems collects the items under the first H2/H3 heading containing
// sec.Heading, up to the next H2/H3 heading that does not.
func sectionItems(lines []string, sec heuristics.SectionSpec) []Item {
	var out []Item
	inSection := false
	want := strings.ToLower(sec.Heading)

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if m := sectionRe.FindStringSubmatch(trimmed); m != nil {
			if strings.Contains(strings.ToLower(m[1]), want) {
				inSection = true
				continue
			}
			if inSection {
				break
			}
		}
		if !inSection {
			continue
		}
		if it, ok := parseItem(trimmed); ok {
			it.Priority = sec.Priority
			it.Optional = sec.Optional
			out = append(out, it)
		}
	}
	return out
}

func parseItem(line string) (Item, bool) {
	if m := numberedRe.FindStringSubmatch(line); m != nil {
		return Item{Title: strings.TrimSpace(m[1]), Description: strings.TrimSpace(m[2])}, true
	}
	m := bulletRe.FindStringSubmatch(line)
	if m == nil {
		return Item{}, false
	}
	text := strings.TrimSpace(m[1])
	title, desc, found := strings.Cut(text, ":")
	if !found {
		return Item{Title: text, Description: text}, true
	}
	title = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(title), "*"))
	return Item{Title: title, Description: strings.TrimSpace(desc)}, true
}

// genericItems scans the whole document for numbered bold items.
func genericItems(lines []string) []Item {
	var out []Item
	for _, line := range lines {
		m := numberedRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		out = append(out, Item{
			Title:       strings.TrimSpace(m[1]),
			Description: strings.TrimSpace(m[2]),
			Priority:    models.PriorityMedium,
		})
	}
	return out
}

func (p *Parser) extractMetadata(content string, lines []string, bt models.BriefType) map[string]any {
	metadata := map[string]any{
		"brief_type": string(bt),
		"word_count": len(strings.Fields(content)),
		"line_count": len(lines),
	}
	if sec, ok := p.h.MetadataSections[bt]; ok {
		if body := firstSection(lines, sec.Heading); body != "" {
			metadata[sec.Key] = body
		}
	}
	return metadata
}

// firstSection returns the body of the first H2 whose heading contains name.
func firstSection(lines []string, name string) string {
	want := strings.ToLower(name)
	for i, line := range lines {
		m := h2Re.FindStringSubmatch(strings.TrimSpace(line))
		if m != nil && strings.Contains(strings.ToLower(m[1]), want) {
			return sectionBody(lines, i+1)
		}
	}
	return ""
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
