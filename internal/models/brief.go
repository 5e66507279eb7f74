package models

import (
	"fmt"
	"path/filepath"
	"strings"
)

// BriefType classifies a brief document. The set is closed.
type BriefType string

const (
	BriefSetup      BriefType = "setup"
	BriefFeature    BriefType = "feature"
	BriefDeployment BriefType = "deployment"
)

// BriefTypes lists every brief type in processing order.
var BriefTypes = []BriefType{BriefSetup, BriefFeature, BriefDeployment}

// ParseBriefType converts s to a BriefType.
func ParseBriefType(s string) (BriefType, error) {
	bt := BriefType(strings.ToLower(strings.TrimSpace(s)))
	if !bt.Valid() {
		return "", fmt.Errorf("%w: unknown brief type %q (must be setup, feature, or deployment)", ErrInvalidBrief, s)
	}
	return bt, nil
}

// Valid reports whether bt is one of setup, feature or deployment.
func (bt BriefType) Valid() bool {
	switch bt {
	case BriefSetup, BriefFeature, BriefDeployment:
		return true
	}
	return false
}

// Order is the processing rank: setup before feature before deployment.
// Unknown types sort with features.
func (bt BriefType) Order() int {
	switch bt {
	case BriefSetup:
		return 0
	case BriefDeployment:
		return 2
	default:
		return 1
	}
}

// BriefContent is the parsed form of one brief document.
type BriefContent struct {
	FilePath    string         `json:"file_path"`
	Type        BriefType      `json:"brief_type"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Tasks       []string       `json:"tasks"`
	Metadata    map[string]any `json:"metadata"`
}

// NewBriefContent validates and builds a BriefContent.
func NewBriefContent(path string, bt BriefType, title, description string, tasks []string, metadata map[string]any) (*BriefContent, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: title cannot be empty", ErrInvalidBrief)
	}
	if !bt.Valid() {
		return nil, fmt.Errorf("%w: invalid brief type %q", ErrInvalidBrief, bt)
	}
	if tasks == nil {
		tasks = []string{}
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &BriefContent{
		FilePath:    path,
		Type:        bt,
		Title:       title,
		Description: description,
		Tasks:       tasks,
		Metadata:    metadata,
	}, nil
}

// Name is the base file name of the brief.
func (b *BriefContent) Name() string {
	return filepath.Base(b.FilePath)
}

// Stem is the base file name without its extension.
func (b *BriefContent) Stem() string {
	name := b.Name()
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// Text is the lowercased description followed by every raw task string.
func (b *BriefContent) Text() string {
	return strings.ToLower(b.Description + " " + strings.Join(b.Tasks, " "))
}
