package models

import "time"

// GenerationRun records one generate invocation in the history store.
type GenerationRun struct {
	ID               string `gorm:"primaryKey;size:36"`
	Project          string `gorm:"size:255;index"`
	OutputPath       string `gorm:"size:1024"`
	BriefCount       int
	TotalTasks       int
	NewTasks         int
	UnlockedTasks    int
	Suggestions      int
	Applied          int
	ValidationErrors int
	Warnings         string    `gorm:"type:text"` // JSON array of warning strings
	CreatedAt        time.Time `gorm:"index"`

	Briefs []RunBrief `gorm:"foreignKey:RunID"`
}

// RunBrief is one brief processed during a GenerationRun.
type RunBrief struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	RunID     string `gorm:"size:36;not null;index"`
	File      string `gorm:"size:255;not null"`
	Type      string `gorm:"size:16"`
	Title     string `gorm:"size:255"`
	TaskCount int
}
