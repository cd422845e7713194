package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SlideProgress is the leaf record of the completion cascade: one row per
// (user, slide), overwritten whole on every interaction. Metadata holds
// the quiz_scores map for quiz slides plus free-form interaction details.
type SlideProgress struct {
	gorm.Model
	UserID           uint `gorm:"uniqueIndex:idx_slide_progress_user_slide"`
	SlideID          uint `gorm:"uniqueIndex:idx_slide_progress_user_slide"`
	PresentationID   uint `gorm:"index"`
	LessonID         uint
	CourseID         uint
	ViewedAt         time.Time
	TimeSpentSeconds int
	Completed        bool
	Metadata         datatypes.JSONMap
}

// PresentationProgress is derived entirely from SlideProgress rows.
// CompletedAt is set once on the transition into 100% and kept on later
// recomputes; it is nulled again if the percentage drops below 100.
type PresentationProgress struct {
	gorm.Model
	UserID                uint `gorm:"uniqueIndex:idx_presentation_progress_user_pres"`
	PresentationID        uint `gorm:"uniqueIndex:idx_presentation_progress_user_pres"`
	LessonID              uint
	CourseID              uint
	CompletedSlides       int
	TotalSlides           int
	ProgressPercentage    int
	TotalTimeSpentSeconds int
	Completed             bool
	CompletedAt           *time.Time
	LastAccessed          time.Time
	Metadata              datatypes.JSONMap
}

// LessonProgress records that a lesson was completed and how
// (metadata.completed_via: presentation, quiz or manual).
type LessonProgress struct {
	gorm.Model
	UserID      uint `gorm:"uniqueIndex:idx_lesson_progress_user_lesson_course"`
	LessonID    uint `gorm:"uniqueIndex:idx_lesson_progress_user_lesson_course"`
	CourseID    uint `gorm:"uniqueIndex:idx_lesson_progress_user_lesson_course"`
	Completed   bool
	CompletedAt *time.Time
	Metadata    datatypes.JSONMap
}
