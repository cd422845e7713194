package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Course struct {
	gorm.Model
	Title       string
	ShortDesc   string
	Description string
	Instructor  string
	AuthorID    uint
	LogoURL     string
	Lessons     []Lesson
}

type Lesson struct {
	gorm.Model
	CourseID      uint `gorm:"index"`
	Title         string
	Description   string
	SequenceOrder int
	Presentation  *Presentation
}

type Presentation struct {
	gorm.Model
	LessonID          uint `gorm:"index"`
	Title             string
	EstimatedDuration int // minutes
	Slides            []Slide
}

// Slide content types. Document slides carry ordered page image refs in
// Metadata produced by the upload pipeline; quiz slides carry quiz_id.
const (
	ContentTypeText     = "text"
	ContentTypeImage    = "image"
	ContentTypeVideo    = "video"
	ContentTypePDF      = "pdf"
	ContentTypeAudio    = "audio"
	ContentTypeDocument = "document"
	ContentTypeQuiz     = "quiz"
)

type Slide struct {
	gorm.Model
	PresentationID uint `gorm:"uniqueIndex:idx_presentation_slide_number"`
	SlideNumber    int  `gorm:"uniqueIndex:idx_presentation_slide_number"`
	Title          string
	ContentType    string
	ContentURL     string
	Metadata       datatypes.JSONMap
}

const (
	EnrollmentStatusActive    = "active"
	EnrollmentStatusCompleted = "completed"
)

// Enrollment carries the derived course completion percentage. It is
// recomputed from lesson progress rows on every trigger, never patched
// incrementally. CompletedAt is non-nil iff ProgressPercentage is 100.
type Enrollment struct {
	gorm.Model
	UserID             uint   `gorm:"uniqueIndex:idx_user_course_enrollment"`
	CourseID           uint   `gorm:"uniqueIndex:idx_user_course_enrollment"`
	Status             string `gorm:"default:active"`
	ProgressPercentage int
	CompletedAt        *time.Time
	LastAccessed       time.Time
}
