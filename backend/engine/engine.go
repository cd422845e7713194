// Package engine implements the progress and completion cascade: a slide
// interaction recomputes presentation progress, which can complete a
// lesson, which recomputes course progress, which can issue a certificate.
// Every aggregate is re-derived from its source rows on each trigger, so
// any step can be re-run safely and a missed update heals on the next
// interaction.
package engine

import (
	"log"

	"gorm.io/gorm"
)

type Engine struct {
	DB  *gorm.DB
	Log *log.Logger

	Slides        *SlideProgressRecorder
	Presentations *PresentationProgressAggregator
	Lessons       *LessonProgressTracker
	Courses       *CourseProgressAggregator
	Certificates  *CertificateIssuer
}

// New wires the cascade bottom-up. organization is stamped into issued
// certificate payloads.
func New(db *gorm.DB, logger *log.Logger, organization string) *Engine {
	e := &Engine{DB: db, Log: logger}
	e.Certificates = &CertificateIssuer{DB: db, Log: logger, Organization: organization}
	e.Courses = &CourseProgressAggregator{DB: db, Log: logger, Certificates: e.Certificates}
	e.Lessons = &LessonProgressTracker{DB: db, Log: logger, Courses: e.Courses}
	e.Presentations = &PresentationProgressAggregator{DB: db, Log: logger, Lessons: e.Lessons}
	e.Slides = &SlideProgressRecorder{DB: db, Log: logger, Presentations: e.Presentations}
	return e
}
