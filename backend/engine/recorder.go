package engine

import (
	"fmt"
	"log"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Rhytah/Kyzer-sub001/backend/models"
)

// SlideProgressInput is the latest known state of one slide interaction.
// A new call replaces the previous row outright; time and metadata are
// not accumulated across calls. Metadata's quiz_scores map must be the
// full current mapping, not a delta.
type SlideProgressInput struct {
	TimeSpentSeconds int
	Completed        bool
	Metadata         datatypes.JSONMap
}

type SlideProgressRecorder struct {
	DB            *gorm.DB
	Log           *log.Logger
	Presentations *PresentationProgressAggregator
}

// RecordSlideProgress upserts the single (user, slide) row and then
// recomputes presentation progress. The slide write is durable on its
// own: a failed recompute is logged and swallowed because the aggregate
// is fully re-derived from slide rows on the next interaction anyway.
func (r *SlideProgressRecorder) RecordSlideProgress(userID, slideID, presentationID, lessonID, courseID uint, input SlideProgressInput) (*models.SlideProgress, error) {
	if presentationID == 0 || lessonID == 0 || courseID == 0 {
		return nil, ErrMissingContext
	}

	row := models.SlideProgress{
		UserID:           userID,
		SlideID:          slideID,
		PresentationID:   presentationID,
		LessonID:         lessonID,
		CourseID:         courseID,
		ViewedAt:         time.Now().UTC(),
		TimeSpentSeconds: input.TimeSpentSeconds,
		Completed:        input.Completed,
		Metadata:         input.Metadata,
	}

	if err := r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "slide_id"}},
		UpdateAll: true,
	}).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("record slide progress: %w", err)
	}

	if _, err := r.Presentations.Recompute(userID, presentationID, lessonID, courseID); err != nil {
		r.Log.Printf("slide %d: presentation recompute failed: %v", slideID, err)
	}

	return &row, nil
}
