package engine

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Rhytah/Kyzer-sub001/backend/models"
)

type PresentationProgressAggregator struct {
	DB      *gorm.DB
	Log     *log.Logger
	Lessons *LessonProgressTracker
}

// Recompute derives presentation progress entirely from the slide rows.
// The slide table is the source of truth for the total, so a learner with
// no progress rows still gets a correct 0%. Running it twice with no new
// slide writes produces the same derived state, which matters because the
// recorder calls it unconditionally on every slide write.
func (a *PresentationProgressAggregator) Recompute(userID, presentationID, lessonID, courseID uint) (*models.PresentationProgress, error) {
	var totalSlides int64
	if err := a.DB.Model(&models.Slide{}).
		Where("presentation_id = ?", presentationID).
		Count(&totalSlides).Error; err != nil {
		return nil, fmt.Errorf("count slides: %w", err)
	}

	var rows []models.SlideProgress
	if err := a.DB.
		Where("user_id = ? AND presentation_id = ? AND completed = ?", userID, presentationID, true).
		Order("viewed_at ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load slide progress: %w", err)
	}

	completedCount := len(rows)
	percentage := 0
	if totalSlides > 0 {
		percentage = roundPercent(completedCount, int(totalSlides))
	}

	totalTime := 0
	quizScores := map[string]interface{}{}
	for _, row := range rows {
		totalTime += row.TimeSpentSeconds
		// later-viewed rows win on key collision
		if scores, ok := row.Metadata["quiz_scores"].(map[string]interface{}); ok {
			for k, v := range scores {
				quizScores[k] = v
			}
		}
	}

	var existing models.PresentationProgress
	err := a.DB.Where("user_id = ? AND presentation_id = ?", userID, presentationID).
		First(&existing).Error
	notFound := errors.Is(err, gorm.ErrRecordNotFound)
	if err != nil && !notFound {
		return nil, fmt.Errorf("load presentation progress: %w", err)
	}
	wasComplete := !notFound && existing.Completed

	metadata := datatypes.JSONMap{"quiz_scores": quizScores}
	if completedCount > 0 {
		metadata["last_slide_viewed"] = rows[completedCount-1].SlideID
	}

	now := time.Now().UTC()
	progress := models.PresentationProgress{
		UserID:                userID,
		PresentationID:        presentationID,
		LessonID:              lessonID,
		CourseID:              courseID,
		CompletedSlides:       completedCount,
		TotalSlides:           int(totalSlides),
		ProgressPercentage:    percentage,
		TotalTimeSpentSeconds: totalTime,
		Completed:             percentage == 100,
		LastAccessed:          now,
		Metadata:              metadata,
	}
	switch {
	case progress.Completed && wasComplete:
		progress.CompletedAt = existing.CompletedAt // sticky on re-trigger
	case progress.Completed:
		progress.CompletedAt = &now
	}

	if err := a.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "presentation_id"}},
		UpdateAll: true,
	}).Create(&progress).Error; err != nil {
		return nil, fmt.Errorf("save presentation progress: %w", err)
	}

	if progress.Completed && !wasComplete {
		provenance := datatypes.JSONMap{
			"completed_via":    "presentation",
			"presentation_id":  presentationID,
			"slides_completed": completedCount,
			"total_time_spent": totalTime,
			"quiz_scores":      quizScores,
		}
		if _, err := a.Lessons.MarkLessonComplete(userID, lessonID, courseID, true, provenance); err != nil {
			a.Log.Printf("presentation %d: lesson completion failed: %v", presentationID, err)
		}
	}

	return &progress, nil
}
