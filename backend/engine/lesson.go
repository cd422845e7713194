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

type LessonProgressTracker struct {
	DB      *gorm.DB
	Log     *log.Logger
	Courses *CourseProgressAggregator
}

// MarkLessonComplete upserts the (user, lesson, course) row and always
// re-derives course progress afterwards. completed=false is a real
// transition — a failed quiz retake clears an earlier pass — so the
// course aggregate must cope with counts going down as well as up.
func (t *LessonProgressTracker) MarkLessonComplete(userID, lessonID, courseID uint, completed bool, metadata datatypes.JSONMap) (*models.LessonProgress, error) {
	row := models.LessonProgress{
		UserID:    userID,
		LessonID:  lessonID,
		CourseID:  courseID,
		Completed: completed,
		Metadata:  metadata,
	}
	if completed {
		now := time.Now().UTC()
		row.CompletedAt = &now
	}

	if err := t.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "lesson_id"}, {Name: "course_id"}},
		UpdateAll: true,
	}).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("save lesson progress: %w", err)
	}

	if _, err := t.Courses.Recompute(userID, courseID); err != nil {
		t.Log.Printf("lesson %d: course recompute failed: %v", lessonID, err)
	}

	return &row, nil
}
