package engine

import (
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Rhytah/Kyzer-sub001/backend/models"
)

type CourseProgressAggregator struct {
	DB           *gorm.DB
	Log          *log.Logger
	Certificates *CertificateIssuer
}

// Recompute counts lessons and completed lesson-progress rows and writes
// the derived percentage onto the enrollment. Unlike presentation
// progress, completed_at here is not sticky: un-completing a lesson pulls
// it back to NULL. The computed percentage is returned even when
// persistence fails so callers can still show it; the row heals on the
// next trigger.
func (a *CourseProgressAggregator) Recompute(userID, courseID uint) (int, error) {
	var totalLessons int64
	if err := a.DB.Model(&models.Lesson{}).
		Where("course_id = ?", courseID).
		Count(&totalLessons).Error; err != nil {
		return 0, fmt.Errorf("count lessons: %w", err)
	}

	var completedLessons int64
	if err := a.DB.Model(&models.LessonProgress{}).
		Where("user_id = ? AND course_id = ? AND completed = ?", userID, courseID, true).
		Count(&completedLessons).Error; err != nil {
		return 0, fmt.Errorf("count lesson progress: %w", err)
	}

	percentage := 0
	if totalLessons > 0 {
		percentage = roundPercent(int(completedLessons), int(totalLessons))
	}

	now := time.Now().UTC()
	enrollment := models.Enrollment{
		UserID:             userID,
		CourseID:           courseID,
		Status:             models.EnrollmentStatusActive,
		ProgressPercentage: percentage,
		LastAccessed:       now,
	}
	if percentage == 100 {
		enrollment.Status = models.EnrollmentStatusCompleted
		enrollment.CompletedAt = &now
	}

	if err := a.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
		UpdateAll: true,
	}).Create(&enrollment).Error; err != nil {
		a.Log.Printf("course %d: enrollment update failed: %v", courseID, err)
		return percentage, fmt.Errorf("save enrollment: %w", err)
	}

	if percentage == 100 {
		if _, err := a.Certificates.EnsureCertificate(userID, courseID); err != nil {
			// the percentage stays correct and visible even without a
			// certificate; the next completion trigger retries issuance
			a.Log.Printf("course %d: certificate issuance failed: %v", courseID, err)
		}
	}

	return percentage, nil
}
