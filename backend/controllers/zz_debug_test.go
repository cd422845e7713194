package controllers_test

import (
	"testing"

	"github.com/Rhytah/Kyzer-sub001/backend/models"
	"gorm.io/gorm"
)

func TestZZDebugQuiz(t *testing.T) {
	_, _, _, quizID := seedContent(t, "Debug Quiz Course")
	var quiz models.Quiz
	err := db.Preload("Questions", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("sequence_order ASC")
	}).First(&quiz, quizID).Error
	t.Logf("quiz query err: %v", err)
}
