package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Quiz struct {
	gorm.Model
	CourseID         uint `gorm:"index"`
	LessonID         uint `gorm:"index"`
	Title            string
	Description      string
	PassThreshold    int `gorm:"default:70"` // percentage
	TimeLimitMinutes int
	MaxAttempts      int `gorm:"default:3"`
	Questions        []Question
}

// Question types. The shape of CorrectAnswer depends on the type:
// single_choice is an option index, multi_select a set of option indices,
// true_false a boolean, short_answer a string.
const (
	QuestionTypeSingleChoice = "single_choice"
	QuestionTypeMultiSelect  = "multi_select"
	QuestionTypeTrueFalse    = "true_false"
	QuestionTypeShortAnswer  = "short_answer"
)

type Question struct {
	gorm.Model
	QuizID        uint `gorm:"index"`
	QuestionType  string
	Question      string
	Options       datatypes.JSON // ordered option texts, choice types only
	CorrectAnswer datatypes.JSON
	SequenceOrder int
}

// QuizAttempt rows are append-only; (user_id, quiz_id) is deliberately
// not unique.
type QuizAttempt struct {
	gorm.Model
	UserID           uint `gorm:"index:idx_quiz_attempt_user_quiz"`
	QuizID           uint `gorm:"index:idx_quiz_attempt_user_quiz"`
	Answers          datatypes.JSON
	Score            int
	MaxScore         int
	Percentage       int
	Passed           bool
	TimeSpentSeconds int
	CompletedAt      time.Time
}
