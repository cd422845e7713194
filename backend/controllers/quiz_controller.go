package controllers

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Rhytah/Kyzer-sub001/backend/config"
	"github.com/Rhytah/Kyzer-sub001/backend/engine"
	"github.com/Rhytah/Kyzer-sub001/backend/models"
	"github.com/Rhytah/Kyzer-sub001/backend/utils"
)

type QuizController struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Engine *engine.Engine
}

func NewQuizController(db *gorm.DB, cfg *config.Config, eng *engine.Engine) *QuizController {
	return &QuizController{DB: db, Cfg: cfg, Engine: eng}
}

func (qc *QuizController) GetQuizDetails(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, qc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	quizID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid quiz ID",
		})
	}

	var quiz models.Quiz
	if err := qc.DB.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("sequence_order ASC")
	}).First(&quiz, quizID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Quiz not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	// correct answers are never sent to the learner
	var questions []fiber.Map
	for _, q := range quiz.Questions {
		var options []string
		json.Unmarshal([]byte(q.Options), &options)

		questions = append(questions, fiber.Map{
			"id":             q.ID,
			"question":       q.Question,
			"question_type":  q.QuestionType,
			"options":        options,
			"sequence_order": q.SequenceOrder,
		})
	}

	var attemptsUsed int64
	qc.DB.Model(&models.QuizAttempt{}).
		Where("user_id = ? AND quiz_id = ?", userID, quizID).
		Count(&attemptsUsed)

	return c.JSON(fiber.Map{
		"quiz": fiber.Map{
			"id":                 quiz.ID,
			"title":              quiz.Title,
			"description":        quiz.Description,
			"pass_threshold":     quiz.PassThreshold,
			"time_limit_minutes": quiz.TimeLimitMinutes,
			"max_attempts":       quiz.MaxAttempts,
			"questions":          questions,
		},
		"attempts_used": attemptsUsed,
	})
}

type SubmitQuizInput struct {
	// question_id -> submitted answer; the JSON shape depends on the
	// question type (index, index set, boolean or string)
	Answers          map[string]json.RawMessage `json:"answers" validate:"required"`
	SlideID          uint                       `json:"slide_id"`
	SecondsRemaining int                        `json:"seconds_remaining" validate:"gte=0"`
	TimeSpentSeconds int                        `json:"time_spent_seconds" validate:"gte=0"`
}

// SubmitQuiz evaluates the submission, appends a QuizAttempt and feeds
// the result into the completion cascade: through the quiz slide when the
// quiz is embedded in a presentation, or directly onto the lesson when it
// stands alone. Viewing a quiz slide completes it regardless of the
// score — passing is a separate matter recorded on the attempt.
func (qc *QuizController) SubmitQuiz(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, qc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	quizID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid quiz ID",
		})
	}

	var input SubmitQuizInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}
	if err := validate.Struct(input); err != nil {
		return utils.ValidationError(c, validationDetails(err))
	}

	var quiz models.Quiz
	if err := qc.DB.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("sequence_order ASC")
	}).First(&quiz, quizID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Quiz not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	var attemptsUsed int64
	qc.DB.Model(&models.QuizAttempt{}).
		Where("user_id = ? AND quiz_id = ?", userID, quizID).
		Count(&attemptsUsed)
	if quiz.MaxAttempts > 0 && attemptsUsed >= int64(quiz.MaxAttempts) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "No attempts left",
		})
	}

	answers := make(map[uint]json.RawMessage, len(input.Answers))
	for key, value := range input.Answers {
		questionID, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid question ID in answers",
			})
		}
		answers[uint(questionID)] = value
	}

	result := engine.EvaluateQuiz(&quiz, answers)

	timeSpent := input.TimeSpentSeconds
	if quiz.TimeLimitMinutes > 0 {
		timeSpent = quiz.TimeLimitMinutes*60 - input.SecondsRemaining
		if timeSpent < 0 {
			timeSpent = 0
		}
	}

	answersJSON, _ := json.Marshal(input.Answers)
	attempt := models.QuizAttempt{
		UserID:           userID,
		QuizID:           uint(quizID),
		Answers:          datatypes.JSON(answersJSON),
		Score:            result.Score,
		MaxScore:         result.MaxScore,
		Percentage:       result.Percentage,
		Passed:           result.Passed,
		TimeSpentSeconds: timeSpent,
		CompletedAt:      time.Now(),
	}
	if err := qc.DB.Create(&attempt).Error; err != nil {
		// leaf write failure: surface it, the cascade does not run
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not save attempt",
		})
	}

	if input.SlideID != 0 {
		qc.cascadeThroughSlide(userID, input.SlideID, &quiz, result, timeSpent)
	} else if quiz.LessonID != 0 {
		qc.cascadeStandalone(userID, &quiz, result)
	}

	return c.JSON(fiber.Map{
		"message": "Quiz submitted",
		"attempt": fiber.Map{
			"id":           attempt.ID,
			"score":        attempt.Score,
			"max_score":    attempt.MaxScore,
			"percentage":   attempt.Percentage,
			"passed":       attempt.Passed,
			"time_spent":   attempt.TimeSpentSeconds,
			"completed_at": attempt.CompletedAt,
		},
		"results":       result.Results,
		"attempts_used": attemptsUsed + 1,
	})
}

// cascadeThroughSlide records the quiz slide as viewed with the full
// quiz_scores map carried over from the previous slide state, then lets
// the engine take it from there.
func (qc *QuizController) cascadeThroughSlide(userID, slideID uint, quiz *models.Quiz, result *engine.EvaluationResult, timeSpent int) {
	var slide models.Slide
	if err := qc.DB.First(&slide, slideID).Error; err != nil {
		qc.Engine.Log.Printf("quiz %d: slide %d lookup failed: %v", quiz.ID, slideID, err)
		return
	}
	var presentation models.Presentation
	if err := qc.DB.First(&presentation, slide.PresentationID).Error; err != nil {
		qc.Engine.Log.Printf("quiz %d: presentation lookup failed: %v", quiz.ID, err)
		return
	}
	var lesson models.Lesson
	if err := qc.DB.First(&lesson, presentation.LessonID).Error; err != nil {
		qc.Engine.Log.Printf("quiz %d: lesson lookup failed: %v", quiz.ID, err)
		return
	}

	quizScores := map[string]interface{}{}
	var previous models.SlideProgress
	if err := qc.DB.Where("user_id = ? AND slide_id = ?", userID, slideID).
		First(&previous).Error; err == nil {
		if scores, ok := previous.Metadata["quiz_scores"].(map[string]interface{}); ok {
			for k, v := range scores {
				quizScores[k] = v
			}
		}
	}
	quizScores[strconv.FormatUint(uint64(quiz.ID), 10)] = result.Percentage

	_, err := qc.Engine.Slides.RecordSlideProgress(
		userID, slideID, slide.PresentationID, presentation.LessonID, lesson.CourseID,
		engine.SlideProgressInput{
			TimeSpentSeconds: timeSpent,
			Completed:        true,
			Metadata: datatypes.JSONMap{
				"quiz_scores": quizScores,
				"passed":      result.Passed,
			},
		})
	if err != nil {
		qc.Engine.Log.Printf("quiz %d: slide progress failed: %v", quiz.ID, err)
	}
}

// cascadeStandalone completes the quiz's lesson on a pass. On a failed
// retake it clears a completion this same quiz produced earlier, so the
// course percentage regresses honestly.
func (qc *QuizController) cascadeStandalone(userID uint, quiz *models.Quiz, result *engine.EvaluationResult) {
	provenance := datatypes.JSONMap{
		"completed_via": "quiz",
		"quiz_id":       quiz.ID,
		"percentage":    result.Percentage,
	}

	if result.Passed {
		if _, err := qc.Engine.Lessons.MarkLessonComplete(userID, quiz.LessonID, quiz.CourseID, true, provenance); err != nil {
			qc.Engine.Log.Printf("quiz %d: lesson completion failed: %v", quiz.ID, err)
		}
		return
	}

	var existing models.LessonProgress
	err := qc.DB.Where("user_id = ? AND lesson_id = ? AND course_id = ?", userID, quiz.LessonID, quiz.CourseID).
		First(&existing).Error
	if err != nil || !existing.Completed {
		return
	}
	via, _ := existing.Metadata["completed_via"].(string)
	earlierQuizID, _ := existing.Metadata["quiz_id"].(float64)
	if via == "quiz" && uint(earlierQuizID) == quiz.ID {
		if _, err := qc.Engine.Lessons.MarkLessonComplete(userID, quiz.LessonID, quiz.CourseID, false, provenance); err != nil {
			qc.Engine.Log.Printf("quiz %d: lesson un-completion failed: %v", quiz.ID, err)
		}
	}
}

func (qc *QuizController) GetQuizAttempts(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, qc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	quizID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid quiz ID",
		})
	}

	var attempts []models.QuizAttempt
	if err := qc.DB.Where("user_id = ? AND quiz_id = ?", userID, quizID).
		Order("completed_at ASC").
		Find(&attempts).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	var result []fiber.Map
	for i, attempt := range attempts {
		result = append(result, fiber.Map{
			"attempt":      i + 1,
			"score":        attempt.Score,
			"max_score":    attempt.MaxScore,
			"percentage":   attempt.Percentage,
			"passed":       attempt.Passed,
			"time_spent":   attempt.TimeSpentSeconds,
			"completed_at": attempt.CompletedAt,
		})
	}

	return c.JSON(fiber.Map{
		"attempts": result,
	})
}

type QuestionInput struct {
	Question      string          `json:"question" validate:"required"`
	QuestionType  string          `json:"question_type" validate:"required,oneof=single_choice multi_select true_false short_answer"`
	Options       []string        `json:"options"`
	CorrectAnswer json.RawMessage `json:"correct_answer" validate:"required"`
}

type CreateQuizInput struct {
	CourseID         uint            `json:"course_id" validate:"required"`
	LessonID         uint            `json:"lesson_id"`
	Title            string          `json:"title" validate:"required"`
	Description      string          `json:"description"`
	PassThreshold    int             `json:"pass_threshold" validate:"gte=0,lte=100"`
	TimeLimitMinutes int             `json:"time_limit_minutes" validate:"gte=0"`
	MaxAttempts      int             `json:"max_attempts" validate:"gte=0"`
	Questions        []QuestionInput `json:"questions" validate:"dive"`
}

func (qc *QuizController) CreateQuiz(c *fiber.Ctx) error {
	var input CreateQuizInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}
	if err := validate.Struct(input); err != nil {
		return utils.ValidationError(c, validationDetails(err))
	}

	if input.PassThreshold == 0 {
		input.PassThreshold = 70
	}
	if input.MaxAttempts == 0 {
		input.MaxAttempts = 3
	}

	quiz := models.Quiz{
		CourseID:         input.CourseID,
		LessonID:         input.LessonID,
		Title:            input.Title,
		Description:      input.Description,
		PassThreshold:    input.PassThreshold,
		TimeLimitMinutes: input.TimeLimitMinutes,
		MaxAttempts:      input.MaxAttempts,
	}

	for i, q := range input.Questions {
		if err := validateCorrectAnswer(&q); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		optionsJSON, _ := json.Marshal(q.Options)
		quiz.Questions = append(quiz.Questions, models.Question{
			Question:      q.Question,
			QuestionType:  q.QuestionType,
			Options:       datatypes.JSON(optionsJSON),
			CorrectAnswer: datatypes.JSON(q.CorrectAnswer),
			SequenceOrder: i + 1,
		})
	}

	if err := qc.DB.Create(&quiz).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create quiz",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Quiz created",
		"quiz":    quiz,
	})
}

// validateCorrectAnswer checks that the stored answer decodes to the
// shape the question type demands and that option indices are in range.
func validateCorrectAnswer(q *QuestionInput) error {
	switch q.QuestionType {
	case models.QuestionTypeSingleChoice:
		var index int
		if err := json.Unmarshal(q.CorrectAnswer, &index); err != nil {
			return errors.New("single_choice correct_answer must be an option index")
		}
		if index < 0 || index >= len(q.Options) {
			return errors.New("correct_answer index out of range")
		}
	case models.QuestionTypeMultiSelect:
		var indices []int
		if err := json.Unmarshal(q.CorrectAnswer, &indices); err != nil {
			return errors.New("multi_select correct_answer must be a list of option indices")
		}
		for _, index := range indices {
			if index < 0 || index >= len(q.Options) {
				return errors.New("correct_answer index out of range")
			}
		}
	case models.QuestionTypeTrueFalse:
		var value bool
		if err := json.Unmarshal(q.CorrectAnswer, &value); err != nil {
			return errors.New("true_false correct_answer must be a boolean")
		}
	case models.QuestionTypeShortAnswer:
		var value string
		if err := json.Unmarshal(q.CorrectAnswer, &value); err != nil {
			return errors.New("short_answer correct_answer must be a string")
		}
	}
	return nil
}
