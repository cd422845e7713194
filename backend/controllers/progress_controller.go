package controllers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Rhytah/Kyzer-sub001/backend/config"
	"github.com/Rhytah/Kyzer-sub001/backend/engine"
	"github.com/Rhytah/Kyzer-sub001/backend/models"
	"github.com/Rhytah/Kyzer-sub001/backend/utils"
)

type ProgressController struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Engine *engine.Engine
}

func NewProgressController(db *gorm.DB, cfg *config.Config, eng *engine.Engine) *ProgressController {
	return &ProgressController{DB: db, Cfg: cfg, Engine: eng}
}

type SlideProgressRequest struct {
	TimeSpentSeconds int                    `json:"time_spent_seconds" validate:"gte=0"`
	Completed        bool                   `json:"completed"`
	Metadata         map[string]interface{} `json:"metadata"`
}

// RecordSlideProgress godoc
// @Summary Record slide progress
// @Description Records that the learner viewed a slide and recomputes the completion cascade
// @Tags progress
// @Accept json
// @Produce json
// @Param id path int true "Slide ID"
// @Param input body SlideProgressRequest true "Slide interaction state"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /slides/{id}/progress [post]
func (pc *ProgressController) RecordSlideProgress(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, pc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	slideID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid slide ID",
		})
	}

	var input SlideProgressRequest
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}
	if err := validate.Struct(input); err != nil {
		return utils.ValidationError(c, validationDetails(err))
	}

	// resolve the cascade context from the slide itself
	var slide models.Slide
	if err := pc.DB.First(&slide, slideID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Slide not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}
	var presentation models.Presentation
	if err := pc.DB.First(&presentation, slide.PresentationID).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}
	var lesson models.Lesson
	if err := pc.DB.First(&lesson, presentation.LessonID).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	progress, err := pc.Engine.Slides.RecordSlideProgress(
		userID, slide.ID, slide.PresentationID, presentation.LessonID, lesson.CourseID,
		engine.SlideProgressInput{
			TimeSpentSeconds: input.TimeSpentSeconds,
			Completed:        input.Completed,
			Metadata:         datatypes.JSONMap(input.Metadata),
		})
	if err != nil {
		if errors.Is(err, engine.ErrMissingContext) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Slide is not attached to a presentation",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not save progress",
		})
	}

	return c.JSON(fiber.Map{
		"message":  "Progress recorded",
		"progress": progress,
	})
}

func (pc *ProgressController) GetPresentationProgress(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, pc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	presentationID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid presentation ID",
		})
	}

	var progress models.PresentationProgress
	if err := pc.DB.Where("user_id = ? AND presentation_id = ?", userID, presentationID).
		First(&progress).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(fiber.Map{
				"progress": fiber.Map{
					"presentation_id":     presentationID,
					"progress_percentage": 0,
					"completed":           false,
				},
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	return c.JSON(fiber.Map{
		"progress": progress,
	})
}

func (pc *ProgressController) GetCourseProgress(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, pc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid course ID",
		})
	}

	var enrollment models.Enrollment
	if err := pc.DB.Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&enrollment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Not enrolled",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	var lessonProgress []models.LessonProgress
	pc.DB.Where("user_id = ? AND course_id = ?", userID, courseID).Find(&lessonProgress)

	return c.JSON(fiber.Map{
		"enrollment": enrollment,
		"lessons":    lessonProgress,
	})
}

type MarkLessonRequest struct {
	Completed bool `json:"completed"`
}

// MarkLessonComplete lets a learner complete (or un-complete) a lesson by
// hand; the provenance tag distinguishes this from presentation- and
// quiz-driven completions.
func (pc *ProgressController) MarkLessonComplete(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, pc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	lessonID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid lesson ID",
		})
	}

	var input MarkLessonRequest
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}

	var lesson models.Lesson
	if err := pc.DB.First(&lesson, lessonID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Lesson not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	progress, err := pc.Engine.Lessons.MarkLessonComplete(
		userID, lesson.ID, lesson.CourseID, input.Completed,
		datatypes.JSONMap{"completed_via": "manual"},
	)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not save progress",
		})
	}

	return c.JSON(fiber.Map{
		"message":  "Lesson progress updated",
		"progress": progress,
	})
}
