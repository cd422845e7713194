package controllers

import (
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

type CoursesController struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Engine *engine.Engine
}

func NewCoursesController(db *gorm.DB, cfg *config.Config, eng *engine.Engine) *CoursesController {
	return &CoursesController{DB: db, Cfg: cfg, Engine: eng}
}

func (cc *CoursesController) GetAvailableCourses(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, cc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	search := c.Query("search")

	query := cc.DB.Model(&models.Course{})
	if search != "" {
		query = query.Where("title LIKE ?", "%"+search+"%")
	}

	var courses []models.Course
	if err := query.Order("created_at DESC").Find(&courses).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	var result []fiber.Map
	for _, course := range courses {
		var lessonCount int64
		cc.DB.Model(&models.Lesson{}).Where("course_id = ?", course.ID).Count(&lessonCount)

		var enrollment models.Enrollment
		enrolled := cc.DB.Where("user_id = ? AND course_id = ?", userID, course.ID).
			First(&enrollment).Error == nil

		result = append(result, fiber.Map{
			"id":          course.ID,
			"title":       course.Title,
			"short_desc":  course.ShortDesc,
			"instructor":  course.Instructor,
			"logo_url":    course.LogoURL,
			"lessons":     lessonCount,
			"enrolled":    enrolled,
			"progress":    enrollment.ProgressPercentage,
		})
	}

	return c.JSON(result)
}

func (cc *CoursesController) GetCourseDetails(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, cc.Cfg)
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

	var course models.Course
	if err := cc.DB.
		Preload("Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence_order ASC")
		}).
		Preload("Lessons.Presentation.Slides", func(db *gorm.DB) *gorm.DB {
			return db.Order("slide_number ASC")
		}).
		First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Course not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	var enrollment models.Enrollment
	cc.DB.Where("user_id = ? AND course_id = ?", userID, courseID).First(&enrollment)

	var lessons []fiber.Map
	for _, lesson := range course.Lessons {
		var lessonProgress models.LessonProgress
		cc.DB.Where("user_id = ? AND lesson_id = ? AND course_id = ?", userID, lesson.ID, courseID).
			First(&lessonProgress)

		lessons = append(lessons, fiber.Map{
			"id":             lesson.ID,
			"title":          lesson.Title,
			"description":    lesson.Description,
			"sequence_order": lesson.SequenceOrder,
			"presentation":   lesson.Presentation,
			"completed":      lessonProgress.Completed,
			"completed_at":   lessonProgress.CompletedAt,
		})
	}

	return c.JSON(fiber.Map{
		"course": fiber.Map{
			"id":          course.ID,
			"title":       course.Title,
			"description": course.Description,
			"short_desc":  course.ShortDesc,
			"instructor":  course.Instructor,
			"logo_url":    course.LogoURL,
			"lessons":     lessons,
		},
		"enrollment": enrollment,
	})
}

func (cc *CoursesController) EnrollCourse(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, cc.Cfg)
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

	var course models.Course
	if err := cc.DB.First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Course not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	var enrollment models.Enrollment
	err = cc.DB.Where("user_id = ? AND course_id = ?", userID, courseID).First(&enrollment).Error
	if err == nil {
		return c.JSON(fiber.Map{
			"message":    "Already enrolled",
			"enrollment": enrollment,
		})
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	enrollment = models.Enrollment{
		UserID:       userID,
		CourseID:     uint(courseID),
		Status:       models.EnrollmentStatusActive,
		LastAccessed: time.Now(),
	}
	if err := cc.DB.Create(&enrollment).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create enrollment",
		})
	}

	return c.JSON(fiber.Map{
		"message":    "Enrolled",
		"enrollment": enrollment,
	})
}

type CreateCourseInput struct {
	Title       string `json:"title" validate:"required"`
	ShortDesc   string `json:"short_desc"`
	Description string `json:"description"`
	Instructor  string `json:"instructor"`
	LogoURL     string `json:"logo_url"`
}

func (cc *CoursesController) CreateCourse(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, cc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	var input CreateCourseInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}
	if err := validate.Struct(input); err != nil {
		return utils.ValidationError(c, validationDetails(err))
	}

	course := models.Course{
		Title:       input.Title,
		ShortDesc:   input.ShortDesc,
		Description: input.Description,
		Instructor:  input.Instructor,
		LogoURL:     input.LogoURL,
		AuthorID:    userID,
	}
	if err := cc.DB.Create(&course).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create course",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Course created",
		"course":  course,
	})
}

type AddLessonInput struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
}

func (cc *CoursesController) AddLesson(c *fiber.Ctx) error {
	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid course ID",
		})
	}

	var input AddLessonInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}
	if err := validate.Struct(input); err != nil {
		return utils.ValidationError(c, validationDetails(err))
	}

	var course models.Course
	if err := cc.DB.First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Course not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	var lessonCount int64
	cc.DB.Model(&models.Lesson{}).Where("course_id = ?", courseID).Count(&lessonCount)

	lesson := models.Lesson{
		CourseID:      uint(courseID),
		Title:         input.Title,
		Description:   input.Description,
		SequenceOrder: int(lessonCount) + 1,
	}
	if err := cc.DB.Create(&lesson).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create lesson",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Lesson added",
		"lesson":  lesson,
	})
}

type SlideInput struct {
	Title       string                 `json:"title"`
	ContentType string                 `json:"content_type" validate:"required,oneof=text image video pdf audio document quiz"`
	ContentURL  string                 `json:"content_url"`
	Metadata    map[string]interface{} `json:"metadata"`
}

type CreatePresentationInput struct {
	Title             string       `json:"title" validate:"required"`
	EstimatedDuration int          `json:"estimated_duration" validate:"gte=0"`
	Slides            []SlideInput `json:"slides" validate:"dive"`
}

// CreatePresentation attaches a presentation with its ordered slides to a
// lesson. Slide numbering follows the submitted order; the upload
// pipeline that turns documents into page images runs elsewhere and only
// its output refs land in slide metadata.
func (cc *CoursesController) CreatePresentation(c *fiber.Ctx) error {
	lessonID, err := strconv.Atoi(c.Params("lessonId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid lesson ID",
		})
	}

	var input CreatePresentationInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}
	if err := validate.Struct(input); err != nil {
		return utils.ValidationError(c, validationDetails(err))
	}

	var lesson models.Lesson
	if err := cc.DB.First(&lesson, lessonID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Lesson not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	presentation := models.Presentation{
		LessonID:          uint(lessonID),
		Title:             input.Title,
		EstimatedDuration: input.EstimatedDuration,
	}
	for i, slide := range input.Slides {
		presentation.Slides = append(presentation.Slides, models.Slide{
			SlideNumber: i + 1,
			Title:       slide.Title,
			ContentType: slide.ContentType,
			ContentURL:  slide.ContentURL,
			Metadata:    datatypes.JSONMap(slide.Metadata),
		})
	}

	if err := cc.DB.Create(&presentation).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create presentation",
		})
	}

	return c.JSON(fiber.Map{
		"message":      "Presentation created",
		"presentation": presentation,
	})
}
