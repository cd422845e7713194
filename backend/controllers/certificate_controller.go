package controllers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/Rhytah/Kyzer-sub001/backend/config"
	"github.com/Rhytah/Kyzer-sub001/backend/engine"
	"github.com/Rhytah/Kyzer-sub001/backend/models"
	"github.com/Rhytah/Kyzer-sub001/backend/utils"
)

type CertificateController struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Engine *engine.Engine
}

func NewCertificateController(db *gorm.DB, cfg *config.Config, eng *engine.Engine) *CertificateController {
	return &CertificateController{DB: db, Cfg: cfg, Engine: eng}
}

func (cc *CertificateController) GetMyCertificates(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, cc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	var certificates []models.Certificate
	if err := cc.DB.Where("user_id = ?", userID).
		Order("issued_at DESC").
		Find(&certificates).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	return c.JSON(fiber.Map{
		"certificates": certificates,
	})
}

// GetCourseCertificate returns the learner's certificate for a course.
// When the course is complete but issuance failed earlier, this is the
// explicit retry path: it calls the issuer again instead of reporting
// not-found.
func (cc *CertificateController) GetCourseCertificate(c *fiber.Ctx) error {
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

	var certificate models.Certificate
	err = cc.DB.Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&certificate).Error
	if err == nil {
		return c.JSON(fiber.Map{
			"certificate": certificate,
		})
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	var enrollment models.Enrollment
	if err := cc.DB.Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&enrollment).Error; err != nil || enrollment.ProgressPercentage < 100 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Course not completed",
		})
	}

	issued, err := cc.Engine.Certificates.EnsureCertificate(userID, uint(courseID))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not issue certificate",
		})
	}

	return c.JSON(fiber.Map{
		"certificate": issued,
	})
}

type CreateTemplateInput struct {
	Name          string `json:"name" validate:"required"`
	BackgroundURL string `json:"background_url"`
	IsDefault     bool   `json:"is_default"`
}

func (cc *CertificateController) CreateTemplate(c *fiber.Ctx) error {
	var input CreateTemplateInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}
	if err := validate.Struct(input); err != nil {
		return utils.ValidationError(c, validationDetails(err))
	}

	template := models.CertificateTemplate{
		Name:          input.Name,
		BackgroundURL: input.BackgroundURL,
		IsDefault:     input.IsDefault,
	}
	if template.IsDefault {
		// only one designated default at a time
		cc.DB.Model(&models.CertificateTemplate{}).
			Where("is_default = ?", true).
			Update("is_default", false)
	}
	if err := cc.DB.Create(&template).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create template",
		})
	}

	return c.JSON(fiber.Map{
		"message":  "Template created",
		"template": template,
	})
}
