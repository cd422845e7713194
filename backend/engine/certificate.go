package engine

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Rhytah/Kyzer-sub001/backend/models"
)

// fallbackTemplateRef is used when no template rows exist at all.
const fallbackTemplateRef = "default"

type CertificateIssuer struct {
	DB           *gorm.DB
	Log          *log.Logger
	Organization string
}

// EnsureCertificate returns the certificate for (user, course), creating
// it on first call. An existing row is returned untouched — a second
// certificate is never issued for the same pair, and the unique index on
// (user_id, course_id) backs the check-then-insert. The insert is a
// single write of a fully-formed payload, never partial.
func (i *CertificateIssuer) EnsureCertificate(userID, courseID uint) (*models.Certificate, error) {
	var existing models.Certificate
	err := i.DB.Where("user_id = ? AND course_id = ?", userID, courseID).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("certificate lookup: %w", err)
	}

	var user models.User
	if err := i.DB.First(&user, userID).Error; err != nil {
		return nil, fmt.Errorf("certificate user lookup: %w", err)
	}
	var course models.Course
	if err := i.DB.First(&course, courseID).Error; err != nil {
		return nil, fmt.Errorf("certificate course lookup: %w", err)
	}

	// designated default template, else first available, else fallback
	var templateID *uint
	templateRef := fallbackTemplateRef
	var template models.CertificateTemplate
	err = i.DB.Where("is_default = ?", true).First(&template).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = i.DB.Order("id ASC").First(&template).Error
	}
	if err == nil {
		templateID = &template.ID
		templateRef = template.Name
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("certificate template lookup: %w", err)
	}

	now := time.Now().UTC()
	certificateID := fmt.Sprintf("CERT-%d-%s", now.Unix(), strings.Split(uuid.NewString(), "-")[0])

	learnerName := user.FullName
	if learnerName == "" {
		learnerName = user.Username
	}

	certificate := models.Certificate{
		UserID:        userID,
		CourseID:      courseID,
		CertificateID: certificateID,
		TemplateID:    templateID,
		IssuedAt:      now,
		CertificateData: datatypes.JSONMap{
			"learner_name":    learnerName,
			"course_title":    course.Title,
			"completion_date": now.Format("2006-01-02"),
			"certificate_id":  certificateID,
			"instructor":      course.Instructor,
			"organization":    i.Organization,
			"template":        templateRef,
		},
	}

	if err := i.DB.Create(&certificate).Error; err != nil {
		return nil, fmt.Errorf("issue certificate: %w", err)
	}

	i.Log.Printf("issued certificate %s for user %d, course %d", certificateID, userID, courseID)
	return &certificate, nil
}
