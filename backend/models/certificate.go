package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CertificateTemplate struct {
	gorm.Model
	Name          string
	BackgroundURL string
	IsDefault     bool
}

// Certificate is created exactly once per (user, course) when the course
// reaches 100% and never mutated afterwards, even if the enrollment later
// regresses. CertificateData is a denormalized snapshot taken at issuance.
type Certificate struct {
	gorm.Model
	UserID          uint   `gorm:"uniqueIndex:idx_certificate_user_course"`
	CourseID        uint   `gorm:"uniqueIndex:idx_certificate_user_course"`
	CertificateID   string `gorm:"unique;not null"`
	TemplateID      *uint
	IssuedAt        time.Time
	CertificateData datatypes.JSONMap
}
