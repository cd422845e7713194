package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/Rhytah/Kyzer-sub001/backend/models"
)

func TestRecordSlideProgressRequiresContext(t *testing.T) {
	eng, _ := newTestEngine(t)

	_, err := eng.Slides.RecordSlideProgress(1, 1, 0, 1, 1, SlideProgressInput{Completed: true})
	assert.ErrorIs(t, err, ErrMissingContext)

	_, err = eng.Slides.RecordSlideProgress(1, 1, 1, 0, 1, SlideProgressInput{Completed: true})
	assert.ErrorIs(t, err, ErrMissingContext)

	_, err = eng.Slides.RecordSlideProgress(1, 1, 1, 1, 0, SlideProgressInput{Completed: true})
	assert.ErrorIs(t, err, ErrMissingContext)
}

func TestRecordSlideProgressReplacesRow(t *testing.T) {
	eng, db := newTestEngine(t)
	user := seedUser(t, db)
	course := seedCourse(t, db, 1, 2)
	lesson := course.Lessons[0]
	presentation, slides := courseContext(t, db, lesson.ID)

	_, err := eng.Slides.RecordSlideProgress(user.ID, slides[0].ID, presentation.ID, lesson.ID, course.ID, SlideProgressInput{
		TimeSpentSeconds: 30,
		Completed:        false,
	})
	require.NoError(t, err)

	// second interaction replaces the row, time is not accumulated
	_, err = eng.Slides.RecordSlideProgress(user.ID, slides[0].ID, presentation.ID, lesson.ID, course.ID, SlideProgressInput{
		TimeSpentSeconds: 45,
		Completed:        true,
	})
	require.NoError(t, err)

	var count int64
	db.Model(&models.SlideProgress{}).
		Where("user_id = ? AND slide_id = ?", user.ID, slides[0].ID).
		Count(&count)
	assert.Equal(t, int64(1), count)

	var row models.SlideProgress
	require.NoError(t, db.Where("user_id = ? AND slide_id = ?", user.ID, slides[0].ID).First(&row).Error)
	assert.Equal(t, 45, row.TimeSpentSeconds)
	assert.True(t, row.Completed)
}

func TestCascadeEndToEnd(t *testing.T) {
	eng, db := newTestEngine(t)
	user := seedUser(t, db)
	course := seedCourse(t, db, 1, 2)
	lesson := course.Lessons[0]
	presentation, slides := courseContext(t, db, lesson.ID)

	// first slide: halfway
	_, err := eng.Slides.RecordSlideProgress(user.ID, slides[0].ID, presentation.ID, lesson.ID, course.ID, SlideProgressInput{
		TimeSpentSeconds: 20,
		Completed:        true,
	})
	require.NoError(t, err)

	var pp models.PresentationProgress
	require.NoError(t, db.Where("user_id = ? AND presentation_id = ?", user.ID, presentation.ID).First(&pp).Error)
	assert.Equal(t, 1, pp.CompletedSlides)
	assert.Equal(t, 2, pp.TotalSlides)
	assert.Equal(t, 50, pp.ProgressPercentage)
	assert.False(t, pp.Completed)
	assert.Nil(t, pp.CompletedAt)

	var lp models.LessonProgress
	err = db.Where("user_id = ? AND lesson_id = ?", user.ID, lesson.ID).First(&lp).Error
	assert.Error(t, err, "lesson must not complete at 50%")

	// second slide: presentation completes and the cascade runs through
	_, err = eng.Slides.RecordSlideProgress(user.ID, slides[1].ID, presentation.ID, lesson.ID, course.ID, SlideProgressInput{
		TimeSpentSeconds: 40,
		Completed:        true,
	})
	require.NoError(t, err)

	require.NoError(t, db.Where("user_id = ? AND presentation_id = ?", user.ID, presentation.ID).First(&pp).Error)
	assert.Equal(t, 100, pp.ProgressPercentage)
	assert.True(t, pp.Completed)
	require.NotNil(t, pp.CompletedAt)
	assert.Equal(t, 60, pp.TotalTimeSpentSeconds)
	assert.Equal(t, float64(slides[1].ID), pp.Metadata["last_slide_viewed"])

	require.NoError(t, db.Where("user_id = ? AND lesson_id = ?", user.ID, lesson.ID).First(&lp).Error)
	assert.True(t, lp.Completed)
	assert.Equal(t, "presentation", lp.Metadata["completed_via"])
	assert.Equal(t, float64(presentation.ID), lp.Metadata["presentation_id"])

	var enrollment models.Enrollment
	require.NoError(t, db.Where("user_id = ? AND course_id = ?", user.ID, course.ID).First(&enrollment).Error)
	assert.Equal(t, 100, enrollment.ProgressPercentage)
	assert.Equal(t, models.EnrollmentStatusCompleted, enrollment.Status)
	require.NotNil(t, enrollment.CompletedAt)

	var certificate models.Certificate
	require.NoError(t, db.Where("user_id = ? AND course_id = ?", user.ID, course.ID).First(&certificate).Error)
	assert.NotEmpty(t, certificate.CertificateID)
	assert.Equal(t, "Test Learner", certificate.CertificateData["learner_name"])
	assert.Equal(t, "Seeded Course", certificate.CertificateData["course_title"])
	assert.Equal(t, "Kyzer Learning", certificate.CertificateData["organization"])
}

func TestPresentationRecomputeIdempotent(t *testing.T) {
	eng, db := newTestEngine(t)
	user := seedUser(t, db)
	course := seedCourse(t, db, 1, 3)
	lesson := course.Lessons[0]
	presentation, slides := courseContext(t, db, lesson.ID)

	for _, slide := range slides {
		_, err := eng.Slides.RecordSlideProgress(user.ID, slide.ID, presentation.ID, lesson.ID, course.ID, SlideProgressInput{
			TimeSpentSeconds: 10,
			Completed:        true,
		})
		require.NoError(t, err)
	}

	var before models.PresentationProgress
	require.NoError(t, db.Where("user_id = ? AND presentation_id = ?", user.ID, presentation.ID).First(&before).Error)
	require.True(t, before.Completed)

	// re-running with no new slide writes changes nothing derived
	_, err := eng.Presentations.Recompute(user.ID, presentation.ID, lesson.ID, course.ID)
	require.NoError(t, err)

	var after models.PresentationProgress
	require.NoError(t, db.Where("user_id = ? AND presentation_id = ?", user.ID, presentation.ID).First(&after).Error)
	assert.Equal(t, before.CompletedSlides, after.CompletedSlides)
	assert.Equal(t, before.TotalSlides, after.TotalSlides)
	assert.Equal(t, before.ProgressPercentage, after.ProgressPercentage)
	assert.Equal(t, before.TotalTimeSpentSeconds, after.TotalTimeSpentSeconds)
	assert.Equal(t, before.Completed, after.Completed)
	require.NotNil(t, after.CompletedAt)
	// completion timestamp is sticky across recomputes
	assert.True(t, before.CompletedAt.Equal(*after.CompletedAt))

	var certCount int64
	db.Model(&models.Certificate{}).Where("user_id = ? AND course_id = ?", user.ID, course.ID).Count(&certCount)
	assert.Equal(t, int64(1), certCount)
}

func TestPresentationPercentageMonotonic(t *testing.T) {
	eng, db := newTestEngine(t)
	user := seedUser(t, db)
	course := seedCourse(t, db, 1, 4)
	lesson := course.Lessons[0]
	presentation, slides := courseContext(t, db, lesson.ID)

	// completion order is not slide order
	order := []int{2, 0, 3, 1}
	previous := 0
	for i, idx := range order {
		_, err := eng.Slides.RecordSlideProgress(user.ID, slides[idx].ID, presentation.ID, lesson.ID, course.ID, SlideProgressInput{
			Completed: true,
		})
		require.NoError(t, err)

		var pp models.PresentationProgress
		require.NoError(t, db.Where("user_id = ? AND presentation_id = ?", user.ID, presentation.ID).First(&pp).Error)
		assert.Equal(t, roundPercent(i+1, 4), pp.ProgressPercentage)
		assert.GreaterOrEqual(t, pp.ProgressPercentage, previous)
		previous = pp.ProgressPercentage
	}
	assert.Equal(t, 100, previous)
}

func TestPresentationQuizScoresMerge(t *testing.T) {
	eng, db := newTestEngine(t)
	user := seedUser(t, db)
	course := seedCourse(t, db, 1, 2)
	lesson := course.Lessons[0]
	presentation, slides := courseContext(t, db, lesson.ID)

	_, err := eng.Slides.RecordSlideProgress(user.ID, slides[0].ID, presentation.ID, lesson.ID, course.ID, SlideProgressInput{
		Completed: true,
		Metadata:  datatypes.JSONMap{"quiz_scores": map[string]interface{}{"7": 60}},
	})
	require.NoError(t, err)

	_, err = eng.Slides.RecordSlideProgress(user.ID, slides[1].ID, presentation.ID, lesson.ID, course.ID, SlideProgressInput{
		Completed: true,
		Metadata:  datatypes.JSONMap{"quiz_scores": map[string]interface{}{"7": 85, "9": 40}},
	})
	require.NoError(t, err)

	var pp models.PresentationProgress
	require.NoError(t, db.Where("user_id = ? AND presentation_id = ?", user.ID, presentation.ID).First(&pp).Error)
	scores, ok := pp.Metadata["quiz_scores"].(map[string]interface{})
	require.True(t, ok)
	// the later-viewed slide's score wins
	assert.Equal(t, float64(85), scores["7"])
	assert.Equal(t, float64(40), scores["9"])
}

func TestCourseProgressAcrossLessons(t *testing.T) {
	eng, db := newTestEngine(t)
	user := seedUser(t, db)
	course := seedCourse(t, db, 3, 1)

	percentages := []int{33, 67, 100}
	for i, lesson := range course.Lessons {
		_, err := eng.Lessons.MarkLessonComplete(user.ID, lesson.ID, course.ID, true, datatypes.JSONMap{"completed_via": "manual"})
		require.NoError(t, err)

		var enrollment models.Enrollment
		require.NoError(t, db.Where("user_id = ? AND course_id = ?", user.ID, course.ID).First(&enrollment).Error)
		assert.Equal(t, percentages[i], enrollment.ProgressPercentage)
	}

	var enrollment models.Enrollment
	require.NoError(t, db.Where("user_id = ? AND course_id = ?", user.ID, course.ID).First(&enrollment).Error)
	assert.Equal(t, models.EnrollmentStatusCompleted, enrollment.Status)
	require.NotNil(t, enrollment.CompletedAt)

	// a duplicate completion trigger must not mint a second certificate
	for _, lesson := range course.Lessons {
		_, err := eng.Lessons.MarkLessonComplete(user.ID, lesson.ID, course.ID, true, datatypes.JSONMap{"completed_via": "manual"})
		require.NoError(t, err)
	}
	var certCount int64
	db.Model(&models.Certificate{}).Where("user_id = ? AND course_id = ?", user.ID, course.ID).Count(&certCount)
	assert.Equal(t, int64(1), certCount)
}

func TestCourseProgressRegression(t *testing.T) {
	eng, db := newTestEngine(t)
	user := seedUser(t, db)
	course := seedCourse(t, db, 2, 1)

	for _, lesson := range course.Lessons {
		_, err := eng.Lessons.MarkLessonComplete(user.ID, lesson.ID, course.ID, true, datatypes.JSONMap{"completed_via": "manual"})
		require.NoError(t, err)
	}

	var enrollment models.Enrollment
	require.NoError(t, db.Where("user_id = ? AND course_id = ?", user.ID, course.ID).First(&enrollment).Error)
	require.Equal(t, 100, enrollment.ProgressPercentage)

	// un-completing a lesson pulls the course back below 100
	_, err := eng.Lessons.MarkLessonComplete(user.ID, course.Lessons[0].ID, course.ID, false, datatypes.JSONMap{"completed_via": "manual"})
	require.NoError(t, err)

	require.NoError(t, db.Where("user_id = ? AND course_id = ?", user.ID, course.ID).First(&enrollment).Error)
	assert.Equal(t, 50, enrollment.ProgressPercentage)
	assert.Equal(t, models.EnrollmentStatusActive, enrollment.Status)
	assert.Nil(t, enrollment.CompletedAt)

	// the certificate issued at 100% is not revoked
	var certCount int64
	db.Model(&models.Certificate{}).Where("user_id = ? AND course_id = ?", user.ID, course.ID).Count(&certCount)
	assert.Equal(t, int64(1), certCount)
}

func TestEnsureCertificateIssuesOnce(t *testing.T) {
	eng, db := newTestEngine(t)
	user := seedUser(t, db)
	course := seedCourse(t, db, 1, 1)

	first, err := eng.Certificates.EnsureCertificate(user.ID, course.ID)
	require.NoError(t, err)
	second, err := eng.Certificates.EnsureCertificate(user.ID, course.ID)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CertificateID, second.CertificateID)

	var count int64
	db.Model(&models.Certificate{}).Where("user_id = ? AND course_id = ?", user.ID, course.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestEnsureCertificateTemplateSelection(t *testing.T) {
	eng, db := newTestEngine(t)
	user := seedUser(t, db)
	course := seedCourse(t, db, 1, 1)

	// no templates at all: fallback reference, no template id
	cert, err := eng.Certificates.EnsureCertificate(user.ID, course.ID)
	require.NoError(t, err)
	assert.Nil(t, cert.TemplateID)
	assert.Equal(t, "default", cert.CertificateData["template"])

	plain := models.CertificateTemplate{Name: "Plain"}
	require.NoError(t, db.Create(&plain).Error)
	branded := models.CertificateTemplate{Name: "Branded", IsDefault: true}
	require.NoError(t, db.Create(&branded).Error)

	other := models.User{Username: "other", Email: "other@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(&other).Error)

	cert, err = eng.Certificates.EnsureCertificate(other.ID, course.ID)
	require.NoError(t, err)
	require.NotNil(t, cert.TemplateID)
	assert.Equal(t, branded.ID, *cert.TemplateID)
	assert.Equal(t, "Branded", cert.CertificateData["template"])
}

func TestEmptyPresentationRecompute(t *testing.T) {
	eng, db := newTestEngine(t)
	user := seedUser(t, db)
	course := seedCourse(t, db, 1, 0)
	lesson := course.Lessons[0]

	var presentation models.Presentation
	require.NoError(t, db.Where("lesson_id = ?", lesson.ID).First(&presentation).Error)

	pp, err := eng.Presentations.Recompute(user.ID, presentation.ID, lesson.ID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, pp.TotalSlides)
	assert.Equal(t, 0, pp.ProgressPercentage)
	// zero slides never counts as complete
	assert.False(t, pp.Completed)
}
