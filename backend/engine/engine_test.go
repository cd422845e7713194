package engine

import (
	"fmt"
	"io"
	"log"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Rhytah/Kyzer-sub001/backend/models"
	"github.com/Rhytah/Kyzer-sub001/backend/utils"
)

// testDB opens an isolated in-memory database per test. cache=shared
// keeps the database alive across the pool's connections.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := utils.Migrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func newTestEngine(t *testing.T) (*Engine, *gorm.DB) {
	t.Helper()
	db := testDB(t)
	return New(db, log.New(io.Discard, "", 0), "Kyzer Learning"), db
}

// seedCourse creates a course with the given number of lessons, each
// backed by a presentation with slidesPerLesson slides.
func seedCourse(t *testing.T, db *gorm.DB, lessons, slidesPerLesson int) models.Course {
	t.Helper()

	course := models.Course{Title: "Seeded Course", Instructor: "Jane Doe"}
	if err := db.Create(&course).Error; err != nil {
		t.Fatalf("seed course: %v", err)
	}
	for l := 1; l <= lessons; l++ {
		lesson := models.Lesson{
			CourseID:      course.ID,
			Title:         fmt.Sprintf("Lesson %d", l),
			SequenceOrder: l,
		}
		if err := db.Create(&lesson).Error; err != nil {
			t.Fatalf("seed lesson: %v", err)
		}
		presentation := models.Presentation{LessonID: lesson.ID, Title: lesson.Title}
		if err := db.Create(&presentation).Error; err != nil {
			t.Fatalf("seed presentation: %v", err)
		}
		for s := 1; s <= slidesPerLesson; s++ {
			slide := models.Slide{
				PresentationID: presentation.ID,
				SlideNumber:    s,
				Title:          fmt.Sprintf("Slide %d", s),
				ContentType:    models.ContentTypeText,
			}
			if err := db.Create(&slide).Error; err != nil {
				t.Fatalf("seed slide: %v", err)
			}
		}
	}
	if err := db.Preload("Lessons").First(&course, course.ID).Error; err != nil {
		t.Fatalf("reload course: %v", err)
	}
	return course
}

func seedUser(t *testing.T, db *gorm.DB) models.User {
	t.Helper()
	user := models.User{
		Username:     "learner",
		Email:        "learner@example.com",
		PasswordHash: "x",
		FullName:     "Test Learner",
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

// courseContext resolves the presentation and slides behind a lesson.
func courseContext(t *testing.T, db *gorm.DB, lessonID uint) (models.Presentation, []models.Slide) {
	t.Helper()
	var presentation models.Presentation
	if err := db.Where("lesson_id = ?", lessonID).First(&presentation).Error; err != nil {
		t.Fatalf("load presentation: %v", err)
	}
	var slides []models.Slide
	if err := db.Where("presentation_id = ?", presentation.ID).
		Order("slide_number ASC").Find(&slides).Error; err != nil {
		t.Fatalf("load slides: %v", err)
	}
	return presentation, slides
}
