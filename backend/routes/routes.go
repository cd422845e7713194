package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/Rhytah/Kyzer-sub001/backend/config"
	"github.com/Rhytah/Kyzer-sub001/backend/controllers"
	"github.com/Rhytah/Kyzer-sub001/backend/engine"
	"github.com/Rhytah/Kyzer-sub001/backend/middleware"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, cfg *config.Config, eng *engine.Engine) {
	// Auth routes
	authController := controllers.NewAuthController(db, cfg)
	app.Post("/api/auth/register", authController.Register)
	app.Post("/api/auth/login", authController.Login)

	// Middleware
	authMiddleware := middleware.AuthMiddleware(cfg)
	adminMiddleware := middleware.AdminMiddleware(db, cfg)

	// User routes
	userController := controllers.NewUserController(db, cfg)
	app.Get("/api/user/profile", authMiddleware, userController.GetProfile)
	app.Put("/api/user/profile", authMiddleware, userController.UpdateProfile)

	// Courses routes
	coursesController := controllers.NewCoursesController(db, cfg, eng)
	progressController := controllers.NewProgressController(db, cfg, eng)
	courses := app.Group("/api/courses", authMiddleware)
	courses.Get("/", coursesController.GetAvailableCourses)
	courses.Get("/:id", coursesController.GetCourseDetails)
	courses.Post("/:id/enroll", coursesController.EnrollCourse)
	courses.Get("/:id/progress", progressController.GetCourseProgress)

	// Learner progress routes
	app.Post("/api/slides/:id/progress", authMiddleware, progressController.RecordSlideProgress)
	app.Get("/api/presentations/:id/progress", authMiddleware, progressController.GetPresentationProgress)
	app.Post("/api/lessons/:id/complete", authMiddleware, progressController.MarkLessonComplete)

	// Quiz routes
	quizController := controllers.NewQuizController(db, cfg, eng)
	quizzes := app.Group("/api/quizzes", authMiddleware)
	quizzes.Get("/:id", quizController.GetQuizDetails)
	quizzes.Post("/:id/submit", quizController.SubmitQuiz)
	quizzes.Get("/:id/attempts", quizController.GetQuizAttempts)

	// Certificate routes
	certificateController := controllers.NewCertificateController(db, cfg, eng)
	app.Get("/api/certificates", authMiddleware, certificateController.GetMyCertificates)
	app.Get("/api/courses/:id/certificate", authMiddleware, certificateController.GetCourseCertificate)

	// Admin authoring routes
	admin := app.Group("/api/admin", authMiddleware, adminMiddleware)
	admin.Post("/courses", coursesController.CreateCourse)
	admin.Post("/courses/:id/lessons", coursesController.AddLesson)
	admin.Post("/lessons/:lessonId/presentation", coursesController.CreatePresentation)
	admin.Post("/quizzes", quizController.CreateQuiz)
	admin.Post("/certificate-templates", certificateController.CreateTemplate)
}
