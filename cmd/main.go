package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/yungbote/gradebridge-backend/internal/clients/gcp"
	redisclient "github.com/yungbote/gradebridge-backend/internal/clients/redis"
	"github.com/yungbote/gradebridge-backend/internal/db"
	"github.com/yungbote/gradebridge-backend/internal/handlers"
	"github.com/yungbote/gradebridge-backend/internal/logger"
	"github.com/yungbote/gradebridge-backend/internal/middleware"
	"github.com/yungbote/gradebridge-backend/internal/observability"
	"github.com/yungbote/gradebridge-backend/internal/repos"
	"github.com/yungbote/gradebridge-backend/internal/server"
	"github.com/yungbote/gradebridge-backend/internal/services"
	"github.com/yungbote/gradebridge-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	googleClientID := utils.GetEnv("GOOGLE_CLIENT_ID", "", log)
	googleClientSecret := utils.GetEnv("GOOGLE_CLIENT_SECRET", "", log)

	// Tracing
	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "gradebridge-backend",
		Environment: utils.GetEnv("APP_ENV", "development", log),
		Version:     utils.GetEnv("APP_VERSION", "dev", log),
	})
	if otelShutdown != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(ctx)
		}()
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	profileRepo := repos.NewProfileRepo(thePG, log)
	integrationRepo := repos.NewIntegrationRepo(thePG, log)
	courseRepo := repos.NewCourseRepo(thePG, log)
	enrollmentRepo := repos.NewEnrollmentRepo(thePG, log)
	rubricRepo := repos.NewRubricRepo(thePG, log)
	assignmentRepo := repos.NewAssignmentRepo(thePG, log)
	submissionRepo := repos.NewSubmissionRepo(thePG, log)
	quizRepo := repos.NewQuizRepo(thePG, log)
	attemptRepo := repos.NewQuizAttemptRepo(thePG, log)
	forumRepo := repos.NewForumRepo(thePG, log)
	messageRepo := repos.NewForumMessageRepo(thePG, log)

	// Run lock (optional, off when REDIS_ADDR is unset)
	runLock, err := redisclient.NewRunLock(log)
	if err != nil {
		log.Warn("Sync run lock unavailable", "error", err)
		runLock = nil
	}

	// Services
	log.Info("Setting up Services from main...")
	clientFactory := func(ctx context.Context, accessToken string) (gcp.ClassroomClient, error) {
		return gcp.NewClassroomClient(ctx, log, accessToken)
	}
	authService := services.NewAuthService(thePG, log, userRepo, profileRepo, jwtSecretKey, time.Duration(accessTokenTTL)*time.Second)
	tokenService := services.NewTokenService(thePG, log, integrationRepo, googleClientID, googleClientSecret, "")
	identityService := services.NewIdentityService(thePG, log, userRepo, profileRepo, courseRepo)
	rubricService := services.NewRubricService(thePG, log, rubricRepo)
	syncService := services.NewSyncService(
		thePG,
		log,
		integrationRepo,
		courseRepo,
		enrollmentRepo,
		assignmentRepo,
		submissionRepo,
		quizRepo,
		attemptRepo,
		forumRepo,
		messageRepo,
		profileRepo,
		tokenService,
		identityService,
		rubricService,
		clientFactory,
		runLock,
	)
	gradingService := services.NewGradingService(thePG, log, integrationRepo, courseRepo, assignmentRepo, submissionRepo, tokenService, clientFactory)

	// Handlers
	log.Info("Setting up handlers from main...")
	authHandler := handlers.NewAuthHandler(authService)
	syncHandler := handlers.NewSyncHandler(log, syncService)
	gradingHandler := handlers.NewGradingHandler(log, gradingService)

	// Middleware
	log.Info("Setting up middleware from main...")
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		ServiceName:    "gradebridge-backend",
		AuthHandler:    authHandler,
		AuthMiddleware: authMiddleware,
		SyncHandler:    syncHandler,
		GradingHandler: gradingHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
	}
}
