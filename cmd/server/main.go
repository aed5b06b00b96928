package main

import (
	"flag"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/beiya2414/classboard/internal/app"
	"github.com/beiya2414/classboard/internal/handlers"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to config file")
	flag.Parse()

	service, err := app.NewService(*configPath)
	if err != nil {
		logger.Error.Fatalf("Failed to start: %v", err)
	}
	defer service.Close()

	authHandler := handlers.NewAuthHandler(service)
	scoreHandler := handlers.NewScoreHandler(service)
	adminHandler := handlers.NewAdminHandler(service)
	aiAdminHandler := handlers.NewAIAdminHandler(service)
	gradingHandler := handlers.NewGradingHandler(service)
	homeworkHandler := handlers.NewHomeworkHandler(service)
	screenHandler := handlers.NewScreenHandler(service)

	// every route goes through the duration histogram
	handle := func(pattern string, fn http.HandlerFunc) {
		http.HandleFunc(pattern, handlers.Timed(pattern, fn))
	}

	handle("POST /api/v1/auth/login", authHandler.HandleTeacherLogin)
	handle("POST /api/v1/auth/logout", authHandler.HandleTeacherLogout)
	handle("GET /api/v1/auth/profile", authHandler.HandleTeacherProfile)
	handle("POST /api/v1/screen/login", authHandler.HandleScreenLogin)
	handle("GET /api/v1/screen/profile", authHandler.HandleScreenProfile)

	handle("GET /api/v1/students", scoreHandler.HandleListStudents)
	handle("GET /api/v1/score-types", scoreHandler.HandleListScoreTypes)
	handle("POST /api/v1/scores", scoreHandler.HandleApplyChange)
	handle("POST /api/v1/scores/undo", scoreHandler.HandleUndo)
	handle("GET /api/v1/scores/log", scoreHandler.HandleMyLog)

	handle("GET /api/v1/admin/scores/log", scoreHandler.HandleAdminLog)
	handle("GET /api/v1/admin/scores/reasons", scoreHandler.HandleReasonFilters)
	handle("POST /api/v1/admin/scores/undo", scoreHandler.HandleAdminUndo)

	handle("POST /api/v1/admin/students", adminHandler.HandleCreateStudent)
	handle("PUT /api/v1/admin/students/{id}", adminHandler.HandleUpdateStudent)
	handle("DELETE /api/v1/admin/students/{id}", adminHandler.HandleDeleteStudent)
	handle("PUT /api/v1/admin/students/{id}/group", adminHandler.HandleAssignGroup)
	handle("GET /api/v1/admin/teachers", adminHandler.HandleListTeachers)
	handle("POST /api/v1/admin/teachers", adminHandler.HandleCreateTeacher)
	handle("PUT /api/v1/admin/teachers/{id}", adminHandler.HandleUpdateTeacher)
	handle("DELETE /api/v1/admin/teachers/{id}", adminHandler.HandleDeleteTeacher)
	handle("GET /api/v1/groups", adminHandler.HandleListGroups)
	handle("POST /api/v1/admin/groups", adminHandler.HandleCreateGroup)
	handle("PUT /api/v1/admin/groups/{id}", adminHandler.HandleRenameGroup)
	handle("DELETE /api/v1/admin/groups/{id}", adminHandler.HandleDeleteGroup)
	handle("POST /api/v1/admin/score-types", adminHandler.HandleCreateScoreType)
	handle("PUT /api/v1/admin/score-types/{id}", adminHandler.HandleUpdateScoreType)
	handle("DELETE /api/v1/admin/score-types/{id}", adminHandler.HandleDeleteScoreType)

	handle("GET /api/v1/admin/ai/init", aiAdminHandler.HandleInitData)
	handle("POST /api/v1/admin/ai/providers", aiAdminHandler.HandleCreateProvider)
	handle("PUT /api/v1/admin/ai/providers/{id}", aiAdminHandler.HandleUpdateProvider)
	handle("DELETE /api/v1/admin/ai/providers/{id}", aiAdminHandler.HandleDeleteProvider)
	handle("POST /api/v1/admin/ai/models", aiAdminHandler.HandleCreateModel)
	handle("PUT /api/v1/admin/ai/models/{id}", aiAdminHandler.HandleUpdateModel)
	handle("DELETE /api/v1/admin/ai/models/{id}", aiAdminHandler.HandleDeleteModel)
	handle("POST /api/v1/admin/ai/quotas", aiAdminHandler.HandleUpsertGrant)
	handle("DELETE /api/v1/admin/ai/quotas/{id}", aiAdminHandler.HandleDeleteGrant)

	handle("GET /api/v1/grading/submissions", gradingHandler.HandleGradingQueue)
	handle("GET /api/v1/grading/models", gradingHandler.HandleAvailableModels)
	handle("POST /api/v1/grading/ask", gradingHandler.HandleAskAI)
	handle("POST /api/v1/grading/grade", gradingHandler.HandleSubmitGrade)

	handle("GET /api/v1/homework", homeworkHandler.HandleListHomework)
	handle("POST /api/v1/homework", homeworkHandler.HandleCreateHomework)
	handle("PUT /api/v1/homework/{id}", homeworkHandler.HandleUpdateHomework)
	handle("DELETE /api/v1/homework/{id}", homeworkHandler.HandleDeleteHomework)
	handle("GET /api/v1/homework/{id}/submissions", homeworkHandler.HandleSubmissionStatuses)
	handle("GET /api/v1/submissions/{id}", homeworkHandler.HandleViewSubmission)

	handle("GET /api/v1/screen/homework", screenHandler.HandleActiveHomework)
	handle("GET /api/v1/screen/students", screenHandler.HandleRoster)
	handle("GET /api/v1/screen/homework/{id}/submissions", screenHandler.HandleSubmissionRoster)
	handle("GET /api/v1/screen/submissions/{id}/image", screenHandler.HandleViewImage)
	handle("POST /api/v1/screen/submissions", screenHandler.HandleSubmitPhoto)

	http.Handle("/metrics", promhttp.Handler())

	logger.Info.Printf("Starting classboard server on %s", service.Config.Server.Port)
	if err := http.ListenAndServe(service.Config.Server.Port, nil); err != nil {
		logger.Error.Fatalf("Classboard server failed: %v", err)
	}
}
