package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"brand-review-api/config"
	"brand-review-api/models"
	"brand-review-api/services"
)

var (
	servicesOnce sync.Once
	workflow     *services.ReviewWorkflowService
	reviewQueue  *services.ReviewQueueService
)

func initServices() {
	servicesOnce.Do(func() {
		sink := services.MultiSink{
			services.LogSink{},
			services.NewNotificationService(config.DB),
		}
		workflow = services.NewReviewWorkflowService(config.DB, sink)
		reviewQueue = services.NewReviewQueueService(config.DB)
	})
}

func workflowService() *services.ReviewWorkflowService {
	initServices()
	return workflow
}

func queueService() *services.ReviewQueueService {
	initServices()
	return reviewQueue
}

// workflowErrorStatus maps workflow error kinds onto HTTP statuses.
var workflowErrorStatus = map[services.WorkflowErrorKind]int{
	services.ErrKindNotFound:                  http.StatusNotFound,
	services.ErrKindInvalidTransition:         http.StatusConflict,
	services.ErrKindDuplicateActiveSubmission: http.StatusConflict,
	services.ErrKindConcurrentModification:    http.StatusConflict,
	services.ErrKindInvalidScore:              http.StatusUnprocessableEntity,
	services.ErrKindMissingScores:             http.StatusUnprocessableEntity,
}

func respondWorkflowError(c *gin.Context, err error) {
	if wfErr, ok := services.AsWorkflowError(err); ok {
		status, known := workflowErrorStatus[wfErr.Kind]
		if !known {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{
			"error":     wfErr.Message,
			"kind":      wfErr.Kind,
			"retryable": wfErr.Retryable(),
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
}

func currentUserID(c *gin.Context) (int, bool) {
	userIDValue, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User context missing"})
		return 0, false
	}
	userID, ok := userIDValue.(int)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user context"})
		return 0, false
	}
	return userID, true
}

func submissionIDParam(c *gin.Context) (int, bool) {
	submissionID, err := strconv.Atoi(c.Param("id"))
	if err != nil || submissionID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid submission ID"})
		return 0, false
	}
	return submissionID, true
}

// CreateReviewSubmission opens a new review cycle for a brand.
func CreateReviewSubmission(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		BrandID         int      `json:"brand_id" binding:"required"`
		DealID          *int     `json:"deal_id"`
		RevenueEstimate *float64 `json:"revenue_estimate"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	submission, err := workflowService().Create(c.Request.Context(), userID, services.CreateSubmissionInput{
		BrandID:         req.BrandID,
		DealID:          req.DealID,
		RevenueEstimate: req.RevenueEstimate,
	})
	if err != nil {
		respondWorkflowError(c, err)
		return
	}

	writeAudit(c, userID, "create", submission, "Review submission created")

	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"submission": submission,
	})
}

// GetReviewSubmission returns one submission with brand and deal.
func GetReviewSubmission(c *gin.Context) {
	submissionID, ok := submissionIDParam(c)
	if !ok {
		return
	}

	submission, err := workflowService().Get(c.Request.Context(), submissionID)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"submission": submission,
	})
}

// ListReviewSubmissions returns submissions, optionally filtered by state.
func ListReviewSubmissions(c *gin.Context) {
	var state *models.ReviewState
	if raw := strings.TrimSpace(c.Query("state")); raw != "" {
		candidate := models.ReviewState(raw)
		if !candidate.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid state filter"})
			return
		}
		state = &candidate
	}

	submissions, err := workflowService().List(c.Request.Context(), state)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch submissions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"submissions": submissions,
		"total":       len(submissions),
	})
}

// ApproveBD records the business-development gate decision.
func ApproveBD(c *gin.Context) {
	submissionID, ok := submissionIDParam(c)
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		RevenueEstimate *float64 `json:"revenue_estimate"`
		Notes           *string  `json:"notes"`
		ExpectedVersion *int     `json:"expected_version"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	submission, err := workflowService().ApproveBD(c.Request.Context(), submissionID, userID, services.ApproveBDInput{
		RevenueEstimate: req.RevenueEstimate,
		Notes:           req.Notes,
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		respondWorkflowError(c, err)
		return
	}

	writeAudit(c, userID, "approve_bd", submission, "BD approval recorded")

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Submission moved to medical review",
		"submission": submission,
	})
}

// SubmitScores stores the medical score record and derived grade.
func SubmitScores(c *gin.Context) {
	submissionID, ok := submissionIDParam(c)
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		ClinicalScore       int      `json:"clinical_score"`
		SafetyScore         int      `json:"safety_score"`
		TransparencyScore   int      `json:"transparency_score"`
		Notes               *string  `json:"notes"`
		ClinicalClaims      []string `json:"clinical_claims"`
		SafetyConcerns      []string `json:"safety_concerns"`
		RequiredDisclaimers []string `json:"required_disclaimers"`
		ExpectedVersion     *int     `json:"expected_version"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	submission, err := workflowService().SubmitScores(c.Request.Context(), submissionID, userID, services.SubmitScoresInput{
		Scores: services.ScoreRecord{
			Clinical:     req.ClinicalScore,
			Safety:       req.SafetyScore,
			Transparency: req.TransparencyScore,
		},
		Notes:               req.Notes,
		ClinicalClaims:      req.ClinicalClaims,
		SafetyConcerns:      req.SafetyConcerns,
		RequiredDisclaimers: req.RequiredDisclaimers,
		ExpectedVersion:     req.ExpectedVersion,
	})
	if err != nil {
		respondWorkflowError(c, err)
		return
	}

	writeAudit(c, userID, "submit_scores", submission, "Medical scores recorded")

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Scores recorded",
		"submission": submission,
	})
}

// RecordFinalDecision resolves a reviewed submission.
func RecordFinalDecision(c *gin.Context) {
	submissionID, ok := submissionIDParam(c)
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		Decision        string  `json:"decision" binding:"required"`
		Notes           *string `json:"notes"`
		ExpectedVersion *int    `json:"expected_version"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	decision := models.FinalDecision(strings.ToLower(strings.TrimSpace(req.Decision)))
	submission, err := workflowService().FinalDecision(c.Request.Context(), submissionID, userID, services.FinalDecisionInput{
		Decision:        decision,
		Notes:           req.Notes,
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		respondWorkflowError(c, err)
		return
	}

	writeAudit(c, userID, "final_decision", submission, "Final decision: "+string(decision))

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Decision recorded",
		"submission": submission,
	})
}

// ReopenSubmission sends a requires_revision submission back into review.
func ReopenSubmission(c *gin.Context) {
	submissionID, ok := submissionIDParam(c)
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	submission, err := workflowService().Reopen(c.Request.Context(), submissionID, userID)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}

	writeAudit(c, userID, "reopen", submission, "Submission reopened for review")

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Submission reopened",
		"submission": submission,
	})
}

// GradePreview computes the grade for a score triple without persisting
// anything. Backs the live slider preview in the scoring dialog.
func GradePreview(c *gin.Context) {
	parse := func(name string) (int, bool) {
		value, err := strconv.Atoi(c.Query(name))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
			return 0, false
		}
		return value, true
	}

	clinical, ok := parse("clinical")
	if !ok {
		return
	}
	safety, ok := parse("safety")
	if !ok {
		return
	}
	transparency, ok := parse("transparency")
	if !ok {
		return
	}

	grade, err := services.CalculateGrade(services.ScoreRecord{
		Clinical:     clinical,
		Safety:       safety,
		Transparency: transparency,
	})
	if err != nil {
		respondWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"grade":   grade,
		"label":   grade.Label(),
	})
}

// GetSubmissionHistory returns the state-change trail.
func GetSubmissionHistory(c *gin.Context) {
	submissionID, ok := submissionIDParam(c)
	if !ok {
		return
	}

	history, err := workflowService().History(c.Request.Context(), submissionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"history": history,
	})
}

// GetSubmissionRecords returns the gate decision records.
func GetSubmissionRecords(c *gin.Context) {
	submissionID, ok := submissionIDParam(c)
	if !ok {
		return
	}

	records, err := workflowService().Records(c.Request.Context(), submissionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch records"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"records": records,
	})
}

// writeAudit records a workflow action in the audit log. Failures are
// logged by GORM; auditing never rolls back an already-committed
// transition.
func writeAudit(c *gin.Context, userID int, action string, submission *models.ReviewSubmission, description string) {
	values := map[string]interface{}{
		"state":   submission.State,
		"version": submission.Version,
	}
	serialized, _ := json.Marshal(values)

	entityID := submission.SubmissionID
	newValues := string(serialized)
	audit := models.AuditLog{
		UserID:      userID,
		Action:      action,
		EntityType:  "review_submission",
		EntityID:    &entityID,
		NewValues:   &newValues,
		Description: &description,
		IPAddress:   c.ClientIP(),
		CreatedAt:   time.Now(),
	}
	if submission.SubmissionNumber != "" {
		number := submission.SubmissionNumber
		audit.EntityNumber = &number
	}
	if userAgent := strings.TrimSpace(c.GetHeader("User-Agent")); userAgent != "" {
		audit.UserAgent = &userAgent
	}

	config.DB.Create(&audit)
}
