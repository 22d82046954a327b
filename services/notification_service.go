package services

import (
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"brand-review-api/config"
	"brand-review-api/models"
)

// NotificationService turns committed workflow events into in-app
// notifications for the brand owner, and emails on final decisions.
// It implements EventSink.
type NotificationService struct {
	db *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

var eventNotificationTitles = map[ReviewEventType]string{
	EventSubmissionCreated:     "Review submission created",
	EventBDApproved:            "BD approval recorded",
	EventScoresSubmitted:       "Medical scores submitted",
	EventFinalDecisionRecorded: "Final decision recorded",
	EventSubmissionReopened:    "Submission reopened",
}

// Publish stores a notification for the brand owner. Failures are logged
// and swallowed: notification delivery never fails a workflow transition.
func (n *NotificationService) Publish(event ReviewEvent) {
	title, ok := eventNotificationTitles[event.Type]
	if !ok {
		return
	}

	var brand models.Brand
	if err := n.db.Where("brand_id = ? AND delete_at IS NULL", event.BrandID).First(&brand).Error; err != nil {
		log.Printf("notification: failed to load brand %d: %v", event.BrandID, err)
		return
	}
	if brand.OwnerID == nil {
		return
	}

	message := fmt.Sprintf("%s is now %s", brand.BrandName, event.State.Label())
	notificationType := "info"
	switch event.State {
	case models.StateApproved:
		notificationType = "success"
	case models.StateRejected:
		notificationType = "error"
	case models.StateRequiresRevision:
		notificationType = "warning"
	}

	submissionID := event.SubmissionID
	notification := models.Notification{
		UserID:              *brand.OwnerID,
		Title:               title,
		Message:             message,
		Type:                notificationType,
		RelatedSubmissionID: &submissionID,
		CreateAt:            time.Now(),
	}
	if err := n.db.Create(&notification).Error; err != nil {
		log.Printf("notification: failed to create for user %d: %v", *brand.OwnerID, err)
	}

	if event.Type == EventFinalDecisionRecorded {
		n.emailDecision(&brand, event)
	}
}

func (n *NotificationService) emailDecision(brand *models.Brand, event ReviewEvent) {
	if brand.OwnerID == nil {
		return
	}

	var owner models.User
	if err := n.db.Where("user_id = ? AND delete_at IS NULL", *brand.OwnerID).First(&owner).Error; err != nil {
		log.Printf("notification: failed to load owner %d: %v", *brand.OwnerID, err)
		return
	}

	subject := fmt.Sprintf("Medical review decision for %s: %s", brand.BrandName, event.State.Label())
	body := fmt.Sprintf(
		"<p>The medical standards review for <strong>%s</strong> has been resolved as <strong>%s</strong>.</p>"+
			"<p>Submission: %d</p>",
		brand.BrandName, event.State.Label(), event.SubmissionID)

	if err := config.SendMail([]string{owner.Email}, subject, body); err != nil {
		log.Printf("notification: failed to send decision email to %s: %v", owner.Email, err)
	}
}
