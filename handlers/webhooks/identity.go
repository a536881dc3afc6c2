package webhooks

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"taskmgr-backend/models"
	"taskmgr-backend/repository"
	"taskmgr-backend/utils"

	"github.com/gin-gonic/gin"
	svix "github.com/svix/svix-webhooks/go"
	"gorm.io/gorm"
)

// IdentityVerifier checks an identity-provider webhook signature.
// Implemented by svix.Webhook; faked in tests.
type IdentityVerifier interface {
	Verify(payload []byte, header http.Header) error
}

// identityEvent is the lifecycle payload the identity provider sends.
type identityEvent struct {
	Type string `json:"type"`
	Data struct {
		ID             string `json:"id"`
		FirstName      string `json:"first_name"`
		LastName       string `json:"last_name"`
		EmailAddresses []struct {
			EmailAddress string `json:"email_address"`
		} `json:"email_addresses"`
	} `json:"data"`
}

type IdentityHandler struct {
	verifier IdentityVerifier
	profiles repository.UserProfileRepository
	subs     repository.SubscriptionRepository
	tasks    repository.TaskRepository
}

func NewIdentityHandler(
	verifier IdentityVerifier,
	profiles repository.UserProfileRepository,
	subs repository.SubscriptionRepository,
	tasks repository.TaskRepository,
) *IdentityHandler {
	return &IdentityHandler{verifier: verifier, profiles: profiles, subs: subs, tasks: tasks}
}

// NewIdentityVerifier builds the svix verifier for the configured secret.
func NewIdentityVerifier(secret string) (IdentityVerifier, error) {
	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, err
	}
	return wh, nil
}

// Handle applies one identity-provider lifecycle event: user.created seeds
// the profile and a pending subscription row, user.updated refreshes contact
// fields, user.deleted cascades the user's data away.
// @Summary Identity provider webhook endpoint
// @Description Verify the svix signature and apply the user lifecycle event
// @Tags webhooks
// @Accept json
// @Produce json
// @Success 200 {object} map[string]bool "received: true"
// @Failure 400 {object} map[string]string "error: Signature verification failed"
// @Failure 500 {object} map[string]string "error: Event processing failed"
// @Router /webhooks/identity [post]
func (h *IdentityHandler) Handle(c *gin.Context) {
	const MaxBodyBytes = int64(65536)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Could not read request body"})
		return
	}

	if err := h.verifier.Verify(payload, c.Request.Header); err != nil {
		utils.LogError(err, "Identity webhook signature verification failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Signature verification failed"})
		return
	}

	var event identityEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed payload"})
		return
	}
	if event.Data.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Event carries no user id"})
		return
	}

	switch event.Type {
	case "user.created":
		err = h.handleUserCreated(c, event)
	case "user.updated":
		err = h.handleUserUpdated(c, event)
	case "user.deleted":
		err = h.handleUserDeleted(c, event)
	default:
		utils.LogInfo("Ignoring identity event type " + event.Type)
	}
	if err != nil {
		utils.LogError(err, "Error processing identity event "+event.Type)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Event processing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *IdentityHandler) handleUserCreated(c *gin.Context, event identityEvent) error {
	ctx := c.Request.Context()
	userID := event.Data.ID

	_, err := h.profiles.GetByExternalUserID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		profile := &models.UserProfile{
			ExternalUserID: userID,
			Name:           fullName(event),
			Email:          primaryEmail(event),
		}
		if err := h.profiles.Create(ctx, profile); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	_, err = h.subs.GetByExternalUserID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return h.subs.Create(ctx, &models.Subscription{
			ExternalUserID: userID,
			Status:         models.SubscriptionPending,
		})
	}
	return err
}

func (h *IdentityHandler) handleUserUpdated(c *gin.Context, event identityEvent) error {
	ctx := c.Request.Context()

	profile, err := h.profiles.GetByExternalUserID(ctx, event.Data.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// First sign-in can surface as an update; treat it as a create.
		return h.handleUserCreated(c, event)
	}
	if err != nil {
		return err
	}

	profile.Name = fullName(event)
	if email := primaryEmail(event); email != "" {
		profile.Email = email
	}
	return h.profiles.Update(ctx, profile)
}

func (h *IdentityHandler) handleUserDeleted(c *gin.Context, event identityEvent) error {
	ctx := c.Request.Context()
	userID := event.Data.ID

	if err := h.tasks.DeleteByOwner(ctx, userID); err != nil {
		return err
	}
	if err := h.subs.DeleteByExternalUserID(ctx, userID); err != nil {
		return err
	}
	return h.profiles.DeleteByExternalUserID(ctx, userID)
}

func fullName(event identityEvent) string {
	name := event.Data.FirstName
	if event.Data.LastName != "" {
		if name != "" {
			name += " "
		}
		name += event.Data.LastName
	}
	return name
}

func primaryEmail(event identityEvent) string {
	if len(event.Data.EmailAddresses) == 0 {
		return ""
	}
	return event.Data.EmailAddresses[0].EmailAddress
}
