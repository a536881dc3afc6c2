package profile

import (
	"errors"
	"net/http"

	"taskmgr-backend/middleware"
	"taskmgr-backend/models"
	"taskmgr-backend/repository"
	"taskmgr-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Handler struct {
	profiles repository.UserProfileRepository
	subs     repository.SubscriptionRepository
	tasks    repository.TaskRepository
}

func New(profiles repository.UserProfileRepository, subs repository.SubscriptionRepository, tasks repository.TaskRepository) *Handler {
	return &Handler{profiles: profiles, subs: subs, tasks: tasks}
}

// GetProfile returns the caller's profile.
// @Summary Get own profile
// @Description Return the profile of the authenticated user
// @Tags profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.UserProfile
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Failure 404 {object} map[string]string "error: Profile not found"
// @Router /profile [get]
func (h *Handler) GetProfile(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	profile, err := h.profiles.GetByExternalUserID(c.Request.Context(), caller.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
		return
	}
	if err != nil {
		utils.LogErrorWithUser(caller.UserID, err, "Error loading profile in GetProfile")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching profile"})
		return
	}

	c.JSON(http.StatusOK, profile)
}

// UpsertProfile creates or updates the caller's profile. A first profile
// edit before the identity webhook lands still creates the row.
// @Summary Create or update own profile
// @Description Create the profile on first edit, update it afterwards
// @Tags profile
// @Accept json
// @Produce json
// @Param profile body models.UserProfileUpdate true "Profile fields"
// @Security BearerAuth
// @Success 200 {object} models.UserProfile
// @Failure 400 {object} map[string]string "error: Invalid input"
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Router /profile [put]
func (h *Handler) UpsertProfile(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var input models.UserProfileUpdate
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	ctx := c.Request.Context()
	profile, err := h.profiles.GetByExternalUserID(ctx, caller.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		profile = &models.UserProfile{ExternalUserID: caller.UserID}
		applyUpdate(profile, &input)
		if err := h.profiles.Create(ctx, profile); err != nil {
			utils.LogErrorWithUser(caller.UserID, err, "Error creating profile in UpsertProfile")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating profile"})
			return
		}
		utils.LogSuccessWithUser(caller.UserID, "Profile created in UpsertProfile")
		c.JSON(http.StatusOK, profile)
		return
	}
	if err != nil {
		utils.LogErrorWithUser(caller.UserID, err, "Error loading profile in UpsertProfile")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching profile"})
		return
	}

	applyUpdate(profile, &input)
	if err := h.profiles.Update(ctx, profile); err != nil {
		utils.LogErrorWithUser(caller.UserID, err, "Error updating profile in UpsertProfile")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating profile"})
		return
	}

	utils.LogSuccessWithUser(caller.UserID, "Profile updated in UpsertProfile")
	c.JSON(http.StatusOK, profile)
}

// DeleteProfile removes the caller's profile and everything hanging off it.
// @Summary Delete own profile
// @Description Delete the profile, subscription record and tasks of the authenticated user
// @Tags profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string "message: Profile deleted successfully"
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Router /profile [delete]
func (h *Handler) DeleteProfile(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	ctx := c.Request.Context()
	if err := h.tasks.DeleteByOwner(ctx, caller.UserID); err != nil {
		utils.LogErrorWithUser(caller.UserID, err, "Error deleting tasks in DeleteProfile")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error deleting profile"})
		return
	}
	if err := h.subs.DeleteByExternalUserID(ctx, caller.UserID); err != nil {
		utils.LogErrorWithUser(caller.UserID, err, "Error deleting subscription in DeleteProfile")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error deleting profile"})
		return
	}
	if err := h.profiles.DeleteByExternalUserID(ctx, caller.UserID); err != nil {
		utils.LogErrorWithUser(caller.UserID, err, "Error deleting profile in DeleteProfile")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error deleting profile"})
		return
	}

	utils.LogSuccessWithUser(caller.UserID, "Profile deleted in DeleteProfile")
	c.JSON(http.StatusOK, gin.H{"message": "Profile deleted successfully"})
}

func applyUpdate(profile *models.UserProfile, input *models.UserProfileUpdate) {
	profile.Name = input.Name
	profile.Email = input.Email
	profile.AddressLine1 = input.AddressLine1
	profile.AddressLine2 = input.AddressLine2
	profile.City = input.City
	profile.State = input.State
	profile.PostalCode = input.PostalCode
	profile.Country = input.Country
	profile.Notes = input.Notes
}
