package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"checklist-tracker/internal/cache"
	"checklist-tracker/internal/config"
	"checklist-tracker/internal/middleware"
	"checklist-tracker/internal/models"
	"checklist-tracker/internal/queue"
	"checklist-tracker/internal/repository"
	"checklist-tracker/internal/summary"
	"checklist-tracker/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const anonymousUser = "anonymous"

var catalogGroup singleflight.Group

func today() string {
	return time.Now().Format(summary.DateLayout)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// actingUser prefers the authenticated subject over the user named in the body.
func actingUser(c *gin.Context, fromBody string) string {
	if u := c.GetString(middleware.UserKey); u != "" {
		return u
	}
	if fromBody != "" {
		return fromBody
	}
	return anonymousUser
}

// GetChecklist returns the stored record for ?date=<record key> (default today), or an empty one.
func GetChecklist(c *gin.Context) {
	ctx := c.Request.Context()
	key := c.DefaultQuery("date", today())

	if b, ok := cache.GetRawRecord(ctx, key); ok {
		c.Data(http.StatusOK, "application/json", b)
		return
	}
	version, cacheable := cache.RecordVersion(ctx, key)
	rec, err := repository.GetRecord(ctx, key)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusOK, models.DailyRecord{Key: key, Items: json.RawMessage("[]"), Checked: models.CheckedMap{}})
		return
	}
	if err != nil {
		if isContextErr(err) {
			return
		}
		logger.Error(ctx, "GetChecklist repository failed", "error", err, "key", key)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get checklist"})
		return
	}
	b, err := json.Marshal(rec)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encode checklist"})
		return
	}
	c.Data(http.StatusOK, "application/json", b)
	if cacheable {
		go cache.SetRawRecordIfCurrentAsync(key, version, b)
	}
}

// SaveChecklist replaces items and checked of one record.
func SaveChecklist(c *gin.Context) {
	ctx := c.Request.Context()
	var body struct {
		Date    string            `json:"date"`
		Items   json.RawMessage   `json:"items"`
		Checked models.CheckedMap `json:"checked"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	if body.Date == "" {
		body.Date = today()
	}
	rec := &models.DailyRecord{Key: body.Date, Items: body.Items, Checked: body.Checked}
	if err := repository.SaveRecord(ctx, rec); err != nil {
		logger.Error(ctx, "SaveChecklist failed", "error", err, "key", body.Date)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save checklist"})
		return
	}
	cache.InvalidateRecord(ctx, body.Date)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ToggleCheck flips the acting user's check on one item.
func ToggleCheck(c *gin.Context) {
	var body struct {
		Date   string `json:"date"`
		ItemID string `json:"item_id"`
		User   string `json:"user"`
		Note   string `json:"note"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	if body.ItemID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing item_id"})
		return
	}
	if body.Date == "" {
		body.Date = today()
	}
	dispatch(c, &models.ChecklistCommand{
		Action:      models.ActionToggle,
		RecordKey:   body.Date,
		ItemID:      body.ItemID,
		User:        actingUser(c, body.User),
		Note:        body.Note,
		RequestedAt: time.Now(),
	})
}

// AttachPhoto records a reference to an already uploaded photo on the acting user's entry.
func AttachPhoto(c *gin.Context) {
	var body struct {
		Date     string `json:"date"`
		ItemID   string `json:"item_id" binding:"required"`
		User     string `json:"user"`
		URL      string `json:"url" binding:"required"`
		Filename string `json:"filename"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	if body.Date == "" {
		body.Date = today()
	}
	now := time.Now().UTC()
	dispatch(c, &models.ChecklistCommand{
		Action:    models.ActionAttachPhoto,
		RecordKey: body.Date,
		ItemID:    body.ItemID,
		User:      actingUser(c, body.User),
		Photo: &models.PhotoRef{
			ID:         uuid.New().String(),
			URL:        body.URL,
			Filename:   body.Filename,
			UploadedAt: now,
		},
		RequestedAt: now,
	})
}

// dispatch queues cmd when Kafka is configured (202), otherwise applies it inline (200).
func dispatch(c *gin.Context, cmd *models.ChecklistCommand) {
	ctx := c.Request.Context()
	if config.Get().QueueEnabled() {
		if err := queue.PublishCommand(ctx, cmd); err != nil {
			logger.Error(ctx, "Publish checklist command failed", "error", err, "action", cmd.Action)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Request queued failed"})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"success": true, "queued": true})
		return
	}
	checked, err := repository.ApplyCommand(ctx, cmd)
	if err != nil {
		logger.Error(ctx, "Apply checklist command failed", "error", err, "action", cmd.Action, "key", cmd.RecordKey)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update checklist"})
		return
	}
	cache.InvalidateRecord(ctx, cmd.RecordKey)
	c.JSON(http.StatusOK, gin.H{"success": true, "checked": checked})
}

// GetItems returns the master catalog, cache-first.
func GetItems(c *gin.Context) {
	ctx := c.Request.Context()
	if b, ok := cache.GetRawCatalog(ctx); ok {
		c.Data(http.StatusOK, "application/json", b)
		return
	}
	v, err, _ := catalogGroup.Do("catalog", func() (interface{}, error) {
		items, err := repository.LoadCatalog(context.Background())
		if err != nil {
			return nil, err
		}
		return json.Marshal(gin.H{"items": items})
	})
	if err != nil {
		logger.Error(ctx, "GetItems repository failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get checklist items"})
		return
	}
	b := v.([]byte)
	c.Data(http.StatusOK, "application/json", b)
	go cache.SetRawCatalogAsync(b)
}

// SetItems replaces the master catalog wholesale.
func SetItems(c *gin.Context) {
	ctx := c.Request.Context()
	var body struct {
		Items []models.ChecklistItem `json:"items"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	seen := make(map[string]bool, len(body.Items))
	for _, item := range body.Items {
		if item.ID == "" || seen[item.ID] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Every item needs a unique id", "id": item.ID})
			return
		}
		seen[item.ID] = true
	}
	if err := repository.SaveCatalog(ctx, body.Items); err != nil {
		logger.Error(ctx, "SetItems failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save checklist items"})
		return
	}
	cache.InvalidateCatalog(ctx)
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(body.Items)})
}
