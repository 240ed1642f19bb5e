package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"workspace-service/internal/model"
	"workspace-service/internal/rag"
	"workspace-service/internal/tenant"
	"workspace-service/pkg/logger"
	"workspace-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// retrievalLimit caps how many stored chunks are handed to the generation
// collaborator per question.
const retrievalLimit = 5

// ChatHandler runs the question/answer flow inside the resolved workspace
type ChatHandler struct {
	scope     *tenant.Scope
	generator rag.Generator
}

func NewChatHandler(scope *tenant.Scope, generator rag.Generator) *ChatHandler {
	return &ChatHandler{scope: scope, generator: generator}
}

// ListTabs returns the chat tabs owned by a workspace user
func (h *ChatHandler) ListTabs(c echo.Context) error {
	log := logger.FromContext(c)
	userID, _ := c.Get("user_id").(string)

	defer prometheus.TrackDBOperation("query")(time.Now())

	var tabs []model.ChatTab
	err := h.scope.RunCurrent(c.Request().Context(), func(tx *gorm.DB) error {
		return tenant.Handle(tx, &model.ChatTab{}).
			Where("user_id = ?", userID).
			Order("created_at DESC").
			Find(&tabs).Error
	})
	if err != nil {
		log.Error("Failed to list chat tabs", zap.Error(err))
		return writeTenantError(c, log, err)
	}

	return c.JSON(http.StatusOK, tabs)
}

// CreateTab opens a new chat session for the authenticated user
func (h *ChatHandler) CreateTab(c echo.Context) error {
	log := logger.FromContext(c)
	userID, _ := c.Get("user_id").(string)

	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	tab := model.ChatTab{UserID: userID, Name: req.Name}
	err := h.scope.RunCurrent(c.Request().Context(), func(tx *gorm.DB) error {
		return tx.Create(&tab).Error
	})
	if err != nil {
		log.Error("Failed to create chat tab", zap.Error(err))
		return writeTenantError(c, log, err)
	}

	return c.JSON(http.StatusCreated, tab)
}

// History returns a tab's messages oldest first
func (h *ChatHandler) History(c echo.Context) error {
	log := logger.FromContext(c)
	tabID := c.Param("id")

	defer prometheus.TrackDBOperation("query")(time.Now())

	var tab model.ChatTab
	err := h.scope.RunCurrent(c.Request().Context(), func(tx *gorm.DB) error {
		return tenant.Handle(tx, &model.ChatTab{}).
			Preload("Messages", func(db *gorm.DB) *gorm.DB {
				return db.Order("chat_messages.created_at ASC")
			}).
			Where("id = ?", tabID).
			First(&tab).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "chat tab not found"})
		}
		log.Error("Failed to load chat history", zap.Error(err))
		return writeTenantError(c, log, err)
	}

	return c.JSON(http.StatusOK, tab)
}

// Ask answers a question against the workspace's ingested documents and
// records the exchange on the tab
func (h *ChatHandler) Ask(c echo.Context) error {
	log := logger.FromContext(c)
	tabID := c.Param("id")
	userID, _ := c.Get("user_id").(string)

	var req struct {
		Question   string `json:"question"`
		CategoryID string `json:"category_id,omitempty"`
	}
	if err := c.Bind(&req); err != nil || req.Question == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "question is required"})
	}

	ctx := c.Request().Context()
	started := time.Now()

	var tab model.ChatTab
	var chunks []model.VectorDocument
	err := h.scope.RunCurrent(ctx, func(tx *gorm.DB) error {
		if err := tenant.Handle(tx, &model.ChatTab{}).Where("id = ?", tabID).First(&tab).Error; err != nil {
			return err
		}
		q := tenant.Handle(tx, &model.VectorDocument{}).Order("created_at DESC").Limit(retrievalLimit)
		if req.CategoryID != "" {
			q = q.Where("category_id = ?", req.CategoryID)
		}
		return q.Find(&chunks).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "chat tab not found"})
		}
		log.Error("Failed to retrieve context", zap.Error(err))
		return writeTenantError(c, log, err)
	}

	retrieved := make([]string, 0, len(chunks))
	citations := make([]string, 0, len(chunks))
	for _, ch := range chunks {
		retrieved = append(retrieved, ch.ChunkText)
		citations = append(citations, ch.FileID)
	}

	answer, err := h.generator.Generate(ctx, req.Question, retrieved)
	if err != nil {
		log.Error("Generation failed", zap.String("tab_id", tabID), zap.Error(err))
		prometheus.RecordError("generation")
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "generation service unavailable"})
	}

	msg := model.ChatMessage{
		Question:  req.Question,
		Answer:    answer,
		Citation:  citationJSON(citations),
		LatencyMS: int(time.Since(started).Milliseconds()),
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	err = h.scope.RunCurrent(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}
		if err := tx.Model(&tab).Association("Messages").Append(&msg); err != nil {
			return err
		}
		return tx.Create(&model.AuditLog{
			UserID:    userID,
			EventType: model.AuditEventQuery,
			Details:   fmt.Sprintf(`{"tab_id":%q,"latency_ms":%d}`, tab.ID, msg.LatencyMS),
		}).Error
	})
	if err != nil {
		log.Error("Failed to record chat message", zap.Error(err))
		return writeTenantError(c, log, err)
	}

	log.Info("Question answered",
		zap.String("tab_id", tab.ID),
		zap.Int("retrieved", len(retrieved)),
		zap.Int("latency_ms", msg.LatencyMS))
	return c.JSON(http.StatusOK, msg)
}

func citationJSON(fileIDs []string) string {
	if len(fileIDs) == 0 {
		return ""
	}
	out := `[`
	for i, id := range fileIDs {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf("%q", id)
	}
	return out + `]`
}
