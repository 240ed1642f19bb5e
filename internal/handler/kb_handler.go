package handler

import (
	"context"
	"encoding/json"
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

// KBHandler manages knowledge-base documents and their embedded chunks inside
// the resolved workspace. Chunking happens upstream; this service stores the
// chunks and the vectors the embedding collaborator returns for them.
type KBHandler struct {
	scope    *tenant.Scope
	embedder rag.Embedder
}

func NewKBHandler(scope *tenant.Scope, embedder rag.Embedder) *KBHandler {
	return &KBHandler{scope: scope, embedder: embedder}
}

// List returns the workspace's documents
func (h *KBHandler) List(c echo.Context) error {
	log := logger.FromContext(c)
	defer prometheus.TrackDBOperation("query")(time.Now())

	var docs []model.KnowledgeBase
	err := h.scope.RunCurrent(c.Request().Context(), func(tx *gorm.DB) error {
		q := tenant.Handle(tx, &model.KnowledgeBase{}).Order("created_at DESC")
		if cat := c.QueryParam("category_id"); cat != "" {
			q = q.Where("category_id = ?", cat)
		}
		return q.Find(&docs).Error
	})
	if err != nil {
		log.Error("Failed to list documents", zap.Error(err))
		return writeTenantError(c, log, err)
	}

	return c.JSON(http.StatusOK, docs)
}

// Create registers an uploaded document's metadata
func (h *KBHandler) Create(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		UserID     string `json:"user_id"`
		CategoryID string `json:"category_id"`
		FileName   string `json:"file_name"`
		Mime       string `json:"mime,omitempty"`
		FileSize   int64  `json:"file_size,omitempty"`
		StorageURL string `json:"storage_url,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.UserID == "" || req.CategoryID == "" || req.FileName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id, category_id and file_name are required"})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	doc := model.KnowledgeBase{
		UserID:     req.UserID,
		CategoryID: req.CategoryID,
		FileName:   req.FileName,
		Mime:       req.Mime,
		FileSize:   req.FileSize,
		StorageURL: req.StorageURL,
		Status:     model.KBStatusUploaded,
	}
	err := h.scope.RunCurrent(c.Request().Context(), func(tx *gorm.DB) error {
		if err := tx.Create(&doc).Error; err != nil {
			return err
		}
		return tx.Create(&model.AuditLog{
			UserID:    req.UserID,
			EventType: model.AuditEventUpload,
			Details:   fmt.Sprintf(`{"file_name":%q}`, req.FileName),
		}).Error
	})
	if err != nil {
		log.Error("Failed to register document", zap.Error(err))
		return writeTenantError(c, log, err)
	}

	log.Info("Document registered", zap.String("doc_id", doc.ID), zap.String("file_name", doc.FileName))
	return c.JSON(http.StatusCreated, doc)
}

// Ingest embeds a document's chunks and stores them as vector documents.
// Re-ingesting replaces the document's previous chunks.
func (h *KBHandler) Ingest(c echo.Context) error {
	log := logger.FromContext(c)
	docID := c.Param("id")

	var req struct {
		Chunks []string `json:"chunks"`
	}
	if err := c.Bind(&req); err != nil || len(req.Chunks) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "chunks are required"})
	}

	ctx := c.Request().Context()

	// Mark the document before calling out, so a crashed ingestion is visible
	var doc model.KnowledgeBase
	err := h.scope.RunCurrent(ctx, func(tx *gorm.DB) error {
		if err := tenant.Handle(tx, &model.KnowledgeBase{}).Where("id = ?", docID).First(&doc).Error; err != nil {
			return err
		}
		return tx.Model(&doc).Update("status", model.KBStatusIngesting).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "document not found"})
		}
		return writeTenantError(c, log, err)
	}

	vectors, err := h.embedder.Embed(ctx, req.Chunks)
	if err != nil {
		log.Error("Embedding failed", zap.String("doc_id", docID), zap.Error(err))
		h.markFailed(ctx, docID)
		prometheus.RecordError("embedding")
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "embedding service unavailable"})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	err = h.scope.RunCurrent(ctx, func(tx *gorm.DB) error {
		if err := tx.Delete(&model.VectorDocument{}, "file_id = ?", docID).Error; err != nil {
			return err
		}
		for i, chunk := range req.Chunks {
			raw, err := json.Marshal(vectors[i])
			if err != nil {
				return err
			}
			vd := model.VectorDocument{
				UserID:     doc.UserID,
				CategoryID: doc.CategoryID,
				FileID:     doc.ID,
				ChunkIndex: i,
				ChunkText:  chunk,
				Embedding:  string(raw),
			}
			if err := tx.Create(&vd).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&model.KnowledgeBase{}).Where("id = ?", docID).
			Update("status", model.KBStatusCompleted).Error; err != nil {
			return err
		}
		return tx.Create(&model.AuditLog{
			UserID:    doc.UserID,
			EventType: model.AuditEventEmbedding,
			Details:   fmt.Sprintf(`{"file_id":%q,"chunks":%d}`, doc.ID, len(req.Chunks)),
		}).Error
	})
	if err != nil {
		log.Error("Failed to store chunks", zap.String("doc_id", docID), zap.Error(err))
		h.markFailed(ctx, docID)
		return writeTenantError(c, log, err)
	}

	log.Info("Document ingested", zap.String("doc_id", docID), zap.Int("chunks", len(req.Chunks)))
	return c.JSON(http.StatusOK, echo.Map{"message": "document ingested", "chunks": len(req.Chunks)})
}

func (h *KBHandler) markFailed(ctx context.Context, docID string) {
	if err := h.scope.RunCurrent(ctx, func(tx *gorm.DB) error {
		return tx.Model(&model.KnowledgeBase{}).Where("id = ?", docID).
			Update("status", model.KBStatusFailed).Error
	}); err != nil {
		logger.GetLogger().Warn("Failed to mark document as failed", zap.String("doc_id", docID), zap.Error(err))
	}
}
