package handlers

import (
	"errors"
	"time"

	"ledgerlens/internal/dto"
	"ledgerlens/internal/models"
	"ledgerlens/internal/repository"
	"ledgerlens/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type DocumentHandler struct {
	docService      *service.DocumentService
	pipelineService *service.PipelineService
	logger          *zap.Logger
}

func NewDocumentHandler(docService *service.DocumentService, pipelineService *service.PipelineService, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{
		docService:      docService,
		pipelineService: pipelineService,
		logger:          logger,
	}
}

// UploadDocument godoc
// @Summary Upload a financial document
// @Description Upload a statement, receipt, spreadsheet or screenshot; processing starts in the background
// @Tags documents
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Document file"
// @Param account_id formData string true "Account the transactions belong to"
// @Security Bearer
// @Success 202 {object} dto.DocumentResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 415 {object} map[string]string
// @Router /api/v1/documents/upload [post]
func (h *DocumentHandler) UploadDocument(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "File is required",
		})
	}

	accountID, err := uuid.Parse(c.FormValue("account_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Valid account_id is required",
		})
	}

	doc, err := h.docService.Upload(c.Context(), userID, accountID, file)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnsupportedFileType):
			return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
				"error": "Unsupported file type",
			})
		case errors.Is(err, service.ErrAccountNotFound):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Account not found",
			})
		default:
			h.logger.Error("Failed to upload document", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to upload document",
			})
		}
	}

	return c.Status(fiber.StatusAccepted).JSON(h.toResponse(c, doc))
}

// GetDocument godoc
// @Summary Get a document
// @Description Get a document with its status and, once processed, its extraction candidates
// @Tags documents
// @Produce json
// @Param id path string true "Document ID"
// @Security Bearer
// @Success 200 {object} dto.DocumentResponse
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/documents/{id} [get]
func (h *DocumentHandler) GetDocument(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	documentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid document ID",
		})
	}

	doc, err := h.docService.GetByID(c.Context(), userID, documentID)
	if err != nil {
		if errors.Is(err, repository.ErrDocumentNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Document not found",
			})
		}
		h.logger.Error("Failed to get document", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get document",
		})
	}

	return c.JSON(h.toResponse(c, doc))
}

// ListDocuments godoc
// @Summary List documents
// @Description List the user's uploaded documents, newest first
// @Tags documents
// @Produce json
// @Param limit query int false "Page size (default 20)"
// @Param offset query int false "Offset"
// @Security Bearer
// @Success 200 {array} dto.DocumentResponse
// @Failure 401 {object} map[string]string
// @Router /api/v1/documents [get]
func (h *DocumentHandler) ListDocuments(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)

	docs, err := h.docService.List(c.Context(), userID, limit, offset)
	if err != nil {
		h.logger.Error("Failed to list documents", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list documents",
		})
	}

	out := make([]dto.DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		out = append(out, h.toResponse(c, doc))
	}
	return c.JSON(out)
}

// ConfirmImport godoc
// @Summary Confirm a held import
// @Description Resolve a PENDING_REVIEW document by choosing which candidates to import
// @Tags documents
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param request body dto.ConfirmImportRequest true "Confirmation choice"
// @Security Bearer
// @Success 200 {object} map[string]int
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/v1/documents/{id}/confirm [post]
func (h *DocumentHandler) ConfirmImport(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	documentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid document ID",
		})
	}

	var req dto.ConfirmImportRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	created, err := h.pipelineService.ConfirmImport(c.Context(), userID, documentID, req)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDocumentNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Document not found",
			})
		case errors.Is(err, service.ErrIllegalTransition):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Document is not awaiting review",
			})
		default:
			h.logger.Error("Failed to confirm import", zap.Error(err))
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
	}

	return c.JSON(fiber.Map{"created": created})
}

func (h *DocumentHandler) toResponse(c *fiber.Ctx, doc *models.Document) dto.DocumentResponse {
	resp := dto.DocumentResponse{
		ID:           doc.ID.String(),
		AccountID:    doc.AccountID.String(),
		FileName:     doc.FileName,
		MimeType:     doc.MimeType,
		FileSize:     doc.FileSize,
		Status:       string(doc.Status),
		ErrorMessage: doc.ErrorMessage,
		UploadedAt:   doc.UploadedAt.Format(time.RFC3339),
	}
	if doc.ProcessedAt != nil {
		resp.ProcessedAt = doc.ProcessedAt.Format(time.RFC3339)
	}

	if doc.Status == models.DocumentStatusPendingReview {
		resp.Candidates = doc.Candidates()
	}
	if doc.Status == models.DocumentStatusCompleted {
		userID, err := getUserID(c)
		if err == nil {
			count, err := h.docService.TransactionCount(c.Context(), userID, doc.ID)
			if err != nil {
				h.logger.Warn("Failed to count document transactions", zap.Error(err))
			} else {
				resp.TransactionCount = count
			}
		}
	}
	return resp
}
