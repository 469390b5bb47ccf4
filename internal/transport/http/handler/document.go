package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"docchat/internal/app"
	"docchat/internal/extract"
	"docchat/internal/model"
	"docchat/internal/transport/http/response"
)

const maxUploadSize = 10 << 20 // 10 MB

type DocumentHandler struct {
	documentService *app.DocumentService
	searchTopK      int
}

func NewDocumentHandler(documentService *app.DocumentService, searchTopK int) *DocumentHandler {
	return &DocumentHandler{documentService: documentService, searchTopK: searchTopK}
}

// Upload ingests a multipart file and answers with the new document and
// conversation ids.
func (h *DocumentHandler) Upload(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file field")
		return
	}
	if fileHeader.Size > maxUploadSize {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file exceeds 10 MB limit")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "open uploaded file failed")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSize+1))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "read uploaded file failed")
		return
	}
	if len(data) > maxUploadSize {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file exceeds 10 MB limit")
		return
	}

	result, err := h.documentService.Ingest(c.Request.Context(), app.IngestInput{
		UserID:   userID,
		Filename: fileHeader.Filename,
		MimeType: fileHeader.Header.Get("Content-Type"),
		Data:     data,
	})
	if err != nil {
		switch {
		case errors.Is(err, extract.ErrUnsupportedFormat):
			response.Error(c, http.StatusBadRequest, response.CodeUnsupportedFormat, err.Error())
		case errors.Is(err, app.ErrInvalidRequest):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "upload failed")
		}
		return
	}

	response.OK(c, gin.H{
		"document_id":     result.Document.ID,
		"conversation_id": result.ConversationID,
		"document":        result.Document,
	})
}

func (h *DocumentHandler) List(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	docs, err := h.documentService.ListDocuments(userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list documents failed")
		return
	}
	response.OK(c, docs)
}

// GetFile streams the raw document bytes back to the owner.
func (h *DocumentHandler) GetFile(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	doc, err := h.documentService.GetDocument(userID, id)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrDocumentNotFound):
			response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "get document failed")
		}
		return
	}

	disposition := "attachment"
	if doc.MediaType == model.MediaTypePDF {
		disposition = "inline"
	}
	c.Header("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, doc.Filename))
	c.Data(http.StatusOK, doc.MimeType, doc.Content)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.documentService.Delete(c.Request.Context(), userID, id); err != nil {
		switch {
		case errors.Is(err, app.ErrDocumentNotFound):
			response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, err.Error())
		case errors.Is(err, app.ErrInvalidRequest):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete document failed")
		}
		return
	}

	response.OK(c, gin.H{"deleted_document_id": id})
}

// Search ranks the caller's indexed documents against the q parameter. An
// empty index answers with an empty list.
func (h *DocumentHandler) Search(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	query := c.Query("q")
	k := h.searchTopK
	if raw := c.Query("k"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			k = parsed
		}
	}

	matches, err := h.documentService.Search(c.Request.Context(), userID, query, k)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidRequest):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "query text is required")
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "search failed")
		}
		return
	}

	response.OK(c, matches)
}

func parseIDParam(c *gin.Context) (uint, bool) {
	id64, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id64 == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid document id")
		return 0, false
	}
	return uint(id64), true
}
