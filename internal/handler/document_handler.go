package handler

import (
	"io"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/1Kunalvats9/dorry-backend/internal/model"
	"github.com/1Kunalvats9/dorry-backend/internal/pkg/errcode"
	"github.com/1Kunalvats9/dorry-backend/internal/pkg/response"
	"github.com/1Kunalvats9/dorry-backend/internal/service"
)

// 20 MiB covers any reasonable document upload.
const maxUploadSize = 20 << 20

type DocumentHandler struct {
	documents *service.DocumentService
	ingest    *service.IngestService
	events    *service.EventService
}

func NewDocumentHandler(documents *service.DocumentService, ingest *service.IngestService, events *service.EventService) *DocumentHandler {
	return &DocumentHandler{documents: documents, ingest: ingest, events: events}
}

type createTextRequest struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Markdown bool   `json:"markdown"`
}

type documentResponse struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Kind       string `json:"kind"`
	Status     string `json:"status"`
	FailReason string `json:"fail_reason,omitempty"`
	Ctime      int64  `json:"ctime"`
	Mtime      int64  `json:"mtime"`
}

func toDocumentResponse(doc *model.Document) documentResponse {
	return documentResponse{
		ID:         doc.ID,
		Title:      doc.Title,
		Kind:       doc.Kind,
		Status:     doc.Status,
		FailReason: doc.FailReason,
		Ctime:      doc.Ctime,
		Mtime:      doc.Mtime,
	}
}

func (h *DocumentHandler) CreateText(c *gin.Context) {
	var req createTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	doc, err := h.ingest.IngestText(c.Request.Context(), getUserID(c), req.Title, req.Content, req.Markdown)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, toDocumentResponse(doc))
}

func (h *DocumentHandler) UploadPDF(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "file is required")
		return
	}
	if file.Size > maxUploadSize {
		response.Error(c, errcode.ErrInvalidFile, "file too large")
		return
	}
	if !strings.HasSuffix(strings.ToLower(file.Filename), ".pdf") {
		response.Error(c, errcode.ErrInvalidFile, "only pdf uploads are supported")
		return
	}
	opened, err := file.Open()
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "failed to open file")
		return
	}
	defer opened.Close()
	data, err := io.ReadAll(io.LimitReader(opened, maxUploadSize+1))
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "failed to read file")
		return
	}
	if len(data) > maxUploadSize {
		response.Error(c, errcode.ErrInvalidFile, "file too large")
		return
	}

	title := strings.TrimSpace(c.PostForm("title"))
	if title == "" {
		title = strings.TrimSuffix(file.Filename, ".pdf")
	}
	doc, err := h.ingest.IngestPDF(c.Request.Context(), getUserID(c), title, data)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, toDocumentResponse(doc))
}

func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.documents.Get(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	resp := struct {
		documentResponse
		Content string `json:"content"`
	}{toDocumentResponse(doc), doc.Content}
	response.Success(c, resp)
}

func (h *DocumentHandler) List(c *gin.Context) {
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)
	docs, err := h.documents.List(c.Request.Context(), getUserID(c), limit, offset)
	if err != nil {
		handleError(c, err)
		return
	}
	out := make([]documentResponse, 0, len(docs))
	for i := range docs {
		out = append(out, toDocumentResponse(&docs[i]))
	}
	response.Success(c, gin.H{"documents": out})
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	if err := h.documents.Delete(c.Request.Context(), getUserID(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": true})
}

func (h *DocumentHandler) Purge(c *gin.Context) {
	if err := h.documents.Purge(c.Request.Context(), getUserID(c)); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"purged": true})
}

func (h *DocumentHandler) ListEvents(c *gin.Context) {
	userID := getUserID(c)
	docID := c.Param("id")
	if _, err := h.documents.Get(c.Request.Context(), userID, docID); err != nil {
		handleError(c, err)
		return
	}
	events, err := h.events.ListByDocument(c.Request.Context(), userID, docID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"events": events})
}
