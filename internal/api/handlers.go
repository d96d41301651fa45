package api

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/HendryAvila/docsmith/internal/docerr"
	"github.com/HendryAvila/docsmith/internal/editor"
)

// multipartOverhead is the slack allowed on top of the upload cap for
// multipart framing.
const multipartOverhead = 1 << 20

// HealthResponse is returned by the health endpoints.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// RemoteUploadRequest is the body of POST /v1/documents/remote.
type RemoteUploadRequest struct {
	URL      string `json:"url" binding:"required"`
	Filename string `json:"filename"`
}

// AnalyzeRequest is the body of POST /v1/documents/:id/analyze.
type AnalyzeRequest struct {
	Request string `json:"request" binding:"required"`
}

// ApplyRequest is the body of POST /v1/documents/:id/apply.
type ApplyRequest struct {
	SuggestionIDs []string `json:"suggestion_ids"`
}

// Handlers holds the REST handlers.
type Handlers struct {
	editor *editor.Editor
}

// NewHandlers creates Handlers backed by e.
func NewHandlers(e *editor.Editor) *Handlers {
	return &Handlers{editor: e}
}

// HandleHealth reports liveness.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "healthy", Message: "docsmith is running"})
}

// HandleUpload accepts a multipart upload in field "file". An optional
// "filename" field overrides the part's filename.
func (h *Handlers) HandleUpload(c *gin.Context) {
	if limit := h.editor.MaxUploadBytes(); limit > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartOverhead)
	}
	fh, err := c.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			renderError(c, docerr.Invalid("upload exceeds %d bytes", h.editor.MaxUploadBytes()))
			return
		}
		renderError(c, docerr.Invalid("multipart field 'file' is required: %v", err))
		return
	}
	f, err := fh.Open()
	if err != nil {
		renderError(c, docerr.Invalid("reading upload: %v", err))
		return
	}
	defer f.Close()

	r := io.Reader(f)
	if limit := h.editor.MaxUploadBytes(); limit > 0 {
		r = io.LimitReader(f, limit+1)
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		renderError(c, docerr.Invalid("reading upload: %v", err))
		return
	}

	filename := fh.Filename
	if v := strings.TrimSpace(c.PostForm("filename")); v != "" {
		filename = v
	}
	res, err := h.editor.Upload(c.Request.Context(), filename, raw)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// HandleUploadRemote fetches a document from a URL.
func (h *Handlers) HandleUploadRemote(c *gin.Context) {
	var req RemoteUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, docerr.Invalid("%v", err))
		return
	}
	res, err := h.editor.UploadURL(c.Request.Context(), req.URL, req.Filename)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// HandleDescribe returns the document's current state.
func (h *Handlers) HandleDescribe(c *gin.Context) {
	d, err := h.editor.Describe(c.Request.Context(), c.Param("id"))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// HandleDiscard forgets a document.
func (h *Handlers) HandleDiscard(c *gin.Context) {
	if err := h.editor.Discard(c.Request.Context(), c.Param("id")); err != nil {
		renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleAnalyze generates a new suggestion generation.
func (h *Handlers) HandleAnalyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, docerr.Invalid("%v", err))
		return
	}
	res, err := h.editor.Analyze(c.Request.Context(), c.Param("id"), req.Request)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// HandleSuggestions lists the live generation.
func (h *Handlers) HandleSuggestions(c *gin.Context) {
	res, err := h.editor.ListSuggestions(c.Request.Context(), c.Param("id"))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// HandleApply applies the accepted suggestions.
func (h *Handlers) HandleApply(c *gin.Context) {
	var req ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, docerr.Invalid("%v", err))
		return
	}
	res, err := h.editor.Apply(c.Request.Context(), c.Param("id"), req.SuggestionIDs)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// HandleDownload streams an artifact as an attachment.
func (h *Handlers) HandleDownload(c *gin.Context) {
	a, err := h.editor.Download(c.Request.Context(), c.Param("name"))
	if err != nil {
		renderError(c, err)
		return
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.Filename}))
	c.Header("ETag", strconv.Quote(a.SHA256))
	c.Data(http.StatusOK, a.MIMEType, a.Content)
}

// statusFor maps an error code to an HTTP status.
func statusFor(code docerr.Code) int {
	switch code {
	case docerr.CodeInvalidArgument, docerr.CodeEmptySelection:
		return http.StatusBadRequest
	case docerr.CodeNotFound:
		return http.StatusNotFound
	case docerr.CodeStaleSuggestion, docerr.CodeConflict:
		return http.StatusConflict
	case docerr.CodeDecode:
		return http.StatusUnprocessableEntity
	case docerr.CodeBusy:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func renderError(c *gin.Context, err error) {
	f := docerr.FailureOf(err)
	if f.Code == docerr.CodeBusy {
		c.Header("Retry-After", "1")
	}
	c.AbortWithStatusJSON(statusFor(f.Code), f)
}
