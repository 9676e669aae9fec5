package documents

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/resumeai-platform/resumeai/internal/api"
	"github.com/resumeai-platform/resumeai/internal/auth"
	"github.com/resumeai-platform/resumeai/internal/generation"
	"github.com/resumeai-platform/resumeai/internal/usage"
)

// maxUploadBytes caps a résumé upload, multipart overhead included.
const maxUploadBytes = 5 << 20

type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(),
	}
}

// decode reads and validates the JSON body into dst, writing the error response itself.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return false
	}
	return true
}

func (h *Handler) CreateResume(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var req CreateResumeRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.svc.CreateResume(r.Context(), userID, &req)
	if err != nil {
		writeError(w, "creating resume", err)
		return
	}
	api.JSON(w, http.StatusCreated, Summary{ID: res.ID, Title: res.Title, CreatedAt: res.CreatedAt})
}

// UploadResume accepts a multipart PDF in the "file" field and an optional
// "title", and stores its extracted text as a résumé.
func (h *Handler) UploadResume(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.HandleError(w, api.ErrPayloadTooLarge)
			return
		}
		api.HandleError(w, api.NewBadRequestError("multipart form with a file field required"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("no file provided"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("reading upload failed"))
		return
	}
	if !isPDF(header.Header.Get("Content-Type"), data) {
		api.HandleError(w, api.NewBadRequestError(ErrNotPDF.Error()))
		return
	}

	title := r.FormValue("title")
	if title == "" {
		title = strings.TrimSuffix(header.Filename, filepath.Ext(header.Filename))
	}

	res, err := h.svc.UploadResume(r.Context(), userID, title, data)
	if err != nil {
		writeError(w, "uploading resume", err)
		return
	}
	api.JSON(w, http.StatusCreated, UploadedResume{
		Summary: Summary{ID: res.ID, Title: res.Title, CreatedAt: res.CreatedAt},
		Text:    res.OriginalContent,
	})
}

func (h *Handler) ListResumes(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, TypeResumes)
}

// List serves GET /documents?type=resumes|covers|proposals.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	t, err := ParseType(r.URL.Query().Get("type"))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("type must be one of resumes, covers, proposals"))
		return
	}
	h.list(w, r, t)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, t Type) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	params := DefaultListParams()
	if p := r.URL.Query().Get("page"); p != "" {
		if page, err := strconv.Atoi(p); err == nil && page > 0 {
			params.Page = page
		}
	}
	if ps := r.URL.Query().Get("page_size"); ps != "" {
		if pageSize, err := strconv.Atoi(ps); err == nil && pageSize > 0 && pageSize <= 100 {
			params.PageSize = pageSize
		}
	}

	items, total, err := h.svc.List(r.Context(), userID, t, params)
	if err != nil {
		writeError(w, "listing documents", err)
		return
	}
	api.JSONPaginated(w, http.StatusOK, items, total, params.Page, params.PageSize)
}

func (h *Handler) GenerateResume(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var req GenerateResumeRequest
	if !h.decode(w, r, &req) {
		return
	}

	out, err := h.svc.GenerateResume(r.Context(), userID, &req)
	if err != nil {
		writeError(w, "generating resume", err)
		return
	}
	api.JSON(w, http.StatusOK, out)
}

func (h *Handler) GenerateCover(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var req GenerateCoverRequest
	if !h.decode(w, r, &req) {
		return
	}

	out, err := h.svc.GenerateCover(r.Context(), userID, &req)
	if err != nil {
		writeError(w, "generating cover letter", err)
		return
	}
	api.JSON(w, http.StatusOK, out)
}

func (h *Handler) GenerateProposal(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var req GenerateProposalRequest
	if !h.decode(w, r, &req) {
		return
	}

	out, err := h.svc.GenerateProposal(r.Context(), userID, &req)
	if err != nil {
		writeError(w, "generating proposal", err)
		return
	}
	api.JSON(w, http.StatusOK, out)
}

// Get returns one document with its content as JSON.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	t, err := ParseType(chi.URLParam(r, "type"))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("type must be one of resumes, covers, proposals"))
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, api.ErrNotFound)
		return
	}

	doc, err := h.svc.Get(r.Context(), userID, t, id)
	if err != nil {
		writeError(w, "fetching document", err)
		return
	}
	api.JSON(w, http.StatusOK, doc)
}

// Export serves a document as a plain-text attachment.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	t, err := ParseType(chi.URLParam(r, "type"))
	if err != nil {
		api.HandleError(w, api.ErrNotFound)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, api.ErrNotFound)
		return
	}

	name, text, err := h.svc.Export(r.Context(), userID, t, id)
	if err != nil {
		writeError(w, "exporting document", err)
		return
	}

	api.Attachment(w, name, "text/plain; charset=utf-8", []byte(text))
}

func writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		api.HandleError(w, api.ErrNotFound)
	case errors.Is(err, ErrNoResume):
		api.HandleError(w, api.NewBadRequestError("provide resume text or create a resume first"))
	case errors.Is(err, ErrNoText):
		api.HandleError(w, &api.AppError{Code: http.StatusUnprocessableEntity, Message: ErrNoText.Error()})
	case errors.Is(err, ErrUnreadablePDF):
		slog.Warn(op, "error", err)
		api.HandleError(w, &api.AppError{Code: http.StatusUnprocessableEntity, Message: ErrUnreadablePDF.Error()})
	case errors.Is(err, ErrInvalidType):
		api.HandleError(w, api.NewBadRequestError(err.Error()))
	case errors.Is(err, generation.ErrEmptyCompletion):
		api.HandleError(w, api.ErrBadGateway)
	case errors.Is(err, generation.ErrProvider):
		slog.Error(op, "error", err)
		api.HandleError(w, api.ErrGenerationFailed)
	case errors.Is(err, usage.ErrBlocked), errors.Is(err, usage.ErrQuotaExhausted),
		errors.Is(err, usage.ErrRateLimited), errors.Is(err, usage.ErrAccountNotFound):
		usage.WriteError(w, err)
	default:
		slog.Error(op, "error", err)
		api.HandleError(w, api.ErrInternalServer)
	}
}

