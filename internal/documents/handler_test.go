package documents

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resumeai-platform/resumeai/internal/auth"
	"github.com/resumeai-platform/resumeai/internal/generation"
	"github.com/resumeai-platform/resumeai/internal/usage"
)

func newTestRouter(h *Handler, userID uuid.UUID) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := auth.WithUserClaims(req.Context(), &auth.AccessClaims{UserID: userID.String()})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Post("/resumes", h.CreateResume)
	r.Post("/resumes/upload", h.UploadResume)
	r.Get("/resumes", h.ListResumes)
	r.Post("/generate/resume", h.GenerateResume)
	r.Post("/generate/cover", h.GenerateCover)
	r.Post("/generate/proposal", h.GenerateProposal)
	r.Get("/documents", h.List)
	r.Get("/documents/{type}/{id}", h.Get)
	r.Get("/documents/{type}/{id}/export", h.Export)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandler_GenerateResume(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(NewHandler(f.svc), uuid.New())

	rec := do(t, router, http.MethodPost, "/generate/resume", `{"resume":"Jane Doe","title":"Mine"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			ID      string `json:"id"`
			Content string `json:"content"`
			Usage   struct {
				Remaining int    `json:"remaining"`
				Type      string `json:"type"`
			} `json:"usage"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "generated text", body.Data.Content)
	assert.Equal(t, 9, body.Data.Usage.Remaining)
	assert.Equal(t, "resume", body.Data.Usage.Type)
}

func TestHandler_GenerateErrors(t *testing.T) {
	cases := []struct {
		name  string
		setup func(f *fixture)
		path  string
		body  string
		want  int
	}{
		{"missing resume", nil, "/generate/resume", `{}`, http.StatusBadRequest},
		{"malformed json", nil, "/generate/resume", `{`, http.StatusBadRequest},
		{"cover without resume", nil, "/generate/cover", `{"job_title":"SRE","company":"Acme"}`, http.StatusBadRequest},
		{"cover missing company", nil, "/generate/cover", `{"job_title":"SRE"}`, http.StatusBadRequest},
		{"proposal missing title", nil, "/generate/proposal", `{"resume_text":"x"}`, http.StatusBadRequest},
		{
			"empty completion", func(f *fixture) { f.gen.err = generation.ErrEmptyCompletion },
			"/generate/resume", `{"resume":"x"}`, http.StatusBadGateway,
		},
		{
			"provider failure", func(f *fixture) { f.gen.err = generation.ErrProvider },
			"/generate/proposal", `{"project_title":"API","resume_text":"x"}`, http.StatusBadGateway,
		},
		{
			"blocked", func(f *fixture) { f.guard.reject = &usage.BlockedError{Reason: "fraud"} },
			"/generate/resume", `{"resume":"x"}`, http.StatusForbidden,
		},
		{
			"rate limited", func(f *fixture) { f.guard.reject = usage.ErrRateLimited },
			"/generate/resume", `{"resume":"x"}`, http.StatusTooManyRequests,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			if tc.setup != nil {
				tc.setup(f)
			}
			rec := do(t, newTestRouter(NewHandler(f.svc), uuid.New()), http.MethodPost, tc.path, tc.body)
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
		})
	}
}

func TestHandler_QuotaExhaustedBody(t *testing.T) {
	f := newFixture(t)
	end := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)
	f.guard.reject = &usage.QuotaExhaustedError{Kind: usage.KindCover, PeriodEnd: end}
	router := newTestRouter(NewHandler(f.svc), uuid.New())

	rec := do(t, router, http.MethodPost, "/generate/proposal", `{"project_title":"API","resume_text":"x"}`)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["limit_reached"])
	assert.Equal(t, "Monthly cover letter limit reached", body["error"])
	assert.Equal(t, "cover", body["usage"].(map[string]any)["type"])
}

func TestHandler_ListAndExport(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	router := newTestRouter(NewHandler(f.svc), userID)

	rec := do(t, router, http.MethodPost, "/resumes", `{"title":"Backend","content":"Go and Postgres"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Data Summary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = do(t, router, http.MethodGet, "/resumes", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Data       []Summary `json:"data"`
		TotalCount int64     `json:"total_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Equal(t, int64(1), listed.TotalCount)
	assert.Equal(t, "Backend", listed.Data[0].Title)

	rec = do(t, router, http.MethodGet, "/documents?type=letters", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodGet, "/documents?type=covers", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, "/documents/resumes/"+created.Data.ID.String()+"/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=backend.txt", rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "Go and Postgres", rec.Body.String())

	rec = do(t, router, http.MethodGet, "/documents/resumes/not-a-uuid/export", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	other := newTestRouter(NewHandler(f.svc), uuid.New())
	rec = do(t, other, http.MethodGet, "/documents/resumes/"+created.Data.ID.String()+"/export", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_Unauthenticated(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc)
	req := httptest.NewRequest(http.MethodPost, "/generate/resume", strings.NewReader(`{"resume":"x"}`))
	req = req.WithContext(context.Background())
	rec := httptest.NewRecorder()
	h.GenerateResume(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// upload posts a multipart form with one file part and optional fields.
func upload(t *testing.T, h http.Handler, filename, contentType string, data []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if data != nil {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
		hdr.Set("Content-Type", contentType)
		part, err := mw.CreatePart(hdr)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/resumes/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandler_UploadResume(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	router := newTestRouter(NewHandler(f.svc), userID)

	rec := upload(t, router, "jane-doe.pdf", "application/pdf", onePagePDF("Jane Doe", "Senior Go Engineer"), nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body struct {
		Data UploadedResume `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "jane-doe", body.Data.Title)
	assert.Contains(t, body.Data.Text, "Senior Go Engineer")

	stored, err := f.svc.Get(context.Background(), userID, TypeResumes, body.Data.ID)
	require.NoError(t, err)
	assert.Contains(t, stored.Content, "Jane Doe")
	require.Len(t, f.repo.resumes, 1)
	assert.NotContains(t, f.repo.resumes[0].OriginalContent, "Jane Doe", "stored encrypted")
	assert.Empty(t, f.guard.charged, "uploads are not metered")

	rec = upload(t, router, "cv.pdf", "application/octet-stream", onePagePDF("x"), map[string]string{"title": "My CV"})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "My CV", body.Data.Title)
}

func TestHandler_UploadResumeRejections(t *testing.T) {
	cases := []struct {
		name        string
		contentType string
		data        []byte
		want        int
		wantError   string
	}{
		{"no file", "", nil, http.StatusBadRequest, "no file provided"},
		{"not a pdf", "text/plain", []byte("plain text resume"), http.StatusBadRequest, "only PDF files are supported"},
		{"no text", "application/pdf", onePagePDF(), http.StatusUnprocessableEntity, "could not extract text from PDF"},
		{"corrupt pdf", "application/pdf", []byte("%PDF-1.4\ntruncated"), http.StatusUnprocessableEntity, "could not read PDF"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			router := newTestRouter(NewHandler(f.svc), uuid.New())

			rec := upload(t, router, "resume.pdf", tc.contentType, tc.data, map[string]string{"title": "x"})
			require.Equal(t, tc.want, rec.Code, rec.Body.String())
			var body struct {
				Error string `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.wantError, body.Error)
			assert.Empty(t, f.repo.resumes)
		})
	}

	f := newFixture(t)
	rec := do(t, newTestRouter(NewHandler(f.svc), uuid.New()), http.MethodPost, "/resumes/upload", `{"content":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_GetDocument(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	router := newTestRouter(NewHandler(f.svc), userID)

	rec := do(t, router, http.MethodPost, "/resumes", `{"title":"Backend","content":"Go and Postgres"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Data Summary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = do(t, router, http.MethodGet, "/documents/resumes/"+created.Data.ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Data Document `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, created.Data.ID, got.Data.ID)
	assert.Equal(t, TypeResumes, got.Data.Type)
	assert.Equal(t, "Go and Postgres", got.Data.Content)
	assert.Equal(t, created.Data.CreatedAt, got.Data.CreatedAt)

	cases := []struct {
		name   string
		router http.Handler
		path   string
		want   int
	}{
		{"unknown type", router, "/documents/letters/" + created.Data.ID.String(), http.StatusBadRequest},
		{"wrong collection", router, "/documents/covers/" + created.Data.ID.String(), http.StatusNotFound},
		{"bad id", router, "/documents/resumes/not-a-uuid", http.StatusNotFound},
		{"other owner", newTestRouter(NewHandler(f.svc), uuid.New()), "/documents/resumes/" + created.Data.ID.String(), http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, tc.router, http.MethodGet, tc.path, "")
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}
