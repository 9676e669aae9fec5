package api

import (
	"encoding/json"
	"mime"
	"net/http"
	"strconv"
)

type Response struct {
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type PaginatedResponse struct {
	Data       any   `json:"data"`
	TotalCount int64 `json:"total_count"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
}

// WriteJSON encodes body as-is, for responses that do not fit the Response envelope.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func JSON(w http.ResponseWriter, status int, data any) {
	WriteJSON(w, status, Response{Data: data})
}

func JSONMessage(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Response{Message: message})
}

func JSONPaginated(w http.ResponseWriter, status int, data any, totalCount int64, page, pageSize int) {
	WriteJSON(w, status, PaginatedResponse{
		Data:       data,
		TotalCount: totalCount,
		Page:       page,
		PageSize:   pageSize,
	})
}

// Attachment writes body as a file download named filename.
func Attachment(w http.ResponseWriter, filename, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func JSONErrorMessage(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Response{Error: message})
}
