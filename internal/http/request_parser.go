package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"spendlens/internal/services"
)

const (
	uploadField = "file"
	// multipartMemory is how much of a multipart body is held in memory
	// before parts spill to temporary files.
	multipartMemory = 8 << 20
)

// RequestError is a client mistake with the status and message to return.
type RequestError struct {
	Status int
	Detail string
	Err    error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return e.Detail + ": " + e.Err.Error()
	}
	return e.Detail
}

func (e *RequestError) Unwrap() error { return e.Err }

func badRequest(detail string, err error) *RequestError {
	return &RequestError{Status: http.StatusBadRequest, Detail: detail, Err: err}
}

// ParsePagination reads limit and offset from query. Missing values take the
// defaults. Values that are not integers are rejected; range clamping is left
// to services.ClampPage.
func ParsePagination(query url.Values) (limit, offset int, err error) {
	limit, offset = services.DefaultLimit, 0

	if v := strings.TrimSpace(query.Get("limit")); v != "" {
		if limit, err = strconv.Atoi(v); err != nil {
			return 0, 0, badRequest("limit must be an integer", err)
		}
	}
	if v := strings.TrimSpace(query.Get("offset")); v != "" {
		if offset, err = strconv.Atoi(v); err != nil {
			return 0, 0, badRequest("offset must be an integer", err)
		}
	}
	return limit, offset, nil
}

// readUpload reads the "file" part of a multipart request, enforcing the
// upload size cap.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request, endpoint string) (services.Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return services.Upload{}, uploadError(err, s.maxUploadBytes)
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return services.Upload{}, badRequest(fmt.Sprintf("missing %q file field", uploadField), err)
		}
		return services.Upload{}, badRequest("invalid upload", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return services.Upload{}, uploadError(err, s.maxUploadBytes)
	}

	return services.Upload{
		Filename: sanitizeFilename(header.Filename),
		Data:     data,
		Endpoint: endpoint,
	}, nil
}

func uploadError(err error, maxBytes int64) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
		return &RequestError{
			Status: http.StatusRequestEntityTooLarge,
			Detail: fmt.Sprintf("upload exceeds %d bytes", maxBytes),
			Err:    err,
		}
	}
	if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
		return badRequest("expected a multipart/form-data upload", err)
	}
	return badRequest("invalid upload", err)
}
