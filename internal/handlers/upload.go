package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"hiddengems-web/internal/api"
)

const maxUploadBytes = 20 << 20 // 20MB

var (
	errInvalidBody         = errors.New("Invalid request body")
	errInvalidUpload       = errors.New("Invalid upload or file too large (20MB limit)")
	errInvalidPrice        = errors.New("Price must be a number")
	errInvalidAvailability = errors.New("Availability must be true or false")
)

func isMultipart(r *http.Request) bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return strings.HasPrefix(mediaType, "multipart/")
}

// parseUpload reads a multipart body, capped at maxUploadBytes.
func parseUpload(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	return r.ParseMultipartForm(maxUploadBytes)
}

// formFiles loads every file sent under field into memory so it can be
// forwarded to the backend as-is.
func formFiles(r *http.Request, field string) ([]*api.File, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}

	var files []*api.File
	for _, fh := range r.MultipartForm.File[field] {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", fh.Filename, err)
		}
		if len(data) == 0 {
			continue
		}

		contentType := fh.Header.Get("Content-Type")
		if contentType == "" || contentType == "application/octet-stream" {
			contentType = http.DetectContentType(data)
		}
		files = append(files, &api.File{Name: fh.Filename, ContentType: contentType, Data: data})
	}
	return files, nil
}

func formFile(r *http.Request, field string) (*api.File, error) {
	files, err := formFiles(r, field)
	if err != nil || len(files) == 0 {
		return nil, err
	}
	return files[0], nil
}
