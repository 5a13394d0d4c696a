/*
Package req binds HTTP request bodies (JSON and multipart forms) and turns
decoding failures into errs codes.
*/
package req

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"chatroom/internal/pkg/errs"
)

const (
	// MaxFormMemory is the in-memory budget for multipart parsing; larger parts spill to disk.
	MaxFormMemory int64 = 8 << 20

	// MaxRequestFileSize caps the whole multipart request body.
	MaxRequestFileSize int64 = 10 << 20

	// MaxJSONBodySize caps JSON request bodies.
	MaxJSONBodySize int64 = 64 << 10
)

// BindJSON decodes a single JSON document from the body into dst, rejecting
// unknown fields and trailing data.
func BindJSON(w http.ResponseWriter, r *http.Request, dst any) *errs.CustomError {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBodySize)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errs.NewError(errs.ErrRequestEntityTooLarge)
		}
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}

// SetupMultipart parses a multipart or URL-encoded form with the size limits above.
func SetupMultipart(w http.ResponseWriter, r *http.Request) *errs.CustomError {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestFileSize)

	if err := r.ParseMultipartForm(MaxFormMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errs.NewError(errs.ErrRequestEntityTooLarge)
		}
		return errs.NewError(errs.ErrFormParseFailed)
	}

	return nil
}

// FormFile is an uploaded file taken from a parsed multipart form.
type FormFile struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.ReadSeeker
	closer      io.Closer
}

// Close releases the underlying multipart file.
func (f *FormFile) Close() error {
	if f == nil || f.closer == nil {
		return nil
	}
	return f.closer.Close()
}

// OptionalFile returns the named file from a parsed multipart form, or nil
// when the field is absent or empty. Call SetupMultipart first.
func OptionalFile(r *http.Request, field string) (*FormFile, *errs.CustomError) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, errs.NewError(errs.ErrFormParseFailed)
	}

	if header.Size == 0 {
		_ = file.Close()
		return nil, nil
	}

	return &FormFile{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
		closer:      file,
	}, nil
}
