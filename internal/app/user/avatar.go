package user

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"chatroom/internal/pkg/errs"
)

const (
	// MaxAvatarSizeMB is the maximum allowed profile picture size in megabytes.
	MaxAvatarSizeMB = 5

	// MaxAvatarSize is the maximum allowed profile picture size in bytes.
	MaxAvatarSize = MaxAvatarSizeMB * 1024 * 1024

	sniffLen = 512
)

// AllowedMIMETypes defines the set of permitted MIME types for profile pictures.
var AllowedMIMETypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/gif":  {},
}

// ExtToMIME maps file extensions to their corresponding MIME types.
var ExtToMIME = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// AvatarUpload is a profile picture submitted at sign-up.
type AvatarUpload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.ReadSeeker
}

// Ext returns the lowercased file extension, including the dot.
func (a *AvatarUpload) Ext() string {
	return strings.ToLower(filepath.Ext(a.FileName))
}

// Validate checks size, declared type and extension, then sniffs the first
// bytes of Body so a renamed non-image is rejected. Body is rewound afterwards.
func (a *AvatarUpload) Validate() *errs.CustomError {
	if cerr := ValidateFileSize(a.Size); cerr != nil {
		return cerr
	}

	contentType := a.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = ExtToMIME[a.Ext()]
	}
	if cerr := ValidateFileType(a.FileName, contentType); cerr != nil {
		return cerr
	}

	if a.Body == nil {
		return errs.NewError(errs.ErrInvalidParams)
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(a.Body, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return errs.NewError(errs.ErrFormParseFailed)
	}
	if _, err := a.Body.Seek(0, io.SeekStart); err != nil {
		return errs.NewError(errs.ErrFormParseFailed)
	}

	if http.DetectContentType(head[:n]) != strings.ToLower(contentType) {
		return errs.NewError(errs.ErrFileTypeInvalid)
	}

	a.ContentType = strings.ToLower(contentType)
	return nil
}

// ValidateFileSize checks if the provided file size is within acceptable limits.
func ValidateFileSize(fileSize int64) *errs.CustomError {
	if fileSize <= 0 {
		return errs.NewError(errs.ErrInvalidParams)
	}

	if fileSize > MaxAvatarSize {
		return errs.NewError(errs.ErrFileSizeTooLarge, MaxAvatarSizeMB)
	}

	return nil
}

// ValidateFileType checks if the provided file name and MIME type are allowed.
func ValidateFileType(fileName string, mimeType string) *errs.CustomError {
	lowerMimeType := strings.ToLower(mimeType)

	if _, ok := AllowedMIMETypes[lowerMimeType]; !ok {
		return errs.NewError(errs.ErrFileTypeInvalid)
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	expectedMIME, ok := ExtToMIME[ext]
	if !ok || expectedMIME != lowerMimeType {
		return errs.NewError(errs.ErrFileTypeInvalid)
	}

	return nil
}
