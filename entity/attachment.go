package entity

import (
	"errors"
	"fmt"
	"io"
	"time"
)

// MaxFileSize is the maximum allowed attachment size (10 MB).
const MaxFileSize = 10 << 20

// ErrFileTooLarge is returned when an attachment exceeds MaxFileSize.
var ErrFileTooLarge = errors.New("file too large")

// FileTooLargeError wraps ErrFileTooLarge with details about the offending file.
func FileTooLargeError(filename string, size int64) error {
	return fmt.Errorf("%w: %q is %d bytes, limit is %d MB", ErrFileTooLarge, filename, size, MaxFileSize>>20)
}

// ApiFile is a file attached to a message on the backend.
type ApiFile struct {
	ID         int64     `json:"id"`
	File       string    `json:"file"`
	Filename   string    `json:"filename"`
	FileSize   int64     `json:"file_size"`
	MIMEType   string    `json:"mime_type"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Upload is a file to be sent along with a message.
type Upload struct {
	Filename string
	Size     int64
	Content  io.Reader
}

func (u Upload) Check() error {
	if u.Size > MaxFileSize {
		return FileTooLargeError(u.Filename, u.Size)
	}
	return nil
}
