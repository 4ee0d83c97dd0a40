package extraction

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedType rejects files outside the allow-list.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrFileTooLarge rejects files above the configured size cap.
	ErrFileTooLarge = errors.New("file exceeds maximum upload size")
	// ErrEmptyFile rejects zero-byte files.
	ErrEmptyFile = errors.New("file is empty")
)

// DefaultMaxUploadBytes is the upload cap used when none is configured.
const DefaultMaxUploadBytes int64 = 10 * 1024 * 1024

// DefaultAllowedTypes lists the document and image types accepted for capture.
var DefaultAllowedTypes = []string{"application/pdf", "image/jpeg", "image/jpg", "image/png"}

// UploadPolicy gates files before any network call is made.
type UploadPolicy struct {
	AllowedTypes []string
	MaxBytes     int64
}

// DefaultUploadPolicy accepts PDF, JPEG and PNG up to 10 MB.
func DefaultUploadPolicy() UploadPolicy {
	return UploadPolicy{
		AllowedTypes: DefaultAllowedTypes,
		MaxBytes:     DefaultMaxUploadBytes,
	}
}

// File is a candidate upload.
type File struct {
	Name     string
	MimeType string
	Size     int64
	Content  io.ReadSeeker
}

// OpenFile opens a local file as an upload candidate. The caller closes the
// returned closer once the upload is done.
func OpenFile(path string) (*File, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open file %q: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("stat file %q: %w", path, err)
	}
	return &File{
		Name:    filepath.Base(path),
		Size:    info.Size(),
		Content: f,
	}, f, nil
}

// Validate checks size and type. A blank MimeType is sniffed from content
// and written back to f.
func (p UploadPolicy) Validate(f *File) error {
	if f == nil || f.Size == 0 {
		return ErrEmptyFile
	}
	if p.MaxBytes > 0 && f.Size > p.MaxBytes {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrFileTooLarge, f.Size, p.MaxBytes)
	}

	mimeType := normalizeMime(f.MimeType)
	if mimeType == "" {
		sniffed, err := sniff(f.Content)
		if err != nil {
			return err
		}
		mimeType = sniffed
	}

	for _, allowed := range p.AllowedTypes {
		if mimeType == normalizeMime(allowed) {
			f.MimeType = mimeType
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedType, mimeType)
}

func normalizeMime(s string) string {
	return strings.ToLower(strings.TrimSpace(strings.Split(s, ";")[0]))
}

func sniff(r io.ReadSeeker) (string, error) {
	if r == nil {
		return "", ErrEmptyFile
	}
	buf := make([]byte, 512)
	n, err := r.Read(buf)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read file for type detection: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("reset file read pointer: %w", err)
	}
	if n == 0 {
		return "", ErrEmptyFile
	}
	return normalizeMime(http.DetectContentType(buf[:n])), nil
}
