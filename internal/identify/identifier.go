package identify

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
)

// Image is one photo to identify
type Image struct {
	Name     string // file name or caller-chosen label
	Data     []byte
	MIMEType string // detected from Data when empty
}

// ContentType returns MIMEType or sniffs it from the data
func (i Image) ContentType() string {
	if i.MIMEType != "" {
		return i.MIMEType
	}
	return http.DetectContentType(i.Data)
}

// ReadImage loads an image file from disk
func ReadImage(path string) (Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Image{}, err
	}
	return Image{Name: filepath.Base(path), Data: data}, nil
}

// Identifier sends one image and prompt to a vision model and returns the
// raw reply text.
type Identifier interface {
	Identify(ctx context.Context, img Image, prompt Prompt) (string, error)
}

// IdentifierFunc adapts a function to Identifier
type IdentifierFunc func(ctx context.Context, img Image, prompt Prompt) (string, error)

// Identify calls f
func (f IdentifierFunc) Identify(ctx context.Context, img Image, prompt Prompt) (string, error) {
	return f(ctx, img, prompt)
}
