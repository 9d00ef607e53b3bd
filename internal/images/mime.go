package images

import (
	"fmt"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// extensionsByType lists the image types the bucket accepts.
var extensionsByType = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/gif":  "gif",
}

func allowedTypes() string {
	return "jpeg, png, webp, or gif"
}

func parseDeclaredType(value string) (string, error) {
	clean := strings.TrimSpace(value)
	if clean == "" {
		return "", nil
	}
	mediaType, _, err := mime.ParseMediaType(clean)
	if err != nil {
		return "", fmt.Errorf("content type invalid: %w", err)
	}
	return strings.ToLower(mediaType), nil
}

// detectType sniffs the payload; declared headers are not trusted on their own.
func detectType(data []byte) (string, string, bool) {
	detected := mimetype.Detect(data).String()
	mediaType, _, err := mime.ParseMediaType(detected)
	if err != nil {
		return detected, "", false
	}
	ext, ok := extensionsByType[mediaType]
	return mediaType, ext, ok
}
