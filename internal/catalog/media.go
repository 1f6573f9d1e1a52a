package catalog

import (
	"encoding/base64"
	"fmt"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/agenthands/shelfcheck/internal/core/model"
)

var imageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// IsImageKey reports whether key has one of the accepted image extensions.
func IsImageKey(key string) bool {
	if strings.HasSuffix(key, "/") {
		return false
	}
	_, ok := imageTypes[strings.ToLower(path.Ext(key))]
	return ok
}

// MediaTypeForKey infers the media type from the key's extension, falling back to image/jpeg.
func MediaTypeForKey(key string) string {
	if t, ok := imageTypes[strings.ToLower(path.Ext(key))]; ok {
		return t
	}
	return model.DefaultMediaType
}

// DecodeInline decodes an inline image, optionally given as a data URL.
// The media type comes from the data URL, then from the bytes, then defaults to image/jpeg.
func DecodeInline(s string) (model.Image, error) {
	s = strings.TrimSpace(s)
	var hint string
	if strings.HasPrefix(s, "data:") {
		// data:<mime>;base64,<payload>
		if idx := strings.IndexByte(s, ','); idx > 0 {
			meta := s[len("data:"):idx]
			if semi := strings.IndexByte(meta, ';'); semi >= 0 {
				hint = meta[:semi]
			} else {
				hint = meta
			}
			s = s[idx+1:]
		}
	}
	if s == "" {
		return model.Image{}, fmt.Errorf("inline image is empty")
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		var urlErr error
		if data, urlErr = base64.URLEncoding.DecodeString(s); urlErr != nil {
			return model.Image{}, fmt.Errorf("inline image is not valid base64: %w", err)
		}
	}

	return model.Image{Key: model.InlineImageKey, MediaType: pickMediaType(hint, data), Data: data}, nil
}

func pickMediaType(hint string, data []byte) string {
	if h := strings.ToLower(strings.TrimSpace(hint)); isSupported(h) {
		return h
	}
	if len(data) > 0 {
		if t := mimetype.Detect(data).String(); isSupported(t) {
			return t
		}
	}
	return model.DefaultMediaType
}

func isSupported(mediaType string) bool {
	for _, t := range imageTypes {
		if t == mediaType {
			return true
		}
	}
	return false
}
