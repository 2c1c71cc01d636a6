package generator

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"slideshow-server/core"
	"strings"
)

const defaultMimeType = "image/jpeg"

var mimePattern = regexp.MustCompile(`^data:([a-zA-Z0-9]+/[a-zA-Z0-9.+-]+)[^,]*,`)

// MimeType returns the media type declared by a data URL, or image/jpeg when there is none.
func MimeType(imageData string) string {
	if m := mimePattern.FindStringSubmatch(imageData); m != nil {
		return m[1]
	}
	return defaultMimeType
}

// StripPrefix drops everything up to the first comma of a data URL. Other input is
// returned unchanged.
func StripPrefix(imageData string) string {
	if i := strings.IndexByte(imageData, ','); i >= 0 {
		return imageData[i+1:]
	}
	return imageData
}

// decodeImage returns the media type and raw bytes of a base64 data URL.
func decodeImage(imageData string) (string, []byte, error) {
	if !strings.HasPrefix(imageData, "data:") {
		return "", nil, fmt.Errorf("%w: image is not inline data", core.ErrGeneration)
	}
	data, err := base64.StdEncoding.DecodeString(StripPrefix(imageData))
	if err != nil {
		return "", nil, fmt.Errorf("%w: invalid base64 image: %v", core.ErrGeneration, err)
	}
	return MimeType(imageData), data, nil
}
