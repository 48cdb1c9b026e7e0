package codec

import (
	"fmt"
	"strings"
)

var mimeTypes = map[string]string{
	"bmp":  "image/bmp",
	"gif":  "image/gif",
	"hdr":  "image/vnd.radiance",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"psd":  "image/vnd.adobe.photoshop",
	"tga":  "image/x-tga",
}

var mimeAliases = map[string]string{
	"image/jpg":               "jpeg",
	"image/pjpeg":             "jpeg",
	"image/x-bmp":             "bmp",
	"image/x-ms-bmp":          "bmp",
	"image/tga":               "tga",
	"image/x-targa":           "tga",
	"application/x-photoshop": "psd",
}

// MIMEType returns the MIME type of a format name, or "" if unknown.
func MIMEType(format string) string {
	return mimeTypes[format]
}

// FormatForMIME returns the format name for a MIME type. Parameters such as
// "; charset=" are ignored.
func FormatForMIME(mime string) (string, error) {
	m, _, _ := strings.Cut(mime, ";")
	m = strings.ToLower(strings.TrimSpace(m))
	for name, t := range mimeTypes {
		if t == m {
			return name, nil
		}
	}
	if name, ok := mimeAliases[m]; ok {
		return name, nil
	}
	return "", fmt.Errorf("%w: mime type %q", ErrCodecNotFound, mime)
}
