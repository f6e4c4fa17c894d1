package service

import "strings"

type mimeClass int

const (
	classUnsupported mimeClass = iota
	classImage
	classPDF
	classStructured
)

// allowedMimeTypes is the explicit upload allow-list; anything else is
// rejected before a document is created.
var allowedMimeTypes = map[string]mimeClass{
	"image/jpeg":      classImage,
	"image/png":       classImage,
	"image/webp":      classImage,
	"application/pdf": classPDF,
	"text/csv":        classStructured,
	"application/vnd.ms-excel": classStructured,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": classStructured,
	"application/msword": classStructured,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": classStructured,
}

func classifyMime(mimeType string) mimeClass {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if c, ok := allowedMimeTypes[mt]; ok {
		return c
	}
	return classUnsupported
}

// MimeAllowed reports whether the upload mime type is accepted.
func MimeAllowed(mimeType string) bool {
	return classifyMime(mimeType) != classUnsupported
}
