package storage

import "strings"

// ContentTypeNotFound is returned by ContentType for unknown extensions.
const ContentTypeNotFound = "content_type not found"

const defaultContentType = "application/octet-stream"

var contentTypes = map[string]string{
	"pdf":  "application/pdf",
	"bmp":  "image/bmp",
	"png":  "image/png",
	"jpeg": "image/jpeg",
	"jpg":  "image/jpeg",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"text": "text/plain",
}

// ContentType maps a file extension, with or without its leading dot, to a
// MIME type. Unknown extensions yield ContentTypeNotFound.
func ContentType(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	return ContentTypeNotFound
}

// uploadContentType is ContentType with a generic fallback, for backends
// that need a real value on put.
func uploadContentType(ext string) string {
	if ct := ContentType(ext); ct != ContentTypeNotFound {
		return ct
	}
	return defaultContentType
}

// fileExtension returns the part of name after its last dot, or name itself
// when it has no dot.
func fileExtension(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}

func downloadFilename(name string) string {
	return "documentfile." + fileExtension(name)
}
