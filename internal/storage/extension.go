package storage

import (
	"path/filepath"
	"strings"
)

// AllowList is the set of file extensions accepted for upload. Entries keep
// their leading dot (".png") and are matched case-sensitively.
type AllowList map[string]struct{}

// NewAllowList builds an AllowList, adding the leading dot where an entry
// lacks one.
func NewAllowList(extensions []string) AllowList {
	allow := make(AllowList, len(extensions))
	for _, ext := range extensions {
		ext = strings.TrimSpace(ext)
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allow[ext] = struct{}{}
	}
	return allow
}

// Allows reports whether ext is allow-listed.
func (a AllowList) Allows(ext string) bool {
	_, ok := a[ext]
	return ok
}

// payloadExtension derives the extension from the payload's original name.
func payloadExtension(p *Payload) string {
	if p == nil {
		return ""
	}
	return filepath.Ext(p.Name)
}

// checkUpload runs the pre-flight checks shared by every Upload.
func checkUpload(allow AllowList, p *Payload) (string, *Result) {
	if p == nil || p.Reader == nil {
		res := failed(ErrMissingPayload, nil)
		return "", &res
	}
	ext := payloadExtension(p)
	if !allow.Allows(ext) {
		res := failed(ErrUnsupportedFormat, nil)
		return "", &res
	}
	return ext, nil
}
