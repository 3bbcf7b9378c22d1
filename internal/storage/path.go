package storage

import "strings"

const separator = "/"

// NormalizeRemotePath turns raw into an object key prefix: no leading
// separator and exactly one trailing one. An empty or root path is the
// bucket root and normalizes to "".
func NormalizeRemotePath(raw string) string {
	p := strings.TrimLeft(toSlash(raw), separator)
	return withTrailingSeparator(p)
}

// NormalizeLocalPath places raw under baseDir with exactly one trailing
// separator. A path already under baseDir is left where it is, so the
// function is idempotent.
func NormalizeLocalPath(baseDir, raw string) string {
	base := strings.TrimRight(toSlash(baseDir), separator)
	p := toSlash(raw)

	if base != "" && (p == base || strings.HasPrefix(p, base+separator)) {
		return withTrailingSeparator(p)
	}

	p = strings.TrimLeft(p, separator)
	if p == "" {
		return base + separator
	}
	return withTrailingSeparator(base + separator + p)
}

func withTrailingSeparator(p string) string {
	p = strings.TrimRight(p, separator)
	if p == "" {
		return ""
	}
	return p + separator
}

func toSlash(p string) string {
	return strings.ReplaceAll(strings.TrimSpace(p), `\`, separator)
}
