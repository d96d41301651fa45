package changes

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ModifiedSuffix is appended to the stem of every artifact name.
const ModifiedSuffix = "_modified"

// maxStemLen caps the slugified stem in artifact names.
const maxStemLen = 50

// ArtifactName derives the download name for the revision-th apply of a
// document. The document id and revision make it unique; the stem keeps
// it recognizable. Example: ("3f2a", 2, "Q3 Report.docx") →
// "3f2a-r2-q3-report_modified.docx".
func ArtifactName(documentID string, revision int, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if !isSafeExt(ext) {
		ext = ""
	}
	return fmt.Sprintf("%s-r%d-%s%s%s", documentID, revision, slugify(stem), ModifiedSuffix, ext)
}

// DownloadFilename is the name offered to the client when it saves the
// artifact: the original stem plus the suffix.
func DownloadFilename(filename string) string {
	base := filepath.Base(filename)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + ModifiedSuffix + ext
}

// slugify converts a filename stem into a URL/filesystem-safe slug.
//
// Rules:
//   - Lowercase
//   - Spaces, dots and underscores become hyphens
//   - Other non-alphanumeric characters are removed
//   - Consecutive hyphens are collapsed
//   - Leading/trailing hyphens are trimmed
//   - Truncated to 50 characters (at a word boundary if possible)
//   - Empty input returns "document"
func slugify(stem string) string {
	s := strings.ToLower(strings.TrimSpace(stem))

	var b strings.Builder
	prevHyphen := false
	for _, r := range s {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			prevHyphen = false
		case r == ' ' || r == '_' || r == '-' || r == '.':
			if !prevHyphen {
				b.WriteByte('-')
				prevHyphen = true
			}
		}
	}

	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "document"
	}
	if len(slug) <= maxStemLen {
		return slug
	}

	truncated := slug[:maxStemLen]
	if lastHyphen := strings.LastIndex(truncated, "-"); lastHyphen > maxStemLen/2 {
		truncated = truncated[:lastHyphen]
	}
	return strings.TrimRight(truncated, "-")
}

func isSafeExt(ext string) bool {
	if len(ext) < 2 || len(ext) > 10 {
		return false
	}
	for _, r := range ext[1:] {
		if !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}
