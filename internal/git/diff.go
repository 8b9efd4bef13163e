package git

import "strings"

// FileDiff is the part of a unified diff that touches one file.
type FileDiff struct {
	Path string
	Text string
}

const fileHeader = "diff --git "

// SplitDiff cuts a `git diff` output into one FileDiff per file, in order.
// Anything before the first file header is ignored.
func SplitDiff(diff string) []FileDiff {
	var files []FileDiff
	var cur *strings.Builder
	var path string
	inHeader := false

	flush := func() {
		if cur != nil {
			files = append(files, FileDiff{Path: path, Text: strings.TrimRight(cur.String(), "\n")})
		}
	}

	for _, line := range strings.SplitAfter(diff, "\n") {
		trimmed := strings.TrimRight(line, "\r\n")
		switch {
		case strings.HasPrefix(trimmed, fileHeader):
			flush()
			cur = &strings.Builder{}
			path = headerPath(trimmed)
			inHeader = true
		case cur == nil:
			continue
		case !inHeader:
			// Hunk body: content lines never change the path.
		case strings.HasPrefix(trimmed, "@@"):
			inHeader = false
		case strings.HasPrefix(trimmed, "+++ b/"):
			path = strings.TrimPrefix(trimmed, "+++ b/")
		case strings.HasPrefix(trimmed, "rename to "):
			path = strings.TrimPrefix(trimmed, "rename to ")
		}
		cur.WriteString(line)
	}
	flush()
	return files
}

// headerPath pulls the destination path out of "diff --git a/<old> b/<new>".
func headerPath(header string) string {
	rest := strings.TrimPrefix(header, fileHeader)
	if i := strings.LastIndex(rest, " b/"); i >= 0 {
		return rest[i+len(" b/"):]
	}
	return rest
}
