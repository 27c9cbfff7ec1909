// Package frame derives video identity from keyframe paths.
package frame

import (
	"path"
	"regexp"
	"strings"
)

// videoIDPattern matches identifiers like L21_V001 or K03_V010.
var videoIDPattern = regexp.MustCompile(`[A-Z]+\d+_V\d+`)

// VideoID extracts the video identifier from a frame path.
// Backslashes are treated as separators. Returns false when no identifier is present.
func VideoID(p string) (string, bool) {
	id := videoIDPattern.FindString(strings.ReplaceAll(p, `\`, "/"))
	return id, id != ""
}

// Level returns the collection level of a video: the part before the first underscore.
func Level(videoID string) string {
	level, _, _ := strings.Cut(videoID, "_")
	return level
}

// Dir returns the frame-store directory of a video relative to the keyframe root.
func Dir(videoID string) string {
	return path.Join(Level(videoID), videoID)
}
