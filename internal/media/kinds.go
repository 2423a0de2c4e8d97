package media

import (
	"path/filepath"
	"strings"

	"github.com/scrypster/waymark/pkg/types"
)

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".webp": true, ".heic": true, ".heif": true, ".bmp": true,
}

var videoExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".mkv": true, ".webm": true,
	".avi": true, ".3gp": true, ".m4v": true,
}

// KindForPath classifies a file path as image or video by extension.
// The second return value is false for non-media files.
func KindForPath(path string) (types.MediaKind, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if imageExtensions[ext] {
		return types.MediaImage, true
	}
	if videoExtensions[ext] {
		return types.MediaVideo, true
	}
	return "", false
}
