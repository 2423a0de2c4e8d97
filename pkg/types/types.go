// Package types defines the core data structures for the Waymark memory map:
// memory records pinned to locations, the media assets attached to them, and
// the color utilities used when rendering records as map markers.
package types

// MediaKind distinguishes the two supported media asset kinds.
type MediaKind string

const (
	// MediaImage is a photo asset.
	MediaImage MediaKind = "image"

	// MediaVideo is a video asset.
	MediaVideo MediaKind = "video"
)

// ValidMediaKinds lists all valid media kinds for validation.
var ValidMediaKinds = []MediaKind{MediaImage, MediaVideo}

// IsValidMediaKind checks if the given media kind is valid.
func IsValidMediaKind(kind MediaKind) bool {
	for _, valid := range ValidMediaKinds {
		if kind == valid {
			return true
		}
	}
	return false
}
