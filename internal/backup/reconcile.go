package backup

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/scrypster/waymark/pkg/types"
)

// transientURIMarker flags picker-granted URIs whose permission does not
// survive a restore even on the same device.
const transientURIMarker = "photopicker"

// reconcileMedia re-links restored media rows to local files. A row needs
// re-linking when it was recorded by a different installation or when its
// URI is a transient picker grant. Candidates come from the media index,
// pre-filtered by exact file size so signatures are only computed for
// plausible matches.
func (s *Service) reconcileMedia(ctx context.Context) (relinked, unresolved int, err error) {
	store := s.handle.Store()
	if store == nil {
		return 0, 0, fmt.Errorf("backup: storage is closed")
	}

	assets, err := store.ListAllMedia(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("backup: failed to list media: %w", err)
	}

	var stale []int
	sizes := make([]int64, 0, len(assets))
	for i, a := range assets {
		if a.DeviceID == s.config.DeviceID && !strings.Contains(a.URI, transientURIMarker) {
			continue
		}
		stale = append(stale, i)
		if a.FileSize > 0 {
			sizes = append(sizes, a.FileSize)
		}
	}
	if len(stale) == 0 {
		return 0, 0, nil
	}

	bySignature := map[string]string{}
	if s.index != nil {
		for _, c := range s.index.QueryBySizes(sizes) {
			if _, dup := bySignature[c.Signature]; !dup {
				bySignature[c.Signature] = c.URI
			}
		}
	}

	var updated []int
	for _, i := range stale {
		a := &assets[i]
		uri, ok := bySignature[a.Signature]
		if !ok || a.Signature == "" {
			unresolved++
			continue
		}
		a.URI = uri
		a.DeviceID = s.config.DeviceID
		updated = append(updated, i)
	}

	if len(updated) > 0 {
		batch := make([]types.MediaAsset, 0, len(updated))
		for _, i := range updated {
			batch = append(batch, assets[i])
		}
		if err := store.UpdateMediaAssets(ctx, batch); err != nil {
			return 0, unresolved, fmt.Errorf("backup: failed to update media rows: %w", err)
		}
		relinked = len(batch)
	}

	if unresolved > 0 {
		log.Printf("backup: %d media assets could not be matched to local files", unresolved)
	}
	return relinked, unresolved, nil
}
