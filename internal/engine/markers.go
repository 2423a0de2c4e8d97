package engine

import (
	"context"
	"image"
	"image/color"
	"sort"

	"github.com/scrypster/waymark/internal/cluster"
	"github.com/scrypster/waymark/internal/marker"
	"github.com/scrypster/waymark/pkg/types"
)

// Marker is one renderable map pin: either a single memory or a proximity
// cluster of several.
type Marker struct {
	// Latitude and Longitude anchor the pin at the member centroid.
	Latitude  float64
	Longitude float64

	// Members are the records grouped under this pin, in storage order.
	Members []types.MemoryRecord

	// Colors are the members' marker colors sorted by their packed RGB
	// value, so the same cluster always renders its wedges in the same
	// order no matter how the query returned its rows.
	Colors []color.RGBA
}

// Count returns the number of memories under the pin.
func (m *Marker) Count() int { return len(m.Members) }

// Image rasterizes the pin at the given display density. Single memories get
// a plain solid pin; clusters get the wedge glyph with a member count.
func (m *Marker) Image(density float64) *image.RGBA {
	if len(m.Members) == 1 {
		return marker.RenderPin(m.Colors[0], density)
	}
	return marker.Render(m.Colors, m.Count(), density)
}

// Markers loads all memories, filters them to the date range (a zero range
// keeps everything) and groups the remainder into proximity clusters.
func (e *MapEngine) Markers(ctx context.Context, dateRange cluster.DateRange) ([]Marker, error) {
	store, err := e.store()
	if err != nil {
		return nil, err
	}
	records, err := store.ListMemories(ctx)
	if err != nil {
		return nil, err
	}

	records = cluster.FilterOverlapping(records, dateRange)
	groups := cluster.Cluster(records)

	markers := make([]Marker, 0, len(groups))
	for _, group := range groups {
		markers = append(markers, buildMarker(group))
	}
	return markers, nil
}

func buildMarker(group []types.MemoryRecord) Marker {
	var latSum, lngSum float64
	colors := make([]color.RGBA, 0, len(group))
	for _, rec := range group {
		latSum += rec.Latitude
		lngSum += rec.Longitude
		colors = append(colors, types.HueToRGBA(rec.MarkerHue))
	}
	sort.Slice(colors, func(i, j int) bool {
		return types.SortableColorKey(colors[i]) < types.SortableColorKey(colors[j])
	})

	n := float64(len(group))
	return Marker{
		Latitude:  latSum / n,
		Longitude: lngSum / n,
		Members:   group,
		Colors:    colors,
	}
}
