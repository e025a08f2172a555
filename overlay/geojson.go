package overlay

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/peterstace/simplefeatures/geom"

	"github.com/echoflaresat/natalglobe/geo"
)

// arcSegments is how finely arcs are densified along the great circle.
const arcSegments = 32

// ExportGeoJSON renders the catalog as a GeoJSON FeatureCollection: points
// as Point features, arcs as great-circle LineStrings. Arcs crossing the
// antimeridian are cut there and exported as MultiLineStrings. Feature ids
// are the catalog positions ("point/0", "arc/2").
func ExportGeoJSON(c *Catalog) ([]byte, error) {
	fc := make(geom.GeoJSONFeatureCollection, 0, len(c.Points)+len(c.Arcs))

	for i := range c.Points {
		p := &c.Points[i]
		pt, err := geom.NewPoint(geom.Coordinates{
			XY:   geom.XY{X: p.Lng, Y: p.Lat},
			Type: geom.DimXY,
		})
		if err != nil {
			return nil, fmt.Errorf("point %d: %w", i, err)
		}
		fc = append(fc, geom.GeoJSONFeature{
			Geometry: pt.AsGeometry(),
			ID:       featureID("point", i),
			Properties: map[string]interface{}{
				"kind":      "point",
				"name":      p.Name,
				"category":  string(p.Category),
				"color":     PointStyleFor(p).Color.Hex(),
				"tags":      p.Details.Tags,
				"notes":     p.Details.Notes,
				"narrative": p.Details.Narrative,
			},
		})
	}

	for i := range c.Arcs {
		a := &c.Arcs[i]
		style := ArcStyleFor(a)

		g, err := arcGeometry(a)
		if err != nil {
			return nil, fmt.Errorf("arc %d: %w", i, err)
		}

		fc = append(fc, geom.GeoJSONFeature{
			Geometry: g,
			ID:       featureID("arc", i),
			Properties: map[string]interface{}{
				"kind":      "arc",
				"label":     a.Label,
				"weight":    string(a.Weight),
				"color":     style.Color.Hex(),
				"alpha":     style.Color.A,
				"narrative": a.Narrative,
			},
		})
	}

	return json.Marshal(fc)
}

// arcGeometry densifies a along its great circle and returns it as lng/lat
// geometry, split wherever it crosses the antimeridian.
func arcGeometry(a *GeoArc) (geom.Geometry, error) {
	path := geo.GreatCircle(a.Start(), a.End(), 0, arcSegments)
	lngLat := make([][2]float64, 0, len(path))
	for _, v := range path {
		lat, lng, _ := geo.FromCartesian(v)
		lngLat = append(lngLat, [2]float64{lng, lat})
	}

	parts := splitAntimeridian(lngLat)
	lines := make([]geom.LineString, 0, len(parts))
	for _, part := range parts {
		if degenerate(part) {
			continue
		}
		coords := make([]float64, 0, 2*len(part))
		for _, c := range part {
			coords = append(coords, c[0], c[1])
		}
		ls, err := geom.NewLineString(geom.NewSequence(coords, geom.DimXY))
		if err != nil {
			return geom.Geometry{}, err
		}
		lines = append(lines, ls)
	}
	switch len(lines) {
	case 0:
		// Start and end coincide.
		pt, err := geom.NewPoint(geom.Coordinates{
			XY:   geom.XY{X: lngLat[0][0], Y: lngLat[0][1]},
			Type: geom.DimXY,
		})
		return pt.AsGeometry(), err
	case 1:
		return lines[0].AsGeometry(), nil
	}
	return geom.NewMultiLineString(lines).AsGeometry(), nil
}

// splitAntimeridian cuts a lng/lat polyline wherever consecutive vertices are
// more than 180 degrees of longitude apart. The part before a cut ends on the
// meridian and the part after starts on it, with the opposite sign.
func splitAntimeridian(pts [][2]float64) [][][2]float64 {
	var parts [][][2]float64
	cur := make([][2]float64, 0, len(pts))
	for i, p := range pts {
		if i > 0 {
			prev := pts[i-1]
			if d := p[0] - prev[0]; math.Abs(d) > 180 {
				edge := 180.0
				if d > 0 {
					// Moving west across the meridian: -180 side first.
					edge = -180
				}
				next := p[0] + 2*edge
				f := (edge - prev[0]) / (next - prev[0])
				lat := prev[1] + f*(p[1]-prev[1])
				cur = append(cur, [2]float64{edge, lat})
				parts = append(parts, cur)
				cur = [][2]float64{{-edge, lat}}
			}
		}
		cur = append(cur, p)
	}
	return append(parts, cur)
}

// degenerate reports whether part has fewer than two distinct vertices.
func degenerate(part [][2]float64) bool {
	for _, p := range part[1:] {
		if p != part[0] {
			return false
		}
	}
	return true
}

func featureID(kind string, i int) string {
	return kind + "/" + strconv.Itoa(i)
}
