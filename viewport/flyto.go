package viewport

import (
	"time"

	"github.com/echoflaresat/natalglobe/geo"
	"github.com/echoflaresat/natalglobe/render"
)

// flight is an in-progress camera transition. Only lat/lng are animated;
// the altitude is read from the live point of view each frame.
type flight struct {
	fromLat, fromLng float64
	toLat, toLng     float64
	start            time.Time
	duration         time.Duration
}

func newFlight(from render.PointOfView, lat, lng float64, start time.Time, d time.Duration) *flight {
	// Travel the short way around the antimeridian.
	dLng := geo.NormalizeLng(lng - from.Lng)
	return &flight{
		fromLat:  from.Lat,
		fromLng:  from.Lng,
		toLat:    lat,
		toLng:    from.Lng + dLng,
		start:    start,
		duration: d,
	}
}

// at returns the camera position at now and whether the flight is over.
func (f *flight) at(now time.Time, altitude float64) (render.PointOfView, bool) {
	p := 1.0
	if f.duration > 0 {
		p = float64(now.Sub(f.start)) / float64(f.duration)
	}
	if p >= 1 {
		return render.PointOfView{Lat: f.toLat, Lng: geo.NormalizeLng(f.toLng), Altitude: altitude}, true
	}
	if p < 0 {
		p = 0
	}
	e := easeInOutQuad(p)
	return render.PointOfView{
		Lat:      f.fromLat + (f.toLat-f.fromLat)*e,
		Lng:      geo.NormalizeLng(f.fromLng + (f.toLng-f.fromLng)*e),
		Altitude: altitude,
	}, false
}

func easeInOutQuad(t float64) float64 {
	if t < 0.5 {
		return 2 * t * t
	}
	return 1 - 2*(1-t)*(1-t)
}
