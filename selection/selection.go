// Package selection tracks which overlay records the user has opened.
//
// A point and an arc can be selected at the same time; the two slots never
// affect each other and are only cleared by an explicit dismiss.
package selection

import (
	"fmt"
	"strings"

	"github.com/echoflaresat/natalglobe/overlay"
)

// State holds at most one selected point and at most one selected arc.
// The zero value has nothing selected.
type State struct {
	point *overlay.GeoPoint
	arc   *overlay.GeoArc
}

// SelectPoint replaces the point slot. The arc slot is untouched.
func (s *State) SelectPoint(p *overlay.GeoPoint) {
	s.point = p
}

// SelectArc replaces the arc slot. The point slot is untouched.
func (s *State) SelectArc(a *overlay.GeoArc) {
	s.arc = a
}

// DismissPoint clears the point slot only.
func (s *State) DismissPoint() {
	s.point = nil
}

// DismissArc clears the arc slot only.
func (s *State) DismissArc() {
	s.arc = nil
}

func (s *State) Point() *overlay.GeoPoint { return s.point }

func (s *State) Arc() *overlay.GeoArc { return s.arc }

// Panel is a read-only detail view of a selected record.
type Panel struct {
	Title    string
	Subtitle string
	Tags     []string
	Lines    []string
	Body     string
}

// Text renders the panel as plain lines, title first.
func (p Panel) Text() string {
	var b strings.Builder
	b.WriteString(p.Title)
	if p.Subtitle != "" {
		fmt.Fprintf(&b, "\n%s", p.Subtitle)
	}
	if len(p.Tags) > 0 {
		fmt.Fprintf(&b, "\n[%s]", strings.Join(p.Tags, "] ["))
	}
	for _, l := range p.Lines {
		fmt.Fprintf(&b, "\n- %s", l)
	}
	if p.Body != "" {
		fmt.Fprintf(&b, "\n%s", p.Body)
	}
	return b.String()
}

// PointPanel builds the detail view for the selected point, if any.
func (s *State) PointPanel() (Panel, bool) {
	p := s.point
	if p == nil {
		return Panel{}, false
	}
	return Panel{
		Title:    p.Name,
		Subtitle: fmt.Sprintf("%s · %.2f, %.2f", p.Category, p.Lat, p.Lng),
		Tags:     p.Details.Tags,
		Lines:    p.Details.Notes,
		Body:     p.Details.Narrative,
	}, true
}

// ArcPanel builds the detail view for the selected arc, if any.
func (s *State) ArcPanel() (Panel, bool) {
	a := s.arc
	if a == nil {
		return Panel{}, false
	}
	return Panel{
		Title:    a.Label,
		Subtitle: fmt.Sprintf("%s · %.2f, %.2f → %.2f, %.2f", a.Weight, a.StartLat, a.StartLng, a.EndLat, a.EndLng),
		Body:     a.Narrative,
	}, true
}
