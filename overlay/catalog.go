package overlay

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/echoflaresat/natalglobe/colors"
)

// ErrInvalidCatalog wraps every validation failure.
var ErrInvalidCatalog = errors.New("invalid catalog")

//go:embed default_catalog.yaml
var defaultCatalog []byte

type catalogFile struct {
	Points []pointFile `yaml:"points"`
	Arcs   []arcFile   `yaml:"arcs"`
}

type pointFile struct {
	Name     string  `yaml:"name"`
	Lat      float64 `yaml:"lat"`
	Lng      float64 `yaml:"lng"`
	Category string  `yaml:"category"`
	Details  struct {
		Tags      []string `yaml:"tags"`
		Notes     []string `yaml:"notes"`
		Narrative string   `yaml:"narrative"`
	} `yaml:"details"`
}

type arcFile struct {
	StartLat      float64  `yaml:"startLat"`
	StartLng      float64  `yaml:"startLng"`
	EndLat        float64  `yaml:"endLat"`
	EndLng        float64  `yaml:"endLng"`
	Weight        string   `yaml:"weight"`
	BaseColor     string   `yaml:"baseColor"`
	GradientStart string   `yaml:"gradientStart"`
	GradientEnd   string   `yaml:"gradientEnd"`
	Label         string   `yaml:"label"`
	Narrative     string   `yaml:"narrative"`
	Intensity     *float64 `yaml:"intensity"`
}

// DefaultCatalog returns the catalog embedded in the binary.
func DefaultCatalog() *Catalog {
	c, err := LoadCatalog(bytes.NewReader(defaultCatalog))
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}

// LoadCatalogFile reads a YAML catalog from path.
func LoadCatalogFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c, err := LoadCatalog(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// LoadCatalog decodes and validates a YAML catalog. All records are checked
// here so that style mapping never has to.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var raw catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	c := &Catalog{
		Points: make([]GeoPoint, 0, len(raw.Points)),
		Arcs:   make([]GeoArc, 0, len(raw.Arcs)),
	}
	var errs []error
	for i, p := range raw.Points {
		gp, err := p.toPoint()
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: points[%d]: %v", ErrInvalidCatalog, i, err))
			continue
		}
		c.Points = append(c.Points, gp)
	}
	for i, a := range raw.Arcs {
		ga, err := a.toArc()
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: arcs[%d]: %v", ErrInvalidCatalog, i, err))
			continue
		}
		c.Arcs = append(c.Arcs, ga)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return c, nil
}

func (p pointFile) toPoint() (GeoPoint, error) {
	if err := checkLatLng(p.Lat, p.Lng); err != nil {
		return GeoPoint{}, err
	}
	if strings.TrimSpace(p.Name) == "" {
		return GeoPoint{}, errors.New("name is required")
	}
	return GeoPoint{
		Lat:      p.Lat,
		Lng:      p.Lng,
		Name:     p.Name,
		Category: Category(strings.ToLower(strings.TrimSpace(p.Category))),
		Details: Details{
			Tags:      p.Details.Tags,
			Notes:     p.Details.Notes,
			Narrative: p.Details.Narrative,
		},
	}, nil
}

func (a arcFile) toArc() (GeoArc, error) {
	if err := checkLatLng(a.StartLat, a.StartLng); err != nil {
		return GeoArc{}, fmt.Errorf("start: %w", err)
	}
	if err := checkLatLng(a.EndLat, a.EndLng); err != nil {
		return GeoArc{}, fmt.Errorf("end: %w", err)
	}
	if a.Intensity != nil && (math.IsNaN(*a.Intensity) || *a.Intensity < 0 || *a.Intensity > 1) {
		return GeoArc{}, fmt.Errorf("intensity %v outside [0,1]", *a.Intensity)
	}

	arc := GeoArc{
		StartLat:  a.StartLat,
		StartLng:  a.StartLng,
		EndLat:    a.EndLat,
		EndLng:    a.EndLng,
		Weight:    Weight(strings.ToLower(strings.TrimSpace(a.Weight))),
		Label:     a.Label,
		Narrative: a.Narrative,
		Intensity: a.Intensity,
	}

	var err error
	if arc.BaseColor, err = colorOrWhite(a.BaseColor); err != nil {
		return GeoArc{}, fmt.Errorf("baseColor: %w", err)
	}
	if a.GradientStart != "" && a.GradientEnd != "" {
		if arc.GradientStart, err = colors.ParseHex(a.GradientStart); err != nil {
			return GeoArc{}, fmt.Errorf("gradientStart: %w", err)
		}
		if arc.GradientEnd, err = colors.ParseHex(a.GradientEnd); err != nil {
			return GeoArc{}, fmt.Errorf("gradientEnd: %w", err)
		}
		arc.HasGradient = true
	}
	return arc, nil
}

func colorOrWhite(hex string) (colors.Color4, error) {
	if hex == "" {
		return colors.White(), nil
	}
	return colors.ParseHex(hex)
}

func checkLatLng(lat, lng float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return fmt.Errorf("lat %v outside [-90,90]", lat)
	}
	if math.IsNaN(lng) || lng < -180 || lng > 180 {
		return fmt.Errorf("lng %v outside [-180,180]", lng)
	}
	return nil
}

// Validate re-checks a catalog assembled in code rather than loaded from YAML.
func (c *Catalog) Validate() error {
	var errs []error
	for i := range c.Points {
		p := &c.Points[i]
		if err := checkLatLng(p.Lat, p.Lng); err != nil {
			errs = append(errs, fmt.Errorf("%w: points[%d]: %v", ErrInvalidCatalog, i, err))
		}
	}
	for i := range c.Arcs {
		a := &c.Arcs[i]
		if err := checkLatLng(a.StartLat, a.StartLng); err != nil {
			errs = append(errs, fmt.Errorf("%w: arcs[%d]: start: %v", ErrInvalidCatalog, i, err))
		}
		if err := checkLatLng(a.EndLat, a.EndLng); err != nil {
			errs = append(errs, fmt.Errorf("%w: arcs[%d]: end: %v", ErrInvalidCatalog, i, err))
		}
		if a.Intensity != nil && (math.IsNaN(*a.Intensity) || *a.Intensity < 0 || *a.Intensity > 1) {
			errs = append(errs, fmt.Errorf("%w: arcs[%d]: intensity %v outside [0,1]", ErrInvalidCatalog, i, *a.Intensity))
		}
	}
	return errors.Join(errs...)
}
