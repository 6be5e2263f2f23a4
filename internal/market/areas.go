// Package market builds per-area property snapshots: it searches the
// Idealista API around configured centroids, compares asking prices to a
// benchmark workbook, and uploads one XLSX per area to OneDrive.
package market

import (
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Area is one named search centroid.
type Area struct {
	Name   string
	Center string // "lat,lng", as the search API expects it
}

// LoadAreas reads the area file, a YAML map of area name to "lat,lng"
// centroid. Areas come back sorted by name so runs are deterministic.
func LoadAreas(path string) ([]Area, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "market: read areas file %s", path)
	}

	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrapf(err, "market: parse areas file %s", path)
	}
	if len(raw) == 0 {
		return nil, eris.Errorf("market: areas file %s is empty", path)
	}

	areas := make([]Area, 0, len(raw))
	for name, center := range raw {
		if err := validateCenter(center); err != nil {
			return nil, eris.Wrapf(err, "market: area %q", name)
		}
		areas = append(areas, Area{Name: name, Center: center})
	}
	sort.Slice(areas, func(i, j int) bool { return areas[i].Name < areas[j].Name })
	return areas, nil
}

func validateCenter(center string) error {
	parts := strings.Split(center, ",")
	if len(parts) != 2 {
		return eris.Errorf("center %q is not \"lat,lng\"", center)
	}
	for _, p := range parts {
		if _, err := strconv.ParseFloat(strings.TrimSpace(p), 64); err != nil {
			return eris.Errorf("center %q has a non-numeric coordinate", center)
		}
	}
	return nil
}
