package geo

import "math"

// SpotIndex is a coarse spatial grid for proximity lookups over small point
// sets. Cells are one degree on each side; lookups scan the cell and its
// neighbors, so radii up to roughly 100km are exact.
type SpotIndex struct {
	grid map[int][]indexed
}

type indexed struct {
	id string
	p  Point
}

// NewSpotIndex creates an empty index.
func NewSpotIndex() *SpotIndex {
	return &SpotIndex{grid: make(map[int][]indexed)}
}

// Add inserts a point under the given id.
func (s *SpotIndex) Add(id string, p Point) {
	key := gridKey(p.Lat, p.Lon)
	s.grid[key] = append(s.grid[key], indexed{id: id, p: p})
}

// Nearby returns the ids of all points within radius meters of p.
func (s *SpotIndex) Nearby(p Point, radius float64) []string {
	originLat := int(math.Floor(p.Lat))
	originLon := int(math.Floor(p.Lon))

	var ids []string
	for dLat := -1; dLat <= 1; dLat++ {
		for dLon := -1; dLon <= 1; dLon++ {
			key := makeKey(originLat+dLat, originLon+dLon)
			for _, entry := range s.grid[key] {
				if Distance(p, entry.p) <= radius {
					ids = append(ids, entry.id)
				}
			}
		}
	}
	return ids
}

// HasNearby reports whether any point lies within radius meters of p.
func (s *SpotIndex) HasNearby(p Point, radius float64) bool {
	return len(s.Nearby(p, radius)) > 0
}

func gridKey(lat, lon float64) int {
	return makeKey(int(math.Floor(lat)), int(math.Floor(lon)))
}

func makeKey(lat, lon int) int {
	// Offset both axes to be positive, then combine.
	// Key = (Lat+90) * 360 + (Lon+180)
	return (lat+90)*360 + (lon + 180)
}
