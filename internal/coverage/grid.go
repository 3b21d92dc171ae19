package coverage

import "math"

// MaxGridCells caps the number of candidate centers one scan may visit.
const MaxGridCells = 50_000_000

func validateStep(step float64) error {
	if math.IsNaN(step) || math.IsInf(step, 0) || step <= 0 {
		return invalidf("coverage: step must be a positive number of degrees (got %v)", step)
	}
	return nil
}

// Generate scans the boundary's bounding box row by row (latitude outer,
// longitude inner) in step-degree increments over [min, max) and keeps the
// candidates strictly inside the boundary. The returned order is the
// tie-break order for every ranking built on the grid.
func Generate(boundary Boundary, step float64) ([]GeoPoint, error) {
	if err := validateStep(step); err != nil {
		return nil, err
	}
	if boundary == nil {
		return nil, invalidf("coverage: boundary is nil")
	}

	bb := boundary.Bounds()
	if bb.Degenerate() {
		return nil, nil
	}

	rows, cols, err := gridShape(
		math.Ceil((bb.MaxLat-bb.MinLat)/step),
		math.Ceil((bb.MaxLon-bb.MinLon)/step),
		step)
	if err != nil {
		return nil, err
	}

	var grid []GeoPoint
	for r := 0; r < rows; r++ {
		lat := bb.MinLat + float64(r)*step
		if lat >= bb.MaxLat {
			break
		}
		for c := 0; c < cols; c++ {
			lon := bb.MinLon + float64(c)*step
			if lon >= bb.MaxLon {
				break
			}
			p := GeoPoint{Lon: lon, Lat: lat}
			if boundary.Contains(p) {
				grid = append(grid, p)
			}
		}
	}
	return grid, nil
}

// GenerateBox scans a plain rectangle with both ends inclusive and no polygon
// filter, in the same row-major order as Generate.
func GenerateBox(box BBox, step float64) ([]GeoPoint, error) {
	if err := validateStep(step); err != nil {
		return nil, err
	}
	if err := box.Validate(); err != nil {
		return nil, err
	}

	rows, cols, err := gridShape(
		math.Floor((box.MaxLat-box.MinLat)/step+1e-6)+1,
		math.Floor((box.MaxLon-box.MinLon)/step+1e-6)+1,
		step)
	if err != nil {
		return nil, err
	}

	grid := make([]GeoPoint, 0, rows*cols)
	for r := 0; r < rows; r++ {
		lat := box.MinLat + float64(r)*step
		for c := 0; c < cols; c++ {
			grid = append(grid, GeoPoint{Lon: box.MinLon + float64(c)*step, Lat: lat})
		}
	}
	return grid, nil
}

// gridShape converts float row and column counts to ints, rejecting shapes
// whose cell count exceeds MaxGridCells before anything is allocated.
func gridShape(rows, cols, step float64) (int, int, error) {
	if math.IsNaN(rows) || math.IsNaN(cols) || rows < 0 || cols < 0 {
		return 0, 0, invalidf("coverage: step %v gives an invalid grid shape", step)
	}
	if rows > MaxGridCells || cols > MaxGridCells || rows*cols > MaxGridCells {
		return 0, 0, invalidf("coverage: step %v gives %.3g x %.3g cells, more than %d", step, rows, cols, MaxGridCells)
	}
	return int(rows), int(cols), nil
}
