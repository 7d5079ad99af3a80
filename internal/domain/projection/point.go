package projection

// Point is a 2D coordinate of one document.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Clone returns a copy of points.
func Clone(points []Point) []Point {
	if points == nil {
		return nil
	}
	out := make([]Point, len(points))
	copy(out, points)
	return out
}
