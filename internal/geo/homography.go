package geo

import "math"

// HomographyToGPS projects the image point (cx,cy) through the row-major
// 3x3 homography h into the tile's pixel space and converts to GPS.
//
// A near-zero projective scale returns (0,0), which downstream consumers
// treat as "no fix".
func HomographyToGPS(h [9]float64, tile TileCoord, cx, cy float64) GeoPoint {
	dx := h[0]*cx + h[1]*cy + h[2]
	dy := h[3]*cx + h[4]*cy + h[5]
	dw := h[6]*cx + h[7]*cy + h[8]

	if math.Abs(dw) < 1e-10 {
		return GeoPoint{}
	}
	return TilePixelToGPS(tile, Pixel{X: dx / dw, Y: dy / dw})
}
