package geo

import (
	"math"
	"testing"
)

func TestHomographyIdentity(t *testing.T) {
	// Identity homography maps the image center straight into tile pixels.
	h := [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}
	tile := TileCoord{Z: 15, X: 5242, Y: 12663}

	got := HomographyToGPS(h, tile, 128, 128)
	want := TilePixelToGPS(tile, Pixel{X: 128, Y: 128})
	if math.Abs(got.Lat-want.Lat) > 1e-12 || math.Abs(got.Lon-want.Lon) > 1e-12 {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestHomographyTranslation(t *testing.T) {
	// Pure translation by (10, -20) pixels.
	h := [9]float64{1, 0, 10, 0, 1, -20, 0, 0, 1}
	tile := TileCoord{Z: 17, X: 20969, Y: 50651}

	got := HomographyToGPS(h, tile, 100, 100)
	want := TilePixelToGPS(tile, Pixel{X: 110, Y: 80})
	if math.Abs(got.Lat-want.Lat) > 1e-12 || math.Abs(got.Lon-want.Lon) > 1e-12 {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestHomographyDegenerate(t *testing.T) {
	// Zero projective row: dw == 0 must yield the (0,0) no-fix sentinel.
	h := [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 0}
	tile := TileCoord{Z: 15, X: 5242, Y: 12663}

	got := HomographyToGPS(h, tile, 128, 128)
	if got.Lat != 0 || got.Lon != 0 {
		t.Fatalf("expected (0,0), got %+v", got)
	}
}
