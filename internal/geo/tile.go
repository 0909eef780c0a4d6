package geo

import "math"

// GPSToTile returns the slippy-map tile containing point at the given zoom.
// Results are clamped into [0, 2^zoom-1]; inputs above MaxMercatorLat are
// undefined but never panic.
func GPSToTile(point GeoPoint, zoom int) TileCoord {
	n := math.Pow(2, float64(zoom))
	latRad := point.Lat * math.Pi / 180.0

	t := TileCoord{Z: zoom}
	t.X = int((point.Lon + 180.0) / 360.0 * n)
	t.Y = int((1.0 - math.Log(math.Tan(latRad)+1.0/math.Cos(latRad))/math.Pi) / 2.0 * n)

	maxTile := int(n) - 1
	if t.X < 0 {
		t.X = 0
	}
	if t.X > maxTile {
		t.X = maxTile
	}
	if t.Y < 0 {
		t.Y = 0
	}
	if t.Y > maxTile {
		t.Y = maxTile
	}
	return t
}

// TileCenter returns the GPS coordinate of the tile's center pixel (128,128).
func TileCenter(tile TileCoord) GeoPoint {
	n := math.Pow(2, float64(tile.Z))
	lon := (float64(tile.X)+0.5)/n*360.0 - 180.0
	latRad := math.Atan(math.Sinh(math.Pi * (1.0 - 2.0*(float64(tile.Y)+0.5)/n)))
	return GeoPoint{Lat: latRad * 180.0 / math.Pi, Lon: lon}
}

// TilePixelToGPS converts a pixel position within a tile to GPS.
func TilePixelToGPS(tile TileCoord, pixel Pixel) GeoPoint {
	n := math.Pow(2, float64(tile.Z))
	globalX := float64(tile.X) + pixel.X/TileSize
	globalY := float64(tile.Y) + pixel.Y/TileSize

	var p GeoPoint
	p.Lon = globalX/n*360.0 - 180.0
	p.Lat = math.Atan(math.Sinh(math.Pi*(1.0-2.0*globalY/n))) * 180.0 / math.Pi
	return p
}

// GPSToTilePixel returns the tile containing point and the pixel position
// within it.
func GPSToTilePixel(point GeoPoint, zoom int) (TileCoord, Pixel) {
	n := math.Pow(2, float64(zoom))
	latRad := point.Lat * math.Pi / 180.0

	xGlobal := (point.Lon + 180.0) / 360.0 * n
	yGlobal := (1.0 - math.Log(math.Tan(latRad)+1.0/math.Cos(latRad))/math.Pi) / 2.0 * n

	tile := TileCoord{Z: zoom, X: int(xGlobal), Y: int(yGlobal)}
	pixel := Pixel{
		X: (xGlobal - float64(tile.X)) * TileSize,
		Y: (yGlobal - float64(tile.Y)) * TileSize,
	}
	return tile, pixel
}

// TilesInRadius enumerates the tiles covering a bounding box around center
// with the given radius, row-major from the NW corner, truncated at cap.
func TilesInRadius(center GeoPoint, radiusKm float64, zoom, cap int) []TileCoord {
	if cap <= 0 {
		return nil
	}
	// Coarse degree approximations are fine for a bounding box.
	dlat := radiusKm / 111.32
	dlon := radiusKm / (111.32 * math.Cos(center.Lat*math.Pi/180.0))

	nw := GeoPoint{Lat: center.Lat + dlat, Lon: center.Lon - dlon}
	se := GeoPoint{Lat: center.Lat - dlat, Lon: center.Lon + dlon}

	tNW := GPSToTile(nw, zoom)
	tSE := GPSToTile(se, zoom)

	var out []TileCoord
	for x := tNW.X; x <= tSE.X && len(out) < cap; x++ {
		for y := tNW.Y; y <= tSE.Y && len(out) < cap; y++ {
			out = append(out, TileCoord{Z: zoom, X: x, Y: y})
		}
	}
	return out
}
