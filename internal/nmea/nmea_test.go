package nmea

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"vps-onboard/internal/geo"
)

var testUTC = time.Date(2024, 6, 15, 12, 34, 56, 0, time.UTC)

// checkFraming validates "$...*HH\r\n" and the checksum, returning the body.
func checkFraming(t *testing.T, s string) string {
	t.Helper()
	if !strings.HasPrefix(s, "$") || !strings.HasSuffix(s, "\r\n") {
		t.Fatalf("bad framing: %q", s)
	}
	star := strings.LastIndexByte(s, '*')
	if star == -1 || len(s) != star+5 {
		t.Fatalf("bad checksum framing: %q", s)
	}
	body := s[1:star]
	want, err := strconv.ParseUint(s[star+1:star+3], 16, 8)
	if err != nil {
		t.Fatalf("bad checksum digits: %q", s)
	}
	var got byte
	for i := 0; i < len(body); i++ {
		got ^= body[i]
	}
	if got != byte(want) {
		t.Fatalf("checksum mismatch: computed %02X, sentence says %02X", got, want)
	}
	return body
}

func TestFormatGGAExactBytes(t *testing.T) {
	buf := make([]byte, MinBufLen)
	n := FormatGGA(buf, geo.GeoPoint{Lat: 37.5, Lon: -122.25}, 1, 1.2, 100.5, testUTC)
	if n == 0 {
		t.Fatalf("encode failed")
	}
	s := string(buf[:n])

	wantPrefix := "$GPGGA,123456.00,3730.00000,N,12215.00000,W,1,08,1.2,100.5,M,0.0,M,,*"
	if !strings.HasPrefix(s, wantPrefix) {
		t.Fatalf("got %q\nwant prefix %q", s, wantPrefix)
	}
	checkFraming(t, s)
}

func TestFormatGGASouthEast(t *testing.T) {
	buf := make([]byte, MinBufLen)
	n := FormatGGA(buf, geo.GeoPoint{Lat: -33.8688, Lon: 151.2093}, 2, 0.9, 12.0, testUTC)
	body := checkFraming(t, string(buf[:n]))

	fields := strings.Split(body, ",")
	if fields[3] != "S" || fields[5] != "E" {
		t.Fatalf("hemispheres %s %s", fields[3], fields[5])
	}
	if fields[2] != "3352.12800" {
		t.Fatalf("lat field %q", fields[2])
	}
	if fields[6] != "2" {
		t.Fatalf("fix quality %q", fields[6])
	}
}

func TestFormatRMC(t *testing.T) {
	buf := make([]byte, MinBufLen)
	n := FormatRMC(buf, geo.GeoPoint{Lat: 37.5, Lon: -122.25}, true, 19.4, 271.5, testUTC)
	body := checkFraming(t, string(buf[:n]))

	want := "GPRMC,123456.00,A,3730.00000,N,12215.00000,W,19.4,271.5,150624,,,A"
	if body != want {
		t.Fatalf("got %q\nwant %q", body, want)
	}
}

func TestFormatRMCVoid(t *testing.T) {
	buf := make([]byte, MinBufLen)
	n := FormatRMC(buf, geo.GeoPoint{}, false, 0, 0, testUTC)
	body := checkFraming(t, string(buf[:n]))

	fields := strings.Split(body, ",")
	if fields[2] != "V" {
		t.Fatalf("status %q, want V", fields[2])
	}
}

func TestShortBufferRejected(t *testing.T) {
	small := make([]byte, MinBufLen-1)
	if n := FormatGGA(small, geo.GeoPoint{}, 0, 0, 0, testUTC); n != 0 {
		t.Fatalf("FormatGGA wrote %d into short buffer", n)
	}
	if n := FormatRMC(small, geo.GeoPoint{}, false, 0, 0, testUTC); n != 0 {
		t.Fatalf("FormatRMC wrote %d into short buffer", n)
	}
}

func TestChecksum(t *testing.T) {
	// Leading $ is skipped, '*' terminates.
	if Checksum("$GPGGA,test*FF") != Checksum("GPGGA,test") {
		t.Fatalf("framing characters changed the checksum")
	}
	// XOR of a string with itself doubled is zero.
	if Checksum("AA") != 0 {
		t.Fatalf("expected zero checksum")
	}
}
