package sim

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"vps-onboard/internal/geo"
)

// Scenario is a script-driven flight description for replaying specific
// situations (outages, geofence approaches) deterministically.
//
// Time is expressed as Go duration strings. Position is interpolated
// linearly between keyframes; a keyframe with dropout: true suppresses
// fixes until the next keyframe.
//
// YAML schema (v1):
//
//	version: 1
//	keyframes:
//	  - t: 0s
//	    lat_deg: 37.0
//	    lon_deg: -122.0
//	    hdop: 1.0
//	  - t: 10s
//	    lat_deg: 37.001
//	    lon_deg: -122.0
//	    hdop: 1.5
//	    dropout: true
//
// Keep this struct stable: scripts are test fixtures.
type Scenario struct {
	Version   int        `yaml:"version"`
	Keyframes []Keyframe `yaml:"keyframes"`
}

type Keyframe struct {
	T       time.Duration `yaml:"t"`
	LatDeg  float64       `yaml:"lat_deg"`
	LonDeg  float64       `yaml:"lon_deg"`
	HDOP    float64       `yaml:"hdop"`
	Dropout bool          `yaml:"dropout"`
}

// LoadScenario reads and validates a scenario script.
func LoadScenario(path string) (*Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sc Scenario
	if err := yaml.Unmarshal(b, &sc); err != nil {
		return nil, err
	}
	if sc.Version != 1 {
		return nil, fmt.Errorf("scenario: unsupported version %d", sc.Version)
	}
	if len(sc.Keyframes) == 0 {
		return nil, fmt.Errorf("scenario: no keyframes")
	}
	if !sort.SliceIsSorted(sc.Keyframes, func(i, j int) bool {
		return sc.Keyframes[i].T < sc.Keyframes[j].T
	}) {
		return nil, fmt.Errorf("scenario: keyframes must be sorted by t")
	}
	for i := range sc.Keyframes {
		if sc.Keyframes[i].HDOP <= 0 {
			sc.Keyframes[i].HDOP = 1.0
		}
	}
	return &sc, nil
}

// Duration returns the time of the last keyframe.
func (sc *Scenario) Duration() time.Duration {
	return sc.Keyframes[len(sc.Keyframes)-1].T
}

// Fix evaluates the script at time t (seconds from scenario start). It
// returns nil during dropout spans and outside the scripted window.
func (sc *Scenario) Fix(t float64) (*geo.GeoPoint, float64) {
	if len(sc.Keyframes) == 0 {
		return nil, 0
	}
	first := sc.Keyframes[0]
	last := sc.Keyframes[len(sc.Keyframes)-1]
	if t < first.T.Seconds() || t > last.T.Seconds() {
		return nil, 0
	}

	// Find the keyframe pair bracketing t.
	i := sort.Search(len(sc.Keyframes), func(i int) bool {
		return sc.Keyframes[i].T.Seconds() > t
	})
	if i == 0 {
		p := geo.GeoPoint{Lat: first.LatDeg, Lon: first.LonDeg}
		if first.Dropout {
			return nil, 0
		}
		return &p, first.HDOP
	}
	if i == len(sc.Keyframes) {
		p := geo.GeoPoint{Lat: last.LatDeg, Lon: last.LonDeg}
		if last.Dropout {
			return nil, 0
		}
		return &p, last.HDOP
	}

	a, b := sc.Keyframes[i-1], sc.Keyframes[i]
	if a.Dropout {
		return nil, 0
	}

	span := b.T.Seconds() - a.T.Seconds()
	frac := 0.0
	if span > 0 {
		frac = (t - a.T.Seconds()) / span
	}
	p := geo.GeoPoint{
		Lat: a.LatDeg + (b.LatDeg-a.LatDeg)*frac,
		Lon: a.LonDeg + (b.LonDeg-a.LonDeg)*frac,
	}
	return &p, a.HDOP + (b.HDOP-a.HDOP)*frac
}
