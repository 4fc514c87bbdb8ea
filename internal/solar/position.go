package solar

import (
	"math"
	"time"
)

const (
	unixEpochJD = 2440587.5
	j2000JD     = 2451545.0
)

func rad(deg float64) float64 { return deg * math.Pi / 180 }
func deg(rad float64) float64 { return rad * 180 / math.Pi }

// norm360 wraps an angle into [0, 360).
func norm360(a float64) float64 {
	a = math.Mod(a, 360)
	if a < 0 {
		a += 360
	}
	return a
}

// norm180 wraps an angle into [-180, 180).
func norm180(a float64) float64 {
	return norm360(a+180) - 180
}

// Elevation returns the sun's elevation above the horizon in degrees for an
// observer at lat, lon (degrees, east positive) at time t.
func Elevation(lat, lon float64, t time.Time) float64 {
	t = t.UTC()
	jd := float64(t.UnixNano())/float64(24*time.Hour) + unixEpochJD
	n := jd - j2000JD

	meanLon := norm360(280.460 + 0.9856474*n)
	meanAnomaly := rad(norm360(357.528 + 0.9856003*n))
	eclipticLon := rad(meanLon + 1.915*math.Sin(meanAnomaly) + 0.020*math.Sin(2*meanAnomaly))
	obliquity := rad(23.439 - 0.0000004*n)

	declination := math.Asin(math.Sin(obliquity) * math.Sin(eclipticLon))
	rightAscension := deg(math.Atan2(math.Cos(obliquity)*math.Sin(eclipticLon), math.Cos(eclipticLon)))

	// Equation of time in minutes.
	eot := 4 * norm180(meanLon-rightAscension)

	utcMinutes := float64(t.Hour()*60+t.Minute()) + float64(t.Second())/60
	solarMinutes := utcMinutes + 4*lon + eot
	hourAngle := rad(solarMinutes/4 - 180)

	latR := rad(lat)
	sinEl := math.Sin(latR)*math.Sin(declination) + math.Cos(latR)*math.Cos(declination)*math.Cos(hourAngle)
	return deg(math.Asin(math.Max(-1, math.Min(1, sinEl))))
}
