package weather

import (
	"sort"
	"time"
)

// Point is a single sub-daily reading as delivered by providers whose
// forecast feeds are hourly or 3-hourly. Optional fields follow the same
// nil-means-unreported convention as Observation.
type Point struct {
	Timestamp time.Time

	TempC         *float64
	RainMM        *float64
	HumidityPct   *float64
	WindKPH       *float64
	PressureHPa   *float64
	CloudCoverPct *float64
}

// BucketDaily groups sub-daily points by their local calendar date in tz and
// aggregates each group into one Observation: min/max/mean temperature,
// summed rainfall, mean humidity, max wind. Output is ordered by date.
func BucketDaily(farmID, source string, points []Point, tz *time.Location) []Observation {
	if tz == nil {
		tz = time.UTC
	}

	byDay := make(map[string][]Point)
	for _, p := range points {
		k := p.Timestamp.In(tz).Format("2006-01-02")
		byDay[k] = append(byDay[k], p)
	}

	keys := make([]string, 0, len(byDay))
	for k := range byDay {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Observation, 0, len(keys))
	for _, k := range keys {
		day, err := time.Parse("2006-01-02", k)
		if err != nil {
			continue
		}
		out = append(out, aggregateDay(farmID, source, day, byDay[k]))
	}
	return out
}

func aggregateDay(farmID, source string, day time.Time, points []Point) Observation {
	obs := Observation{
		FarmID: farmID,
		Date:   DayOf(day),
		Source: source,
	}

	var (
		tempMin, tempMax *float64
		tempSum, tempN   float64
		rainSum          float64
		rainSeen         bool
		humSum, humN     float64
		windMax          *float64
		pressSum, pressN float64
		cloudSum, cloudN float64
	)

	for _, p := range points {
		if p.TempC != nil {
			t := *p.TempC
			if tempMin == nil || t < *tempMin {
				tempMin = Float(t)
			}
			if tempMax == nil || t > *tempMax {
				tempMax = Float(t)
			}
			tempSum += t
			tempN++
		}
		if p.RainMM != nil {
			rainSum += *p.RainMM
			rainSeen = true
		}
		if p.HumidityPct != nil {
			humSum += *p.HumidityPct
			humN++
		}
		if p.WindKPH != nil {
			if windMax == nil || *p.WindKPH > *windMax {
				windMax = Float(*p.WindKPH)
			}
		}
		if p.PressureHPa != nil {
			pressSum += *p.PressureHPa
			pressN++
		}
		if p.CloudCoverPct != nil {
			cloudSum += *p.CloudCoverPct
			cloudN++
		}
	}

	obs.TempMinC = tempMin
	obs.TempMaxC = tempMax
	if tempN > 0 {
		obs.TempAvgC = Float(tempSum / tempN)
	}
	if rainSeen {
		obs.RainfallMM = Float(rainSum)
	}
	if humN > 0 {
		obs.HumidityPct = Float(humSum / humN)
	}
	obs.WindKPH = windMax
	if pressN > 0 {
		obs.PressureHPa = Float(pressSum / pressN)
	}
	if cloudN > 0 {
		obs.CloudCoverPct = Float(cloudSum / cloudN)
	}
	return obs
}
