package weather

import "fmt"

// wmoDescriptions maps WMO weather interpretation codes, as returned by
// Open-Meteo, to short human-readable descriptions.
var wmoDescriptions = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Fog",
	48: "Depositing rime fog",
	51: "Light drizzle",
	53: "Moderate drizzle",
	55: "Dense drizzle",
	61: "Slight rain",
	63: "Moderate rain",
	65: "Heavy rain",
	71: "Slight snow",
	73: "Moderate snow",
	75: "Heavy snow",
	80: "Slight rain showers",
	81: "Moderate rain showers",
	82: "Violent rain showers",
	95: "Thunderstorm",
	96: "Thunderstorm with slight hail",
	99: "Thunderstorm with heavy hail",
}

// DescribeCode translates a WMO weather code into a description.
func DescribeCode(code int) string {
	if description, ok := wmoDescriptions[code]; ok {
		return description
	}
	return fmt.Sprintf("Weather code: %d", code)
}
