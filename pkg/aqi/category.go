package aqi

// Category describes one EPA AQI band. Slug is the short, lowercase,
// underscore-joined form persisted to storage.
type Category struct {
	Level               int    `json:"level"`
	Name                string `json:"name"`
	Slug                string `json:"slug"`
	ColorHex            string `json:"color_hex"`
	CautionaryStatement string `json:"cautionary_statement"`
}

var categories = []struct {
	maxAQI   int
	category Category
}{
	{50, Category{
		Level:               1,
		Name:                "Good",
		Slug:                "good",
		ColorHex:            "#00e400",
		CautionaryStatement: "Air quality is satisfactory, and air pollution poses little or no risk.",
	}},
	{100, Category{
		Level:               2,
		Name:                "Moderate",
		Slug:                "moderate",
		ColorHex:            "#ffff00",
		CautionaryStatement: "Unusually sensitive people should consider reducing prolonged or heavy exertion outdoors.",
	}},
	{150, Category{
		Level:               3,
		Name:                "Unhealthy for Sensitive Groups",
		Slug:                "unhealthy_sensitive",
		ColorHex:            "#ff7e00",
		CautionaryStatement: "Members of sensitive groups may experience health effects; reduce prolonged outdoor exertion.",
	}},
	{200, Category{
		Level:               4,
		Name:                "Unhealthy",
		Slug:                "unhealthy",
		ColorHex:            "#ff0000",
		CautionaryStatement: "Everyone may begin to experience health effects; sensitive groups should avoid outdoor exertion.",
	}},
	{300, Category{
		Level:               5,
		Name:                "Very Unhealthy",
		Slug:                "very_unhealthy",
		ColorHex:            "#8f3f97",
		CautionaryStatement: "Health alert: everyone may experience more serious health effects. Stay indoors if possible.",
	}},
}

var hazardous = Category{
	Level:               6,
	Name:                "Hazardous",
	Slug:                "hazardous",
	ColorHex:            "#7e0023",
	CautionaryStatement: "Health warning of emergency conditions: the entire population is likely to be affected.",
}

// CategoryFromAQI returns the EPA category band for an index value.
// Thresholds are inclusive upper bounds; anything above 300 is Hazardous.
func CategoryFromAQI(index int) Category {
	for _, band := range categories {
		if index <= band.maxAQI {
			return band.category
		}
	}
	return hazardous
}
