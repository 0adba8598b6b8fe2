package domain

// Region is a JMA forecast office code selecting which prefecture's feed to read.
type Region string

const (
	RegionIshikawa Region = "170000"
	RegionToyama   Region = "160000"
	RegionFukui    Region = "180000"
	RegionNiigata  Region = "150000"
)

// DefaultRegion is shown until the user picks a base region.
const DefaultRegion = RegionIshikawa

var regionNames = map[Region]string{
	RegionIshikawa: "石川県",
	RegionToyama:   "富山県",
	RegionFukui:    "福井県",
	RegionNiigata:  "新潟県",
}

// Regions lists the supported base regions in display order.
func Regions() []Region {
	return []Region{RegionIshikawa, RegionToyama, RegionFukui, RegionNiigata}
}

// Valid reports whether r is one of the supported base regions.
func (r Region) Valid() bool {
	_, ok := regionNames[r]
	return ok
}

// Name returns the prefecture name, or "" for unsupported codes.
func (r Region) Name() string {
	return regionNames[r]
}
