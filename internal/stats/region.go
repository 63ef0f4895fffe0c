package stats

// Region is the map area a country chart is drawn for.
type Region string

const (
	RegionWorld        Region = "world"
	RegionUSA          Region = "usa"
	RegionAsia         Region = "asia"
	RegionEurope       Region = "europe"
	RegionAfrica       Region = "africa"
	RegionMiddleEast   Region = "middle_east"
	RegionSouthAmerica Region = "south_america"
)

// Regions lists every supported region.
var Regions = []Region{
	RegionWorld, RegionUSA, RegionAsia, RegionEurope, RegionAfrica, RegionMiddleEast, RegionSouthAmerica,
}

// ParseRegion returns the region named by hint, or RegionWorld when hint is not a known region.
func ParseRegion(hint string) Region {
	for _, r := range Regions {
		if string(r) == hint {
			return r
		}
	}

	return RegionWorld
}
