package domain

// Region partitions requesters; each region owns an independent slot quota.
type Region int

const (
	Region1 Region = 1
	Region2 Region = 2
)

// Regions lists every known region.
func Regions() []Region {
	return []Region{Region1, Region2}
}

// Valid reports whether the region is a known partition.
func (r Region) Valid() bool {
	switch r {
	case Region1, Region2:
		return true
	default:
		return false
	}
}
