package location

import "strconv"

// ID identifies a sensing location.
type ID int

// String returns the decimal form of the ID.
func (id ID) String() string {
	return strconv.Itoa(int(id))
}
