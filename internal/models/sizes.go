package models

// Sizes a product can be stocked in, in display order.
var Sizes = []string{"XS", "S", "M", "L", "XL", "XXL"}

var sizeRank = map[string]int{
	"XS":  1,
	"S":   2,
	"M":   3,
	"L":   4,
	"XL":  5,
	"XXL": 6,
}

func ValidSize(s string) bool {
	_, ok := sizeRank[s]
	return ok
}

// SizeRank orders sizes for display; unknown sizes sort last.
func SizeRank(s string) int {
	if r, ok := sizeRank[s]; ok {
		return r
	}
	return 99
}
