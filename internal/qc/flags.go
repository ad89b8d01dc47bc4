// Package qc aggregates quality-control flags for one partition of a
// distributed observation dataset: it detects missing data at construction,
// marks forward-model failures after evaluation, and produces a
// cross-partition summary report whose category counts are guaranteed to sum
// to the global observation count.
package qc

// QC flag codes. Pass means the observation is usable; every other code names
// the reason it is not. The numeric values are a wire contract with upstream
// QC steps that pre-set flags, so they are fixed, not iota-assigned.
const (
	FlagPass    = 0
	FlagMissing = 10
	FlagPreQC   = 11
	FlagBounds  = 12
	FlagDomain  = 13
	FlagBlack   = 14
	FlagHfailed = 15
	FlagThinned = 16
	FlagFguess  = 19

	// Two raw codes produced by the GNSS radio-occultation reality check.
	// They are distinct on the wire but collapse into one reporting bucket.
	FlagGNSSReality  = 76
	FlagGNSSReality2 = 77
)

// Category is a reporting bucket for flag codes. Every code maps to exactly
// one category; codes this package does not know map to CategoryOther so that
// category counts always sum to the observation total.
type Category int

// Reporting categories, in report order.
const (
	CategoryPass Category = iota
	CategoryMissing
	CategoryPreQC
	CategoryBounds
	CategoryDomain
	CategoryBlack
	CategoryHfailed
	CategoryThinned
	CategoryFguess
	CategoryGNSSReality
	CategoryOther

	numCategories
)

// categoryName is the stable identifier used as a JSON key and metric label.
var categoryName = [numCategories]string{
	CategoryPass:        "pass",
	CategoryMissing:     "missing",
	CategoryPreQC:       "preQC",
	CategoryBounds:      "bounds",
	CategoryDomain:      "domain",
	CategoryBlack:       "black",
	CategoryHfailed:     "Hfailed",
	CategoryThinned:     "thinned",
	CategoryFguess:      "fguess",
	CategoryGNSSReality: "gnssReality",
	CategoryOther:       "other",
}

// categoryDescription is the human-readable phrase used in report lines,
// e.g. "QC Radiosonde airTemperature: 12 missing values."
var categoryDescription = [numCategories]string{
	CategoryPass:        "passed",
	CategoryMissing:     "missing values",
	CategoryPreQC:       "rejected by pre QC",
	CategoryBounds:      "out of bounds",
	CategoryDomain:      "out of domain of use",
	CategoryBlack:       "black-listed",
	CategoryHfailed:     "H(x) failed",
	CategoryThinned:     "removed by thinning",
	CategoryFguess:      "rejected by first-guess check",
	CategoryGNSSReality: "rejected by GNSSRO reality check",
	CategoryOther:       "rejected for other reasons",
}

// String returns the category's stable name.
func (c Category) String() string {
	if c < 0 || c >= numCategories {
		return "unknown"
	}
	return categoryName[c]
}

// Description returns the report phrase for the category.
func (c Category) Description() string {
	if c < 0 || c >= numCategories {
		return "unknown"
	}
	return categoryDescription[c]
}

// Categorize maps a flag code to its reporting bucket. Unrecognized codes
// land in CategoryOther rather than being dropped, which keeps the
// conservation invariant (sum of buckets == total) immune to new codes
// introduced upstream.
func Categorize(code int) Category {
	switch code {
	case FlagPass:
		return CategoryPass
	case FlagMissing:
		return CategoryMissing
	case FlagPreQC:
		return CategoryPreQC
	case FlagBounds:
		return CategoryBounds
	case FlagDomain:
		return CategoryDomain
	case FlagBlack:
		return CategoryBlack
	case FlagHfailed:
		return CategoryHfailed
	case FlagThinned:
		return CategoryThinned
	case FlagFguess:
		return CategoryFguess
	case FlagGNSSReality, FlagGNSSReality2:
		return CategoryGNSSReality
	default:
		return CategoryOther
	}
}

// Categories lists every reporting bucket in report order.
func Categories() []Category {
	cats := make([]Category, numCategories)
	for i := range cats {
		cats[i] = Category(i)
	}
	return cats
}
