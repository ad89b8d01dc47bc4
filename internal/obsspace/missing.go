package obsspace

// Missing-value sentinels. The magnitudes follow the IODA convention so that
// fixtures produced by upstream tooling round-trip without translation.
const (
	// MissingInt marks an integer cell with no data.
	MissingInt = -2147483643

	// MissingFloat marks a float cell with no data.
	MissingFloat = -3.3687953484590383e+38
)
