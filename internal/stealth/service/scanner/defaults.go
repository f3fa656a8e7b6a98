package scanner

const (
	defaultChunkSize uint64 = 2000
	defaultLookback  uint64 = 10_000
)

// Announcement outcomes reported to Metrics.
const (
	OutcomeDecodeError       = "decode_error"
	OutcomeUnsupportedScheme = "unsupported_scheme"
	OutcomeViewTagMiss       = "view_tag_miss"
	OutcomeCollision         = "collision"
	OutcomeInvalid           = "invalid"
	OutcomeDuplicate         = "duplicate"
	OutcomeEmptyBalance      = "empty_balance"
	OutcomeDonation          = "donation"
)
