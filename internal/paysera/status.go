package paysera

// Outcome is the domain classification of a gateway status code.
type Outcome string

const (
	Completed Outcome = "Completed"
	Pending   Outcome = "Pending"
	Failed    Outcome = "Failed"
	Unknown   Outcome = "Unknown"
)

// Gateway status codes.
const (
	statusCompleted int64 = 1
	statusPending   int64 = 2
	statusFailed    int64 = 3
)

// Human-readable status descriptions returned by DescribeStatus.
const (
	DescriptionCompleted = "Payment completed"
	DescriptionPending   = "Payment pending"
	DescriptionFailed    = "Payment failed"
	DescriptionUnknown   = "Unknown status"
)

// MapStatus maps the payload status coarsely: 1 is Completed, 2 is Pending and
// every other value, including a missing one, is Failed.
func MapStatus(payload Params) Outcome {
	code, ok := payload.statusCode()
	if !ok {
		return Failed
	}
	switch code {
	case statusCompleted:
		return Completed
	case statusPending:
		return Pending
	default:
		return Failed
	}
}

// ClassifyStatus is the four-way counterpart of MapStatus: only 3 is Failed,
// values outside {1,2,3} are Unknown.
func ClassifyStatus(payload Params) Outcome {
	code, ok := payload.statusCode()
	if !ok {
		return Unknown
	}
	switch code {
	case statusCompleted:
		return Completed
	case statusPending:
		return Pending
	case statusFailed:
		return Failed
	default:
		return Unknown
	}
}

// DescribeStatus returns the description for ClassifyStatus(payload).
func DescribeStatus(payload Params) string {
	switch ClassifyStatus(payload) {
	case Completed:
		return DescriptionCompleted
	case Pending:
		return DescriptionPending
	case Failed:
		return DescriptionFailed
	default:
		return DescriptionUnknown
	}
}

// IsStructurallyValid reports whether payload carries both an order id and a
// status. It does not check authenticity.
func IsStructurallyValid(payload Params) bool {
	return payload.has(KeyOrderID) && payload.has(KeyStatus)
}
