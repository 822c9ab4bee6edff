package models

const (
	// DefaultBaseAmount is the price of one base interval in VND.
	DefaultBaseAmount = 5000

	// DefaultBaseMinutes is the length of the base pricing interval.
	DefaultBaseMinutes = 60

	// DefaultPaymentTTLMinutes is how long a pending payment stays valid.
	DefaultPaymentTTLMinutes = 10

	// DefaultMatchWindowMinutes bounds how old a bank transaction may be
	// to still match a pending payment.
	DefaultMatchWindowMinutes = 15

	// ExitCacheTTLSeconds is the per-plate exit verification cache TTL.
	ExitCacheTTLSeconds = 5 * 60

	// DefaultTimezone is the facility timezone.
	DefaultTimezone = "Asia/Ho_Chi_Minh"

	// MinPlateLength after normalization.
	MinPlateLength = 4

	// WorkerQueueSize is the reconcile worker in-memory queue capacity.
	WorkerQueueSize = 128
)
