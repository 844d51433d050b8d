package remoteerr

// Error codes attached to normalized errors. Codes beginning with PGRST
// come straight from the hosted query layer; the rest are assigned locally
// when the remote gave us nothing usable.
const (
	CodeUnknown         = "UNKNOWN_ERROR"
	CodeTimeout         = "TIMEOUT"
	CodeNetwork         = "NETWORK_ERROR"
	CodeRateLimited     = "RATE_LIMITED"
	CodeNotFound        = "NOT_FOUND"
	CodeRowNotFound     = "PGRST116"
	CodeJWTExpired      = "PGRST301"
	CodeUnauthenticated = "UNAUTHENTICATED"
)
