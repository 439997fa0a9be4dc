package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actor (matches pkg/middleware/auth.go keys)
	FieldAddress  = "address"
	FieldUsername = "username"

	// Ledger entities
	FieldProductID = "product_id"
	FieldAmount    = "amount"
	FieldLockState = "lock_state"
	FieldEventType = "event_type"
	FieldEventSeq  = "event_seq"

	// Service
	FieldService   = "service"
	FieldComponent = "component"

	// Log type (for audit log)
	FieldLogType = "log_type"
	LogTypeAudit = "audit"
)
