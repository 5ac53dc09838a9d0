package constant

const (
	LogFieldErr      = "error"
	LogFieldPayload  = "payload"
	LogFieldResponse = "response"
	LogFieldTraceId  = "trace_id"
	LogFieldPath     = "path"
	LogFieldDay      = "day"
	LogFieldNumber   = "number"
	LogFieldSubject  = "subject"
	LogFieldWaiting  = "waiting"
)
