package logger

// Keys shared by every llmx log line.
const (
	FieldService   = "service"
	FieldComponent = "component"
	FieldRequestID = "request_id"
	FieldOperation = "operation"
	FieldError     = "error"
	FieldDuration  = "duration_ms"
	FieldProvider  = "provider"
	FieldModel     = "model"
	FieldCacheKey  = "cache_key"
	FieldAttempt   = "attempt"
	FieldStatus    = "status"
)

// Fields pairs up alternating keys and values. A trailing key without a
// value and non-string keys are dropped.
//
//	log.Info("done", logger.Fields(logger.FieldProvider, "openai", logger.FieldAttempt, 2))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 1; i < len(kvs); i += 2 {
		if k, ok := kvs[i-1].(string); ok {
			m[k] = kvs[i]
		}
	}
	return m
}

// ErrorFields tags err with the operation that produced it.
func ErrorFields(op string, err error) map[string]interface{} {
	return Fields(FieldOperation, op, FieldError, err.Error())
}
