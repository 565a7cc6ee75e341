package metrics

import "strconv"

const (
	ErrorsTotal           = "errors_total"
	PanicsTotal           = "panics_total"
	ErrorsByEndpointTotal = "errors_by_endpoint"
)

// RecordError counts an error response by envelope code and status.
func RecordError(errorCode string, httpStatus int) {
	counter(ErrorsTotal, map[string]string{
		"error_code":  errorCode,
		"http_status": strconv.Itoa(httpStatus),
	})
}

// RecordPanic counts a recovered handler panic.
func RecordPanic() {
	counter(PanicsTotal, nil)
}

// RecordErrorByEndpoint counts an error response by route pattern.
func RecordErrorByEndpoint(endpoint string, errorCode string) {
	counter(ErrorsByEndpointTotal, map[string]string{
		"endpoint":   endpoint,
		"error_code": errorCode,
	})
}
