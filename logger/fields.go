package logger

// Standard field names for structured logging.
const (
	FieldComponent = "component"
	FieldNamespace = "namespace"
	FieldFile      = "file"
	FieldDir       = "dir"
	FieldGenerator = "generator"
	FieldTarget    = "target"
	FieldNetwork   = "network"
	FieldCount     = "count"
	FieldDriver    = "driver"
	FieldError     = "error"
)
