package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Tracing fields propagated through the call chain.
const (
	// FieldRunID identifies one pipeline run.
	FieldRunID = "run_id"

	// FieldCityID identifies the city job emitting the entry.
	FieldCityID = "city_id"

	// FieldComponent is the component/module name.
	FieldComponent = "component"
)

// Metric fields used for aggregation and alerting.
const (
	// FieldDurationMs is the execution duration in milliseconds.
	FieldDurationMs = "duration_ms"

	// FieldRows is the number of transformed rows in a city snapshot.
	FieldRows = "rows"

	// FieldDropped is the number of records dropped during transform.
	FieldDropped = "dropped"

	// FieldStatus is the terminal status of a job or run.
	FieldStatus = "status"
)
