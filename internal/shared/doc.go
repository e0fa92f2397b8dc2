// Package shared holds code used across Plate Pulse packages that belongs to
// no single domain or layer.
//
// The testutil subpackage provides:
//
//	- Restaurant listing fixtures (SampleCSV, RestaurantCSV)
//	- LogRecorder, an slog handler that captures records for assertions
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    // ... exercise code with logger
//	    testutil.AssertLogContains(t, logs, slog.LevelWarn, "upload rejected")
//	}
package shared
