// Package validator provides a small validation abstraction for engine
// configuration structs.
//
// The engine validates its tuning knobs (escalation ladder thresholds, worker
// intervals, retry caps) once at startup instead of guarding each use site.
// Business code depends on the Validator interface so validation can be shared
// and tested consistently; the concrete implementation wraps
// go-playground/validator v10.
package validator
