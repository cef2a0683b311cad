// Package errors provides foundational, type-safe error primitives used across ddd.
//
// Every error that crosses a package boundary is a ClassifiedError carrying a
// category, a severity and a small context map. Errors are created through the
// fluent ErrorBuilder:
//
//	err := errors.ConfigError("target not defined").
//		WithContext("target", "dev").
//		WithContext("path", cfgPath).
//		Build()
//
// The CLI adapter maps categories to process exit codes so scripts driving the
// daemon can distinguish configuration mistakes from runtime faults.
package errors
