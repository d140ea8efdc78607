// Package aggregates declares the write boundaries of the course engine:
// course structure, enrollment, progress and the payment ledger.
//
// Contracts here carry no persistence details. Failures are reported as *Error
// values with a stable Code that transports map to their own status codes.
package aggregates
