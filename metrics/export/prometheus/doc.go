// Package prometheus renders engine metrics in Prometheus text exposition
// format.
//
// [NewExporter] accepts a [flockauth.Engine] and exposes an http.Handler
// that writes every counter and histogram. Counter names are prefixed
// flockauth_*_total; the single histogram is
// flockauth_authenticate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the
//     Handler themselves.
//   - Mutate engine state.
package prometheus
