// Package preflight provides readiness checks for the paths and the model
// endpoint a catalog run depends on.
//
// These checks run in two contexts:
//   - The "check" command runs RunAll and prints every result.
//   - A normal run calls RunAll before scanning and stops when a check
//     fails, so a dead endpoint does not turn every image into a failure.
package preflight
