// Package cli implements the commands of the secokv tool. Commands report
// failures on stderr and exit non-zero.
package cli
