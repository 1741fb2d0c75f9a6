// Package executor runs a loaded bootstrap plan. Execution is strictly
// sequential and synchronous: steps run in declaration order, each blocking
// until complete, and the first failure aborts everything after it. Every
// run, successful or not, leaves a receipt under the bootstrap home naming
// each step's outcome.
package executor
