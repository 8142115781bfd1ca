// Package stages provides command-backed implementations of the pipeline
// stages.
//
// Each stage runs the argv declared at stages.<name>.command. The child
// process inherits the parent environment, the stage's own env entries, and
// a small set of TRAINPIPE_* variables that locate the resolved
// configuration written for the run.
package stages
