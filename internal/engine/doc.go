// Package engine implements the live multi-job tail loop: it polls the
// scheduler for a fixed set of watched jobs, reads the tail of each running
// job's output, splits the available height between them and hands the
// resulting Frame to a Renderer until no watched job is active any more.
//
// The loop is strictly sequential (poll, render, sleep). A slow scheduler
// query delays the next frame rather than racing it.
package engine
