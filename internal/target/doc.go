// Package target provides resize.Target implementations backed by things
// outside the process: a geometry file on disk and the controlling terminal.
package target
