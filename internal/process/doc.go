// Package process terminates the headless Chrome process tree left behind
// when a browser connection is torn down.
package process
