// Package device provides the real audio hardware backends behind the
// audio.Source and audio.Sink interfaces: a miniaudio (malgo) microphone
// source and an oto speaker sink. Tests of the core engine never touch this
// package; they substitute virtual sources and sinks.
package device
