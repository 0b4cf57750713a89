// Package protocol implements the line-oriented actuator command language.
//
// Wire format: UTF-8 text lines terminated by '\n'. The grammar is a small
// closed set of commands:
//
//	INIT:<text>
//	LCD:<line1>|<line2>
//	LCD:CLEAR
//	DOOR:OPEN:<duration_seconds>
//	DOOR:CLOSE
//
// Encode renders a Command as a complete line; Parse interprets one line;
// Decoder reassembles lines from partial transport reads. Sender writes
// commands atomically with a bounded timeout and treats failures as a
// degraded actuator, never as a fatal pipeline error.
package protocol
