// Package verify certifies that two video streams are frame-for-frame
// synchronized. It compares seven axes in a fixed order and classifies every
// deviation as critical or advisory; a pair is verified only when zero
// critical findings exist.
//
// Presentation timestamps are compared as integer ticks in the stream
// timebase. Floating-point seconds would accumulate precision loss over long
// streams, and a single mismatched tick is a real desynchronization.
package verify
