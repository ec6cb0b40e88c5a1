// Package msgs defines telemetry events published by a monitor and
// the typed envelope carrying them over the wire.
package msgs

// Events are protobuf encoded and wrapped in Typed, so subscribers can
// decode without knowing the topic layout.
//
// Producer: monitor
// Consumer: subscribers (fportsub, dashboards)
