// Package fport provides FrSky F.Port protocol support.
package fport

// F.Port is spoken by RC receivers over a single half-duplex UART line
// (115200 8N1, usually inverted). Frames are delimited by a marker byte
// which both ends a frame and starts the next one. Marker and escape
// values inside a frame are byte-stuffed, so a receiver which loses
// bytes resynchronizes at the next marker without any extra logic.
//
//   7E LEN TYPE DATA... CRC 7E
//
// This package only receives. Control frames (TYPE 0x00) carry 16
// channels packed as 11-bit little-endian fields, followed by a flags
// byte and RSSI. The checksum is not verified unless asked for.
//
// Producer: F.Port receiver
// Consumer: flight controller / ground tools
