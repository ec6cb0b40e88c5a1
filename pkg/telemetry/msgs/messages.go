package msgs

import (
	"time"

	"github.com/golang/protobuf/proto"

	"github.com/robotalks/fport.go/pkg/fport"
)

// ChannelsEvent reports a decoded control frame.
type ChannelsEvent struct {
	Channels  []uint32 `protobuf:"varint,1,rep,packed,name=channels,proto3" json:"channels"`
	Raw       bool     `protobuf:"varint,2,opt,name=raw,proto3" json:"raw,omitempty"`
	HasStatus bool     `protobuf:"varint,3,opt,name=has_status,json=hasStatus,proto3" json:"has_status,omitempty"`
	FrameLost bool     `protobuf:"varint,4,opt,name=frame_lost,json=frameLost,proto3" json:"frame_lost,omitempty"`
	Failsafe  bool     `protobuf:"varint,5,opt,name=failsafe,proto3" json:"failsafe,omitempty"`
	Rssi      uint32   `protobuf:"varint,6,opt,name=rssi,proto3" json:"rssi,omitempty"`
	Timestamp int64    `protobuf:"varint,7,opt,name=timestamp,proto3" json:"timestamp,omitempty"`
}

// ChannelsEventFrom creates the event from a decoded control frame.
func ChannelsEventFrom(ctl *fport.Control, at time.Time) *ChannelsEvent {
	m := &ChannelsEvent{
		Channels:  make([]uint32, len(ctl.Channels)),
		Raw:       ctl.Raw,
		HasStatus: ctl.HasStatus,
		Timestamp: at.UnixNano(),
	}
	for n, val := range ctl.Channels {
		m.Channels[n] = uint32(val)
	}
	if ctl.HasStatus {
		m.FrameLost = ctl.Flags.FrameLost()
		m.Failsafe = ctl.Flags.Failsafe()
		m.Rssi = uint32(ctl.RSSI)
	}
	return m
}

// ChannelSet converts the channels back, extra values are dropped.
func (m *ChannelsEvent) ChannelSet() (c fport.ChannelSet) {
	for n, val := range m.Channels {
		if n >= len(c) {
			break
		}
		c[n] = uint16(val)
	}
	return
}

// NewMessage implements SerializableMessage.
func (m *ChannelsEvent) NewMessage() SerializableMessage { return &ChannelsEvent{} }

// TypeID implements SerializableMessage.
func (m *ChannelsEvent) TypeID() uint32 { return ChannelsEventTypeID }

// ProtoMessage implements proto.Message.
func (m *ChannelsEvent) ProtoMessage() {}

// Reset implements proto.Message.
func (m *ChannelsEvent) Reset() { *m = ChannelsEvent{} }

// String implements proto.Message.
func (m *ChannelsEvent) String() string { return proto.CompactTextString(m) }

// StatsEvent reports receiver counters.
type StatsEvent struct {
	Frames          uint64 `protobuf:"varint,1,opt,name=frames,proto3" json:"frames"`
	ControlFrames   uint64 `protobuf:"varint,2,opt,name=control_frames,json=controlFrames,proto3" json:"control_frames"`
	SkippedFrames   uint64 `protobuf:"varint,3,opt,name=skipped_frames,json=skippedFrames,proto3" json:"skipped_frames"`
	MalformedFrames uint64 `protobuf:"varint,4,opt,name=malformed_frames,json=malformedFrames,proto3" json:"malformed_frames"`
	ChecksumErrors  uint64 `protobuf:"varint,5,opt,name=checksum_errors,json=checksumErrors,proto3" json:"checksum_errors"`
}

// StatsEventFrom creates the event from receiver stats.
func StatsEventFrom(s fport.Stats) *StatsEvent {
	return &StatsEvent{
		Frames:          s.Frames,
		ControlFrames:   s.ControlFrames,
		SkippedFrames:   s.SkippedFrames,
		MalformedFrames: s.MalformedFrames,
		ChecksumErrors:  s.ChecksumErrors,
	}
}

// NewMessage implements SerializableMessage.
func (m *StatsEvent) NewMessage() SerializableMessage { return &StatsEvent{} }

// TypeID implements SerializableMessage.
func (m *StatsEvent) TypeID() uint32 { return StatsEventTypeID }

// ProtoMessage implements proto.Message.
func (m *StatsEvent) ProtoMessage() {}

// Reset implements proto.Message.
func (m *StatsEvent) Reset() { *m = StatsEvent{} }

// String implements proto.Message.
func (m *StatsEvent) String() string { return proto.CompactTextString(m) }

// TypeID Groups
const (
	GroupFPort uint32 = 0x00100000
)

// TypeIDs
const (
	ChannelsEventTypeID uint32 = GroupFPort | TypeIDKindEvent | 0x0000
	StatsEventTypeID    uint32 = GroupFPort | TypeIDKindEvent | 0x0001
)
