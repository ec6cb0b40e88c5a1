// Package stream records frames into a capture file and replays them.
package stream

import (
	"encoding/binary"
	"io"
)

// MaxPacketSize limits the length of a single packet.
const MaxPacketSize = 1 << 16

// ErrPacketTooLarge indicates a corrupted length prefix.
type ErrPacketTooLarge struct {
	Size uint32
}

func (e *ErrPacketTooLarge) Error() string {
	return "packet too large"
}

// PacketReader reads packets.
type PacketReader interface {
	ReadPacket() ([]byte, error)
}

// PacketWriter writes packets.
type PacketWriter interface {
	WritePacket([]byte) error
}

// Reader implements PacketReader.
// Each packet is prefixed by 4-byte (little-endian) indicate the length.
type Reader struct {
	io.Reader
}

// NewReader creates a Reader with io.Reader.
func NewReader(r io.Reader) *Reader {
	return &Reader{r}
}

// ReadPacket implements PacketReader.
func (p *Reader) ReadPacket() ([]byte, error) {
	return ReadPacket(p.Reader)
}

// Writer implements PacketWriter.
type Writer struct {
	io.Writer
}

// NewWriter creates a Writer with io.Writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w}
}

// WritePacket implements PacketWriter.
func (p *Writer) WritePacket(pkt []byte) error {
	return WritePacket(p.Writer, pkt)
}

// ReadPacket reads one length-prefixed packet. io.EOF is only returned
// when the stream ends on a packet boundary.
func ReadPacket(r io.Reader) ([]byte, error) {
	var size uint32
	if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
		return nil, err
	}
	if size > MaxPacketSize {
		return nil, &ErrPacketTooLarge{Size: size}
	}
	pkt := make([]byte, size)
	if _, err := io.ReadFull(r, pkt); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return pkt, nil
}

// WritePacket writes one length-prefixed packet.
func WritePacket(w io.Writer, pkt []byte) error {
	size := uint32(len(pkt))
	if err := binary.Write(w, binary.LittleEndian, size); err != nil {
		return err
	}
	_, err := w.Write(pkt)
	return err
}
