// internal/sps30/frame.go
package sps30

import "fmt"

// Frame geometry.
const (
	// WordSize is the number of data bytes covered by one checksum.
	WordSize = 2

	// FramedWordSize is a data word plus its checksum byte.
	FramedWordSize = WordSize + 1

	// CommandSize is the length of a command word. It is never checksummed.
	CommandSize = 2
)

// EncodeFrame builds the bytes put on the wire for one write.
//
// payload is the command word followed by zero or more data words:
//
//	[CMD(2)][W0(2)][W1(2)]...  ->  [CMD(2)][W0(2)][CRC(W0)][W1(2)][CRC(W1)]...
//
// A zero-length payload (address-only write) and a bare command word are
// returned as-is. An odd number of argument bytes is a programming error and
// panics.
func EncodeFrame(payload []byte) []byte {
	if len(payload) <= CommandSize {
		return payload
	}

	args := payload[CommandSize:]
	if len(args)%WordSize != 0 {
		panic(fmt.Sprintf("sps30: argument length %d is not a multiple of %d", len(args), WordSize))
	}

	frame := make([]byte, 0, CommandSize+len(args)/WordSize*FramedWordSize)
	frame = append(frame, payload[:CommandSize]...)

	for i := 0; i < len(args); i += WordSize {
		word := [2]byte{args[i], args[i+1]}
		frame = append(frame, word[0], word[1], Checksum(word))
	}

	return frame
}

// DecodeFrame validates a response read from the sensor and strips its
// checksums.
//
//	[W0(2)][CRC][W1(2)][CRC]...  ->  [W0(2)][W1(2)]...
//
// Every checksum is verified against its original offset before anything is
// copied; the first mismatch aborts with a *ChecksumError. A frame whose
// length is not a multiple of 3 is a programming error and panics.
func DecodeFrame(frame []byte) ([]byte, error) {
	if len(frame)%FramedWordSize != 0 {
		panic(fmt.Sprintf("sps30: frame length %d is not a multiple of %d", len(frame), FramedWordSize))
	}

	for i := 0; i < len(frame); i += FramedWordSize {
		want := Checksum([2]byte{frame[i], frame[i+1]})
		if got := frame[i+WordSize]; got != want {
			return nil, &ChecksumError{
				Word: i / FramedWordSize,
				Want: want,
				Got:  got,
			}
		}
	}

	data := make([]byte, 0, len(frame)/FramedWordSize*WordSize)
	for i := 0; i < len(frame); i += FramedWordSize {
		data = append(data, frame[i], frame[i+1])
	}

	return data, nil
}

// framedSize returns the wire length of a response carrying n data bytes.
func framedSize(n int) int {
	return n / WordSize * FramedWordSize
}
