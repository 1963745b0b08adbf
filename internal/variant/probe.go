package variant

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
)

// SniffHeaderBytes bounds how much of a file is kept for container sniffing
// when no registered decoder recognises it.
const SniffHeaderBytes = 64 << 10

// Dimensions reads the image format and size from r without decoding pixels.
// Registered decoders read as far into the stream as their header needs, so
// large metadata segments ahead of the frame header are fine. AVIF/HEIF
// containers are recognised through their ispe property box, so encoded AVIF
// variants can be confirmed even though they cannot be decoded here.
func Dimensions(r io.Reader) (string, int, int, error) {
	head := &headBuffer{limit: SniffHeaderBytes}
	br := bufio.NewReader(io.TeeReader(r, head))
	if _, err := br.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			return "", 0, 0, fmt.Errorf("%w: empty file", ErrCorruptSource)
		}
		return "", 0, 0, fmt.Errorf("read image header: %w", err)
	}
	cfg, name, err := image.DecodeConfig(br)
	if err == nil {
		return name, cfg.Width, cfg.Height, nil
	}
	if !errors.Is(err, image.ErrFormat) {
		return "", 0, 0, fmt.Errorf("%w: %v", ErrCorruptSource, err)
	}
	if _, err := io.CopyN(io.Discard, br, SniffHeaderBytes); err != nil && !errors.Is(err, io.EOF) {
		return "", 0, 0, fmt.Errorf("read image header: %w", err)
	}
	data := head.Bytes()
	container := sniffContainer(data)
	if container == "unknown" {
		return "", 0, 0, &UnsupportedFormatError{Format: container}
	}
	width, height, ok := ispeDimensions(data)
	if !ok {
		return container, 0, 0, fmt.Errorf("%w: %s without ispe box", ErrCorruptSource, container)
	}
	return container, width, height, nil
}

// headBuffer keeps the first limit bytes written to it and discards the rest.
type headBuffer struct {
	bytes.Buffer
	limit int
}

func (h *headBuffer) Write(p []byte) (int, error) {
	if room := h.limit - h.Len(); room > 0 {
		h.Buffer.Write(p[:min(len(p), room)])
	}
	return len(p), nil
}

// ispeDimensions finds the first ImageSpatialExtentsProperty: a box of type
// "ispe" holding version/flags then 32-bit width and height.
func ispeDimensions(data []byte) (int, int, bool) {
	idx := bytes.Index(data, []byte("ispe"))
	if idx < 4 || idx+16 > len(data) {
		return 0, 0, false
	}
	body := data[idx+4:]
	width := binary.BigEndian.Uint32(body[4:8])
	height := binary.BigEndian.Uint32(body[8:12])
	if width == 0 || height == 0 {
		return 0, 0, false
	}
	return int(width), int(height), true
}
