package main

import (
	"encoding/binary"
	"os"

	"fmrds/audiobridge"
)

// interleavedWriterPort is a minimal ServerPort implementation for the
// "-o" and default audio-server paths. A real audio-server client library
// and the child-process plumbing that would pipe this PCM through an
// external encoder are not implemented here; this sink exists so the
// bridge has somewhere to write interleaved S16 frames without one.
type interleavedWriterPort struct {
	w        *os.File
	channels int
}

func newFileServerPort(path string, channels int) (*interleavedWriterPort, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &interleavedWriterPort{w: f, channels: channels}, nil
}

func newPipeServerPort(channels int) *interleavedWriterPort {
	return &interleavedWriterPort{w: os.Stdout, channels: channels}
}

func (p *interleavedWriterPort) Channels() int { return p.channels }

func (p *interleavedWriterPort) Deliver(frames [][]float32) error {
	if len(frames) == 0 {
		return nil
	}
	n := len(frames[0])
	buf := make([]byte, 2*n*len(frames))
	for i := 0; i < n; i++ {
		for ch := range frames {
			v := frames[ch][i]
			sample := int16(v * 32767)
			off := 2 * (i*len(frames) + ch)
			binary.LittleEndian.PutUint16(buf[off:], uint16(sample))
		}
	}
	_, err := p.w.Write(buf)
	return err
}

var _ audiobridge.ServerPort = (*interleavedWriterPort)(nil)
