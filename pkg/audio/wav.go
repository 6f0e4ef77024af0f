package audio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
)

// Format describes raw signed 16-bit little-endian PCM.
type Format struct {
	SampleRate int
	Channels   int
}

// DefaultFormat is what the microphone is asked to deliver.
var DefaultFormat = Format{SampleRate: 16000, Channels: 1}

const bitsPerSample = 16

// BytesPerFrame is the size of one sample across all channels.
func (f Format) BytesPerFrame() int {
	return f.Channels * bitsPerSample / 8
}

// WriteWAV stores pcm as a canonical 44-byte-header RIFF/WAVE file.
func WriteWAV(path string, pcm []byte, format Format) (err error) {
	if format.SampleRate <= 0 || format.Channels <= 0 {
		return fmt.Errorf("invalid wav format %+v", format)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close wav: %w", cerr)
		}
	}()

	w := bufio.NewWriter(f)
	dataLen := uint32(len(pcm))
	byteRate := uint32(format.SampleRate * format.BytesPerFrame())

	header := []any{
		[4]byte{'R', 'I', 'F', 'F'},
		36 + dataLen,
		[4]byte{'W', 'A', 'V', 'E'},
		[4]byte{'f', 'm', 't', ' '},
		uint32(16),
		uint16(1), // PCM
		uint16(format.Channels),
		uint32(format.SampleRate),
		byteRate,
		uint16(format.BytesPerFrame()),
		uint16(bitsPerSample),
		[4]byte{'d', 'a', 't', 'a'},
		dataLen,
	}
	for _, v := range header {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("write wav header: %w", err)
		}
	}
	if _, err := w.Write(pcm); err != nil {
		return fmt.Errorf("write wav data: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush wav: %w", err)
	}
	return nil
}
