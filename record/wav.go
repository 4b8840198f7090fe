package record

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
)

// WriteWAV writes mono 16-bit PCM audio to a RIFF/WAVE file.
func WriteWAV(path string, audio []int16, sampleRate int) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create WAV file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	dataSize := uint32(len(audio) * 2)

	writer.WriteString("RIFF")
	binary.Write(writer, binary.LittleEndian, uint32(36+dataSize))
	writer.WriteString("WAVE")

	writer.WriteString("fmt ")
	binary.Write(writer, binary.LittleEndian, uint32(16))
	binary.Write(writer, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(writer, binary.LittleEndian, uint16(1)) // mono
	binary.Write(writer, binary.LittleEndian, uint32(sampleRate))
	binary.Write(writer, binary.LittleEndian, uint32(sampleRate*2)) // byte rate
	binary.Write(writer, binary.LittleEndian, uint16(2))            // block align
	binary.Write(writer, binary.LittleEndian, uint16(16))           // bits per sample

	writer.WriteString("data")
	binary.Write(writer, binary.LittleEndian, dataSize)
	if err := binary.Write(writer, binary.LittleEndian, audio); err != nil {
		return fmt.Errorf("cannot write WAV samples: %w", err)
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("cannot flush WAV file: %w", err)
	}
	return file.Close()
}
