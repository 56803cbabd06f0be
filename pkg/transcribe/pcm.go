package transcribe

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// whisper.cpp expects 16 kHz mono float32 samples.
const sampleRate = 16000

// decodeAudio shells out to ffmpeg to convert arbitrary input media (ogg,
// mp4, webm, ...) to raw PCM and converts that to float32 samples.
func decodeAudio(ctx context.Context, path string) ([]float32, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-nostdin",
		"-hide_banner",
		"-loglevel", "error",
		"-i", path,
		"-f", "s16le",
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"pipe:1",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if detail := strings.TrimSpace(stderr.String()); detail != "" {
			return nil, fmt.Errorf("ffmpeg decode: %s", detail)
		}
		return nil, fmt.Errorf("ffmpeg decode: %w", err)
	}

	return pcm16ToFloat32(stdout.Bytes()), nil
}

// pcm16ToFloat32 converts little-endian signed 16-bit PCM to [-1, 1) floats.
func pcm16ToFloat32(data []byte) []float32 {
	samples := make([]float32, len(data)/2)
	for i := range samples {
		samples[i] = float32(int16(binary.LittleEndian.Uint16(data[i*2:]))) / 32768
	}
	return samples
}
