package cache

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// compressThreshold is the body size from which stored bodies are zstd compressed.
const compressThreshold = 1024

const encodingZstd = "zstd"

type storedEntry struct {
	Entry
	Encoding string `json:"encoding,omitempty"`
}

var (
	encoderOnce = sync.OnceValues(func() (*zstd.Encoder, error) {
		return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	})
	decoderOnce = sync.OnceValues(func() (*zstd.Decoder, error) {
		return zstd.NewReader(nil)
	})
)

// encodeEntry serializes entry, compressing large bodies when that saves space.
func encodeEntry(entry *Entry) ([]byte, error) {
	stored := storedEntry{Entry: *entry}

	if len(entry.Data) >= compressThreshold {
		enc, err := encoderOnce()
		if err != nil {
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
		if compressed := enc.EncodeAll(entry.Data, nil); len(compressed) < len(entry.Data) {
			stored.Data = compressed
			stored.Encoding = encodingZstd
		}
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("marshal cache entry: %w", err)
	}
	return data, nil
}

// decodeEntry is the inverse of encodeEntry.
func decodeEntry(data []byte) (*Entry, error) {
	var stored storedEntry
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	switch stored.Encoding {
	case "":
	case encodingZstd:
		dec, err := decoderOnce()
		if err != nil {
			return nil, fmt.Errorf("create zstd decoder: %w", err)
		}
		body, err := dec.DecodeAll(stored.Data, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
		}
		stored.Data = body
	default:
		return nil, fmt.Errorf("%w: unknown encoding %q", ErrInvalidEntry, stored.Encoding)
	}

	entry := stored.Entry
	return &entry, nil
}
