// Package encoder loads pretrained text encoders and exposes their
// token-level outputs for pooling.
package encoder

import (
	"context"
	"errors"
	"fmt"
)

// Errors returned by encoder loading and inference.
var (
	ErrModelLoad         = errors.New("loading model failed")
	ErrUnsupportedDevice = errors.New("unsupported device")
)

// Encoder produces contextual token vectors for query text.
type Encoder interface {
	// Encode tokenizes the given texts and runs one forward pass. Each text
	// is truncated to the encoder's maximum length; shorter texts are padded
	// to a common length within the batch and marked in the mask.
	Encode(ctx context.Context, texts []string) (*TokenBatch, error)

	// Dimensions returns the encoder's hidden dimensionality.
	Dimensions() int

	// ModelName returns the loaded model identifier.
	ModelName() string

	// Close releases the encoder's resources.
	Close() error
}

// TokenBatch holds per-token vectors for a batch of texts, with a parallel
// attention mask (1 = real token, 0 = padding).
type TokenBatch struct {
	Vectors [][][]float32 // batch x tokens x dimensions
	Mask    [][]float32   // batch x tokens
}

// Len returns the number of rows in the batch.
func (b *TokenBatch) Len() int {
	return len(b.Vectors)
}

// Device selects where inference runs.
type Device int

const (
	DeviceAuto Device = iota // Use GPU when available, otherwise CPU
	DeviceCPU
	DeviceGPU
)

// String returns the device name.
func (d Device) String() string {
	switch d {
	case DeviceCPU:
		return "cpu"
	case DeviceGPU:
		return "gpu"
	default:
		return "auto"
	}
}

// ParseDevice parses a device name. The empty string means auto-detect.
func ParseDevice(s string) (Device, error) {
	switch s {
	case "", "auto":
		return DeviceAuto, nil
	case "cpu":
		return DeviceCPU, nil
	case "gpu", "cuda":
		return DeviceGPU, nil
	}
	return DeviceAuto, fmt.Errorf("%w: %q (valid: cpu, gpu)", ErrUnsupportedDevice, s)
}
