package encoder

import (
	"errors"
	"testing"
)

func TestParseDevice(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Device
		wantErr bool
	}{
		{name: "empty means auto", input: "", want: DeviceAuto},
		{name: "auto", input: "auto", want: DeviceAuto},
		{name: "cpu", input: "cpu", want: DeviceCPU},
		{name: "gpu", input: "gpu", want: DeviceGPU},
		{name: "cuda alias", input: "cuda", want: DeviceGPU},
		{name: "unknown", input: "tpu", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDevice(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseDevice(%q) error = nil, want error", tt.input)
				}
				if !errors.Is(err, ErrUnsupportedDevice) {
					t.Errorf("ParseDevice(%q) error = %v, want ErrUnsupportedDevice", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDevice(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseDevice(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDeviceString(t *testing.T) {
	if DeviceCPU.String() != "cpu" {
		t.Errorf("DeviceCPU.String() = %q, want cpu", DeviceCPU.String())
	}
	if DeviceGPU.String() != "gpu" {
		t.Errorf("DeviceGPU.String() = %q, want gpu", DeviceGPU.String())
	}
	if DeviceAuto.String() != "auto" {
		t.Errorf("DeviceAuto.String() = %q, want auto", DeviceAuto.String())
	}
}

func TestTokenBatchLen(t *testing.T) {
	empty := &TokenBatch{}
	if empty.Len() != 0 {
		t.Errorf("Len() = %d, want 0", empty.Len())
	}

	batch := &TokenBatch{
		Vectors: [][][]float32{{{1}}, {{2}}},
		Mask:    [][]float32{{1}, {1}},
	}
	if batch.Len() != 2 {
		t.Errorf("Len() = %d, want 2", batch.Len())
	}
}
