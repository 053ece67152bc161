package content

import (
	"bytes"
	"testing"

	"pgregory.net/rapid"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0}, "jpeg"},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D}, "png"},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), "webp"},
		{"riff without webp", []byte("RIFF\x00\x00\x00\x00WAVE"), "jpeg"},
		{"short riff", []byte("RIFF\x00\x00"), "jpeg"},
		{"gif", []byte("GIF89a"), "gif"},
		{"unknown", []byte{0x00, 0x01, 0x02, 0x03}, "jpeg"},
		{"too short", []byte{0x89, 0x50, 0x4E}, "jpeg"},
		{"empty", nil, "jpeg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectFormat(tt.data); got != tt.want {
				t.Errorf("DetectFormat(% x) = %q, want %q", tt.data, got, tt.want)
			}
		})
	}
}

// TestProperty_DetectFormatSignatures checks the signature rules against
// arbitrary trailing payloads.
func TestProperty_DetectFormatSignatures(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		tail := rapid.SliceOfN(rapid.Byte(), 0, 32).Draw(rt, "tail")
		kind := rapid.SampledFrom([]string{"jpeg", "png", "webp", "gif", "random"}).Draw(rt, "kind")

		var data []byte
		switch kind {
		case "jpeg":
			data = append([]byte{0xFF, 0xD8, 0xFF, 0x00}, tail...)
		case "png":
			data = append([]byte{0x89, 0x50, 0x4E, 0x47}, tail...)
		case "webp":
			data = append([]byte("RIFF\x01\x02\x03\x04WEBP"), tail...)
		case "gif":
			data = append([]byte("GIF8"), tail...)
		default:
			data = tail
		}

		got := DetectFormat(data)

		if kind != "random" {
			if got != kind {
				rt.Fatalf("DetectFormat(%s payload) = %q", kind, got)
			}
			return
		}

		known := len(data) >= 4 && (bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}) ||
			bytes.HasPrefix(data, []byte{0x89, 0x50, 0x4E, 0x47}) ||
			bytes.HasPrefix(data, []byte("GIF8")) ||
			(len(data) >= 12 && bytes.HasPrefix(data, []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP"))))
		if !known && got != "jpeg" {
			rt.Fatalf("DetectFormat(% x) = %q, want jpeg default", data, got)
		}
	})
}
