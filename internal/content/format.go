package content

import "bytes"

var (
	sigJPEG = []byte{0xFF, 0xD8, 0xFF}
	sigPNG  = []byte{0x89, 0x50, 0x4E, 0x47}
	sigRIFF = []byte("RIFF")
	sigWEBP = []byte("WEBP")
	sigGIF  = []byte("GIF8")
)

// DetectFormat sniffs the image format from its leading bytes. Payloads
// shorter than four bytes, or with an unknown signature, are reported as jpeg.
func DetectFormat(data []byte) string {
	if len(data) < 4 {
		return "jpeg"
	}
	switch {
	case bytes.HasPrefix(data, sigJPEG):
		return "jpeg"
	case bytes.HasPrefix(data, sigPNG):
		return "png"
	case bytes.HasPrefix(data, sigRIFF) && len(data) >= 12 && bytes.Equal(data[8:12], sigWEBP):
		return "webp"
	case bytes.HasPrefix(data, sigGIF):
		return "gif"
	default:
		return "jpeg"
	}
}
