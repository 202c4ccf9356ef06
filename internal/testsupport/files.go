package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// jpegHeader is enough of a JPEG for content sniffing.
var jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0x01}

// mp3Header is an ID3v2 tag header followed by padding.
var mp3Header = []byte{'I', 'D', '3', 0x04, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = byte('a' + i%26)
	}
	writeBytes(t, path, buf)
}

// WriteJPEG writes a small file that sniffs as image/jpeg.
func WriteJPEG(t testing.TB, path string) {
	t.Helper()
	writeBytes(t, path, append(append([]byte(nil), jpegHeader...), make([]byte, 64)...))
}

// WriteMP3 writes a small file that sniffs as audio/mpeg.
func WriteMP3(t testing.TB, path string) {
	t.Helper()
	writeBytes(t, path, append(append([]byte(nil), mp3Header...), make([]byte, 64)...))
}

// WriteText writes content to path, creating parent directories.
func WriteText(t testing.TB, path, content string) {
	t.Helper()
	writeBytes(t, path, []byte(content))
}

func writeBytes(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
