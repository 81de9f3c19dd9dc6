package identity

import (
	"os"
	"path/filepath"
	"testing"
)

const raspberryCPUInfo = `processor	: 0
model name	: ARMv7 Processor rev 4 (v7l)
BogoMIPS	: 38.40
Features	: half thumb fastmult vfp edsp neon vfpv3 tls vfpv4 idiva idivt vfpd32 lpae evtstrm crc32

Hardware	: BCM2835
Revision	: a02082
Serial		: 00000000deadbeef
Model		: Raspberry Pi 3 Model B Rev 1.2
`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cpuinfo")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write cpuinfo: %v", err)
	}
	return path
}

func TestSerial(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "raspberry pi", content: raspberryCPUInfo, want: "00000000deadbeef"},
		{name: "no serial line", content: "processor\t: 0\nHardware\t: BCM2835\n", want: Fallback},
		{name: "empty serial value", content: "Serial\t\t: \n", want: Fallback},
		{name: "label without separator", content: "Serial\n", want: Fallback},
		{name: "empty file", content: "", want: Fallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Serial(writeFile(t, tt.content))
			if got != tt.want {
				t.Errorf("Serial() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSerial_MissingFile(t *testing.T) {
	got := Serial(filepath.Join(t.TempDir(), "does-not-exist"))
	if got != "0" {
		t.Errorf("Serial() = %q, want %q", got, "0")
	}
}

func TestSerial_Directory(t *testing.T) {
	got := Serial(t.TempDir())
	if got != Fallback {
		t.Errorf("Serial() = %q, want %q", got, Fallback)
	}
}
