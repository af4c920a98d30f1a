package sps30

import "testing"

func TestChecksum(t *testing.T) {
	tests := []struct {
		name string
		word [2]byte
		want byte
	}{
		{name: "datasheet vector", word: [2]byte{0xBE, 0xEF}, want: 0x92},
		{name: "start measurement argument", word: [2]byte{0x03, 0x00}, want: 0xAC},
		{name: "zero word", word: [2]byte{0x00, 0x00}, want: 0x81},
		{name: "ready flag", word: [2]byte{0x00, 0x01}, want: 0xB0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Checksum(tt.word); got != tt.want {
				t.Errorf("Checksum(%02X %02X) = 0x%02X, want 0x%02X", tt.word[0], tt.word[1], got, tt.want)
			}
		})
	}
}

func TestChecksumDeterministic(t *testing.T) {
	for hi := 0; hi < 256; hi += 17 {
		for lo := 0; lo < 256; lo += 13 {
			w := [2]byte{byte(hi), byte(lo)}
			if Checksum(w) != Checksum(w) {
				t.Fatalf("Checksum(%v) not deterministic", w)
			}
		}
	}
}
