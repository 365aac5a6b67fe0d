package helpers

import (
	"testing"
	"time"
)

func TestShortenAddr(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"full address", "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045", "0xd8dA...6045"},
		{"too short", "0x1234", "0x1234"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShortenAddr(tt.in); got != tt.want {
				t.Errorf("ShortenAddr(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsValidEthAddress(t *testing.T) {
	if !IsValidEthAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3") {
		t.Error("expected checksummed address to be valid")
	}
	if IsValidEthAddress("5FbDB2315678afecb367f032d93F642f64180aa3") {
		t.Error("expected address without 0x prefix to be invalid")
	}
	if IsValidEthAddress("0x5FbDB2315678afecb367f032d93F642f64180aa") {
		t.Error("expected short address to be invalid")
	}
}

func TestLoadedAt(t *testing.T) {
	if got := LoadedAt(time.Time{}, true); got != "loading…" {
		t.Errorf("loading: got %q", got)
	}
	if got := LoadedAt(time.Time{}, false); got != "never" {
		t.Errorf("zero time: got %q", got)
	}
	ts := time.Date(2024, 1, 2, 13, 4, 5, 0, time.UTC)
	if got := LoadedAt(ts, false); got != "13:04:05" {
		t.Errorf("timestamp: got %q", got)
	}
}
