package main

import "testing"

func TestParseVec(t *testing.T) {
	tests := []struct {
		in      string
		x, y    float64
		wantErr bool
	}{
		{in: "0,0"},
		{in: "12.5, -3", x: 12.5, y: -3},
		{in: "1", wantErr: true},
		{in: "a,b", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseVec(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("parseVec(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("parseVec(%q): %v", tt.in, err)
		}
		if got.X() != tt.x || got.Y() != tt.y {
			t.Fatalf("parseVec(%q) = %v", tt.in, got)
		}
	}
}
