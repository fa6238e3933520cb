package inscription

import "testing"

func TestScan(t *testing.T) {
	tests := []struct {
		name   string
		script []byte
		want   bool
	}{
		{"empty", nil, false},
		{"not op_return", []byte{0x76, 0xa9, 0x14}, false},
		{"op_return no marker", []byte{opReturn, 0x04, 'd', 'e', 'a', 'd'}, false},
		{"op_return with marker immediately after push byte", append([]byte{opReturn, 0x03}, []byte("ord")...), true},
		{"op_return with marker deeper in payload", []byte{opReturn, 0x09, 'x', 'x', 'o', 'r', 'd', 'z', 'z', 'z', 'z'}, true},
		{"bare op_return byte only", []byte{opReturn}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Scan(tt.script); got != tt.want {
				t.Errorf("Scan(%v) = %v, want %v", tt.script, got, tt.want)
			}
		})
	}
}
