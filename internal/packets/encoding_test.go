package packets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendString(t *testing.T) {
	assert.Equal(t, []byte{0, 0}, appendString(nil, ""))
	assert.Equal(t, []byte{0, 3, 'f', 'o', 'o'}, appendString(nil, "foo"))
	assert.Equal(t, []byte{0xAA, 0, 3, 'b', 'a', 'r'}, appendString([]byte{0xAA}, "bar"))

	utf8 := appendString(nil, "héllö")
	assert.Equal(t, []byte{0, 7, 'h', 0xc3, 0xa9, 'l', 'l', 0xc3, 0xb6}, utf8)
}

func TestAppendBinary(t *testing.T) {
	assert.Equal(t, []byte{0, 0}, appendBinary(nil, []byte{}))
	assert.Equal(t, []byte{0, 3, 1, 2, 3}, appendBinary(nil, []byte{1, 2, 3}))
	assert.Equal(t, []byte{0xFF, 0, 2, 0x01, 0x02}, appendBinary([]byte{0xFF}, []byte{0x01, 0x02}))
}

func TestDecodeString(t *testing.T) {
	tests := []struct {
		name        string
		input       []byte
		want        string
		wantBytes   int
		errContains string
	}{
		{name: "valid string", input: []byte{0, 3, 'b', 'a', 'z'}, want: "baz", wantBytes: 5},
		{name: "valid UTF-8", input: []byte{0, 2, 0xc3, 0xb6}, want: "ö", wantBytes: 4},
		{name: "buffer too short for length", input: []byte{0}, errContains: "buffer too short"},
		{name: "buffer too short for data", input: []byte{0, 5, 'a', 'b'}, errContains: "buffer too short"},
		{name: "invalid UTF-8", input: []byte{0, 1, 0xFF}, errContains: "invalid UTF-8"},
		{name: "embedded NUL", input: []byte{0, 5, 'h', 'e', 0x00, 'l', 'o'}, errContains: "NUL byte"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, n, err := decodeString(tt.input)
			if tt.errContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantBytes, n)
		})
	}
}

func TestDecodeBinary(t *testing.T) {
	tests := []struct {
		name      string
		input     []byte
		want      []byte
		wantBytes int
		wantErr   bool
	}{
		{name: "valid data", input: []byte{0, 2, 0xCA, 0xFE}, want: []byte{0xCA, 0xFE}, wantBytes: 4},
		{name: "buffer too short for length", input: []byte{0}, wantErr: true},
		{name: "buffer too short for data", input: []byte{0, 3, 0x01}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, n, err := decodeBinary(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantBytes, n)
		})
	}
}
