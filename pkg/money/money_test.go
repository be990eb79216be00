package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatYuan(t *testing.T) {
	tests := []struct {
		fen  int64
		want string
	}{
		{0, "0.00"},
		{5900, "59.00"},
		{130000, "1300.00"},
		{1, "0.01"},
		{-1050, "-10.50"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatYuan(tt.fen))
	}
}

func TestParseYuan(t *testing.T) {
	fen, err := ParseYuan("89.90")
	require.NoError(t, err)
	assert.Equal(t, int64(8990), fen)

	fen, err = ParseYuan("0.005")
	require.NoError(t, err)
	assert.Equal(t, int64(1), fen)

	_, err = ParseYuan("abc")
	assert.Error(t, err)
}
