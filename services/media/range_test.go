package media

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRange(t *testing.T) {
	cases := []struct {
		name   string
		header string
		size   int64
		want   *ByteRange
		err    error
	}{
		{name: "нет заголовка", header: "", size: 1000, want: nil},
		{name: "простое окно", header: "bytes=100-199", size: 1000, want: &ByteRange{100, 199}},
		{name: "первый байт", header: "bytes=0-0", size: 1000, want: &ByteRange{0, 0}},
		{name: "открытый конец", header: "bytes=950-", size: 1000, want: &ByteRange{950, 999}},
		{name: "конец за EOF прижимается", header: "bytes=900-5000", size: 1000, want: &ByteRange{900, 999}},
		{name: "суффикс", header: "bytes=-100", size: 1000, want: &ByteRange{900, 999}},
		{name: "суффикс больше файла", header: "bytes=-5000", size: 1000, want: &ByteRange{0, 999}},
		{name: "начало за EOF", header: "bytes=1000-", size: 1000, err: ErrUnsatisfiable},
		{name: "не bytes", header: "items=0-1", size: 1000, err: ErrInvalidRange},
		{name: "составной диапазон", header: "bytes=0-1,5-6", size: 1000, err: ErrInvalidRange},
		{name: "конец раньше начала", header: "bytes=200-100", size: 1000, err: ErrInvalidRange},
		{name: "мусор", header: "bytes=abc-def", size: 1000, err: ErrInvalidRange},
		{name: "без дефиса", header: "bytes=100", size: 1000, err: ErrInvalidRange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseRange(tc.header, tc.size)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestByteRangeLength(t *testing.T) {
	require.EqualValues(t, 100, ByteRange{100, 199}.Length())
	require.EqualValues(t, 1, ByteRange{0, 0}.Length())
}
