package media

import (
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrInvalidRange — заголовок не разбирается; отдаём файл целиком.
	ErrInvalidRange = errors.New("media: invalid range")
	// ErrUnsatisfiable — начало диапазона за концом файла (416).
	ErrUnsatisfiable = errors.New("media: range not satisfiable")
)

// ByteRange — полуоткрытое окно [Start, End] включительно.
type ByteRange struct {
	Start int64
	End   int64
}

func (r ByteRange) Length() int64 { return r.End - r.Start + 1 }

// ParseRange разбирает одиночный диапазон bytes=<start>-<end>.
// Пустой заголовок — (nil, nil). Открытый конец и конец за EOF
// прижимаются к последнему байту; суффиксная форма bytes=-N даёт
// последние N байт. Составные диапазоны не поддерживаются.
func ParseRange(header string, size int64) (*ByteRange, error) {
	if header == "" {
		return nil, nil
	}
	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok || strings.Contains(spec, ",") {
		return nil, ErrInvalidRange
	}
	startStr, endStr, ok := strings.Cut(spec, "-")
	if !ok {
		return nil, ErrInvalidRange
	}

	if startStr == "" {
		n, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || n <= 0 {
			return nil, ErrInvalidRange
		}
		if n > size {
			n = size
		}
		return &ByteRange{Start: size - n, End: size - 1}, nil
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 {
		return nil, ErrInvalidRange
	}
	if start >= size {
		return nil, ErrUnsatisfiable
	}
	end := size - 1
	if endStr != "" {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil || end < start {
			return nil, ErrInvalidRange
		}
		if end > size-1 {
			end = size - 1
		}
	}
	return &ByteRange{Start: start, End: end}, nil
}
