package utils

import (
	"bytes"
	"errors"
	"io"
	"unsafe"
)

var ErrTokenTooLong = errors.New("line exceeds scan buffer")

// ParseUint parses an unsigned decimal; ok is false on an empty or non-digit field.
func ParseUint(buf string) (n uint32, ok bool) {
	if len(buf) == 0 {
		return 0, false
	}
	for i := 0; i < len(buf); i++ {
		if buf[i] < '0' || buf[i] > '9' {
			return 0, false
		}
		n = n*10 + uint32(buf[i]-'0')
	}
	return n, true
}

// var asciiSpace = [256]uint8{'\t': 1, '\n': 1, '\v': 1, '\f': 1, '\r': 1, ' ': 1}
const SPACE_MASK = 1<<9 | 1<<10 | 1<<11 | 1<<12 | 1<<13 | 1<<32

func isByteSpace(b byte) bool {
	return ((SPACE_MASK & (1 << b)) != 0)
}

// ASCII only, no re-allocation. Points to entries in byteBuff.
// Returns the number of fields found; fields past len(fieldBuff) are dropped.
func FastFields(fieldBuff []string, byteBuff []byte) (fieldIndex int) {
	i := 0
	for i < len(byteBuff) && isByteSpace(byteBuff[i]) {
		i++
	}
	fieldStart := i
	for i < len(byteBuff) {
		if !isByteSpace(byteBuff[i]) {
			i++
			continue
		}
		if fieldIndex < len(fieldBuff) {
			b := byteBuff[fieldStart:i]
			fieldBuff[fieldIndex] = *(*string)(Noescape(unsafe.Pointer(&b)))
		}
		fieldIndex++

		i++
		for i < len(byteBuff) && isByteSpace(byteBuff[i]) {
			i++
		}
		fieldStart = i
	}
	if fieldStart < len(byteBuff) { // Last field might end at EOF.
		if fieldIndex < len(fieldBuff) {
			b := byteBuff[fieldStart:]
			fieldBuff[fieldIndex] = *(*string)(Noescape(unsafe.Pointer(&b)))
		}
		fieldIndex++
	}
	return fieldIndex
}

type FastFileLines struct {
	Buf   []byte
	Start int // First non-processed byte in buf.
	End   int // End of data in buf.
}

// Scan returns the next line (without the newline), or nil at EOF.
// The returned slice is only valid until the next call.
func (s *FastFileLines) Scan(r io.Reader) ([]byte, error) {
	var err error
	for {
		if s.End > s.Start {
			if i := bytes.IndexByte(s.Buf[s.Start:s.End], '\n'); i >= 0 {
				token := s.Buf[s.Start : s.Start+i]
				s.Start += i + 1
				return token, nil
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return nil, err
			}
			if s.End > s.Start {
				i := s.Start
				s.Start = s.End
				return s.Buf[i:s.End], nil
			}
			return nil, nil
		}
		// Shift data to beginning of buffer if there's lots of empty space.
		if s.Start > 0 && s.Start > len(s.Buf)/2 {
			copy(s.Buf, s.Buf[s.Start:s.End])
			s.End -= s.Start
			s.Start = 0
		}
		if s.End == len(s.Buf) {
			return nil, ErrTokenTooLong
		}
		var n int
		for loop := 0; ; loop++ {
			n, err = r.Read(s.Buf[s.End:])
			s.End += n
			if n > 0 || err != nil {
				break
			}
			if loop > 100 {
				return nil, io.ErrNoProgress
			}
		}
	}
}
