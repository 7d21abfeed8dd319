package utils

import (
	"strconv"
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"
)

var testByteBuff = []byte("123 432 1 23421 100 2341\n")

func Benchmark_Fields_ToInt(b *testing.B) {
	ints := make([]uint32, 6)
	accum := 0
	for i := 0; i < b.N; i++ {
		s1 := strings.Fields(string(testByteBuff))
		for j := 0; j < 6; j++ {
			si, _ := strconv.Atoi(s1[j])
			ints[j] = uint32(si)
		}
		accum += int(MaxSlice(ints))
	}
}

func Benchmark_FastFields_ToInt(b *testing.B) {
	s1 := make([]string, 6)
	ints := make([]uint32, 6)
	accum := 0
	for i := 0; i < b.N; i++ {
		n := FastFields(s1, testByteBuff)
		for j := 0; j < n; j++ {
			ints[j], _ = ParseUint(s1[j])
		}
		accum += int(MaxSlice(ints))
	}
}

func expect[T comparable](t *testing.T, a T, b T) {
	t.Helper()
	if a != b {
		t.Error("Expected: ", a, " got: ", b)
	}
}

func Test_ToInt(t *testing.T) {
	b1 := make([]string, 6)
	ints := make([]uint32, 6)
	expect(t, 6, FastFields(b1, testByteBuff))
	for i := 0; i < 6; i++ {
		ints[i], _ = ParseUint(b1[i])
	}
	expect(t, ints[0], uint32(123))
	expect(t, ints[1], uint32(432))
	expect(t, ints[2], uint32(1))
	expect(t, ints[3], uint32(23421))
	expect(t, ints[4], uint32(100))
	expect(t, ints[5], uint32(2341))

	_, ok := ParseUint("12a")
	expect(t, ok, false)
	_, ok = ParseUint("")
	expect(t, ok, false)
	n, ok := ParseUint("4096")
	expect(t, ok, true)
	expect(t, n, uint32(4096))
}

// Test various strings to ensure they get fielded properly
func Test_FastFields(t *testing.T) {
	a := make([]string, 10)
	setOfByteBuffs := [][]byte{
		[]byte("hello world this is a test"),
		[]byte("hello world this is a test "),
		[]byte(" hello world this is a test"),
		[]byte("hello   world  this  is      a    test"),
		[]byte("  hello   world    this  is  a  test "),
		[]byte("hello\tworld\tthis\tis\ta\ttest"),
		[]byte("\thello world this is a test\t"),
		[]byte(" hello world this is a test\n\n"),
		[]byte("hello\t world\t this\t is\ta\ttest\r\n"),
	}

	for _, byteBuff := range setOfByteBuffs {
		expect(t, FastFields(a, byteBuff), 6)
		expect(t, a[0], "hello")
		expect(t, a[1], "world")
		expect(t, a[2], "this")
		expect(t, a[3], "is")
		expect(t, a[4], "a")
		expect(t, a[5], "test")
	}

	short := make([]string, 2)
	expect(t, FastFields(short, []byte("a b c")), 3)
	expect(t, short[1], "b")
}

func Test_FastFileLines(t *testing.T) {
	s := FastFileLines{Buf: make([]byte, 8)}
	r := strings.NewReader("0 1\n1 2\n\n2 0")
	var lines []string
	for {
		line, err := s.Scan(r)
		if err != nil {
			t.Fatal(err)
		}
		if line == nil {
			break
		}
		lines = append(lines, string(line))
	}
	expect(t, len(lines), 4)
	expect(t, lines[0], "0 1")
	expect(t, lines[2], "")
	expect(t, lines[3], "2 0")

	s = FastFileLines{Buf: make([]byte, 4)}
	if _, err := s.Scan(strings.NewReader("0123456789\n")); err != ErrTokenTooLong {
		t.Fatalf("expected token too long, got %v", err)
	}
}

func Benchmark_Space(b *testing.B) {
	for i := 0; i < b.N; i++ {
		for r := rune(0); r <= utf8.MaxRune; r++ {
			isByteSpace(byte(r))
		}
	}
}

func Benchmark_UnicodeSpace(b *testing.B) {
	for i := 0; i < b.N; i++ {
		for r := rune(0); r <= utf8.MaxRune; r++ {
			unicode.IsSpace(r)
		}
	}
}
