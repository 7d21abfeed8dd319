package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func init() {
	fd := os.Stdout.Fd()
	SetLoggerConsole(!isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd))
}

const (
	colourRed     = 31
	colourGreen   = 32
	colourYellow  = 33
	colourMagenta = 35
	colourBold    = 1
	colourGray    = 90
)

// Helper for escape analysis; avoids go thinking the variadic argument escapes.
// Default "verb" behaviour.
func V[T any](copyThatEscapes T) string {
	return fmt.Sprintf("%v", copyThatEscapes)
}

// Helper for escape analysis; avoids go thinking the variadic argument escapes.
// Uses the given format string.
func F[T any](f string, copyThatEscapes T) string {
	return fmt.Sprintf(f, copyThatEscapes)
}

// Levels by -d count; anything past the end is trace.
var levels = []zerolog.Level{zerolog.InfoLevel, zerolog.DebugLevel, zerolog.TraceLevel}

func SetLevel(level int) {
	level = Max(0, Min(level, len(levels)-1))
	log.Logger = log.Logger.Level(levels[level])
}

// SetLoggerConsole sends the console logger to stdout.
func SetLoggerConsole(noColour bool) {
	setLoggerOutput(os.Stdout, noColour)
}

type levelStyle struct {
	tag     string
	colours []int
}

var levelStyles = map[string]levelStyle{
	zerolog.LevelTraceValue: {"| TRACE |", []int{colourMagenta}},
	zerolog.LevelDebugValue: {"| DEBUG |", []int{colourYellow}},
	zerolog.LevelInfoValue:  {"| INFO  |", []int{colourGreen}},
	zerolog.LevelWarnValue:  {"| WARN  |", []int{colourRed}},
	zerolog.LevelErrorValue: {"| ERROR |", []int{colourRed, colourBold}},
	zerolog.LevelFatalValue: {"| FATAL |", []int{colourRed, colourBold}},
	zerolog.LevelPanicValue: {"| PANIC |", []int{colourRed, colourBold}},
}

// console holds the formatting state of one logger output.
type console struct {
	noColour bool
}

func setLoggerOutput(w io.Writer, noColour bool) {
	c := console{noColour: noColour}
	zerolog.CallerMarshalFunc = c.caller

	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05", NoColor: noColour}
	cw.FormatCaller = c.relative
	cw.FormatLevel = c.level
	cw.PartsOrder = []string{
		zerolog.TimestampFieldName,
		zerolog.CallerFieldName,
		zerolog.LevelFieldName,
		zerolog.MessageFieldName,
	}
	log.Logger = log.With().Caller().Logger().Output(cw).Level(log.Logger.GetLevel())
}

func (c console) paint(s string, colours ...int) string {
	if c.noColour {
		return s
	}
	for _, code := range colours {
		s = "\x1b[" + strconv.Itoa(code) + "m" + s + "\x1b[0m"
	}
	return s
}

// caller is file.line, padded to a fixed width and cut from the left.
func (c console) caller(_ uintptr, file string, line int) string {
	s := fmt.Sprintf("%15s.%-4d", filepath.Base(file), line)
	if len(s) > 20 {
		s = ".." + s[len(s)-18:]
	}
	return c.paint(s, colourGray)
}

func (c console) relative(i any) string {
	s, _ := i.(string)
	if s == "" {
		return ""
	}
	if cwd, err := os.Getwd(); err == nil {
		if rel, err := filepath.Rel(cwd, s); err == nil {
			s = rel
		}
	}
	return c.paint(s, colourBold)
}

func (c console) level(i any) string {
	s, ok := i.(string)
	if !ok {
		if i == nil {
			return c.paint("| ??? |", colourBold)
		}
		return fmt.Sprintf("| %5v |", i)
	}
	if st, ok := levelStyles[s]; ok {
		return c.paint(st.tag, st.colours...)
	}
	return c.paint(s, colourBold)
}
