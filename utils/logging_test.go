package utils

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog/log"
)

func Test_LoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	setLoggerOutput(&buf, true)
	defer func() {
		SetLoggerConsole(true)
		SetLevel(0)
	}()

	SetLevel(0)
	log.Debug().Msg("hidden")
	log.Info().Msg("shown " + V(3))
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line at info level: %q", out)
	}
	if !strings.Contains(out, "| INFO  |") || !strings.Contains(out, "shown 3") {
		t.Fatalf("missing info line: %q", out)
	}
	if !strings.Contains(out, "logging_test.go") {
		t.Fatalf("missing caller: %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("colour codes with colour disabled: %q", out)
	}

	buf.Reset()
	SetLevel(1)
	log.Debug().Msg("deep")
	if !strings.Contains(buf.String(), "| DEBUG |") {
		t.Fatalf("missing debug line: %q", buf.String())
	}
}

func Test_Paint(t *testing.T) {
	c := console{}
	expect(t, c.paint("x", colourRed, colourBold), "\x1b[1m\x1b[31mx\x1b[0m\x1b[0m")
	expect(t, console{noColour: true}.paint("x", colourRed), "x")
	expect(t, c.level(nil), "\x1b[1m| ??? |\x1b[0m")
	expect(t, c.level(7), "|     7 |")

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	expect(t, console{noColour: true}.relative(wd+"/a/b.go"), "a/b.go")
}
