package util

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Positioned is implemented by errors and diagnostics that point at source.
type Positioned interface {
	Position() (line, col, length int)
}

// messager lets an error report its text without the trailing position,
// which the reporter prints as a prefix instead.
type messager interface {
	Message() string
}

// Diagnostic is a non-fatal finding, such as a warning from the checker.
type Diagnostic struct {
	Name    string // warning name, printed as [-W<name>]
	Message string
	Line    int
	Column  int
	Len     int
}

func (d Diagnostic) Position() (line, col, length int) { return d.Line, d.Column, d.Len }

func (d Diagnostic) String() string {
	return fmt.Sprintf("%d:%d: warning: %s [-W%s]", d.Line, d.Column, d.Message, d.Name)
}

// SourceFileRecord tracks the name and content of a single source file.
type SourceFileRecord struct {
	Name    string
	Content []rune
}

const (
	cRed    = "\033[31m"
	cYellow = "\033[33m"
	cGreen  = "\033[32m"
	cNone   = "\033[0m"
)

// Reporter prints errors and warnings against one source file.
type Reporter struct {
	out   io.Writer
	file  SourceFileRecord
	color bool
}

// NewReporter colours its output only when out is a terminal.
func NewReporter(out io.Writer, file SourceFileRecord) *Reporter {
	color := false
	if f, ok := out.(*os.File); ok {
		color = term.IsTerminal(int(f.Fd()))
	}
	return &Reporter{out: out, file: file, color: color}
}

func (r *Reporter) paint(code, s string) string {
	if !r.color {
		return s
	}
	return code + s + cNone
}

// Error prints a fatal error. Errors carrying a source position get the
// file:line:col prefix and a caret line.
func (r *Reporter) Error(err error) {
	var pos Positioned
	if !errors.As(err, &pos) {
		fmt.Fprintf(r.out, "%s: %s %s\n", r.file.Name, r.paint(cRed, "error:"), err)
		return
	}
	msg := err.Error()
	var m messager
	if errors.As(err, &m) {
		msg = m.Message()
	}
	line, col, length := pos.Position()
	fmt.Fprintf(r.out, "%s:%d:%d: %s %s\n", r.file.Name, line, col, r.paint(cRed, "error:"), msg)
	r.printErrorLine(line, col, length)
}

// Warn prints a warning diagnostic.
func (r *Reporter) Warn(d Diagnostic) {
	fmt.Fprintf(r.out, "%s:%d:%d: %s %s [-W%s]\n", r.file.Name, d.Line, d.Column, r.paint(cYellow, "warning:"), d.Message, d.Name)
	r.printErrorLine(d.Line, d.Column, d.Len)
}

// Info prints a progress line.
func (r *Reporter) Info(format string, args ...interface{}) {
	fmt.Fprintf(r.out, "mplc: info: "+format+"\n", args...)
}

// printErrorLine prints the source line and a caret indicating the error position
func (r *Reporter) printErrorLine(lineNum, col, length int) {
	content := r.file.Content
	if lineNum <= 0 || col <= 0 || len(content) == 0 {
		return
	}

	lineStart := 0
	for i, ch := range content {
		if lineNum <= 1 {
			break
		}
		if ch == '\n' {
			lineNum--
			lineStart = i + 1
		}
	}
	if lineNum > 1 {
		return
	}

	lineEnd := len(content)
	for i := lineStart; i < len(content); i++ {
		if content[i] == '\n' {
			lineEnd = i
			break
		}
	}

	fmt.Fprintf(r.out, "  %s\n", strings.TrimRight(string(content[lineStart:lineEnd]), "\r"))
	caret := "^"
	if length > 1 {
		caret += strings.Repeat("~", length-1)
	}
	fmt.Fprintf(r.out, "  %s%s\n", strings.Repeat(" ", col-1), r.paint(cGreen, caret))
}
