// Package debug provides an environment-gated trace log. Set
// ICEFETCH_DEBUG_LOG to a file name to capture traces, or to "-" to write
// them to stderr.
package debug

import (
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"runtime"
)

var opts struct {
	isEnabled bool
	logger    *log.Logger
}

// make sure that all the initialization happens before the init() functions
// are called, cf https://golang.org/ref/spec#Package_initialization
var _ = initDebug()

func initDebug() bool {
	debugfile := os.Getenv("ICEFETCH_DEBUG_LOG")
	if debugfile == "" {
		return false
	}

	if debugfile == "-" {
		opts.logger = log.New(os.Stderr, "", log.LstdFlags)
	} else {
		f, err := os.OpenFile(debugfile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			fmt.Fprintf(os.Stderr, "unable to open debug log file: %v\n", err)
			os.Exit(2)
		}
		opts.logger = log.New(f, "", log.LstdFlags)
	}

	opts.isEnabled = true
	fmt.Fprintf(os.Stderr, "debug enabled\n")

	return true
}

// taken from https://github.com/VividCortex/trace
func goroutineNum() int {
	b := make([]byte, 20)
	runtime.Stack(b, false)
	var num int

	fmt.Sscanf(string(b), "goroutine %d ", &num)
	return num
}

// taken from https://github.com/VividCortex/trace
func getPosition() (fn, dir, file string, line int) {
	pc, file, line, ok := runtime.Caller(2)
	if !ok {
		return "", "", "", 0
	}

	dirname, filename := filepath.Base(filepath.Dir(file)), filepath.Base(file)

	Func := runtime.FuncForPC(pc)

	return path.Base(Func.Name()), dirname, filename, line
}

// Log prints a message to the debug log (if debug is enabled).
func Log(f string, args ...interface{}) {
	if !opts.isEnabled {
		return
	}

	fn, dir, file, line := getPosition()
	goroutine := goroutineNum()

	if len(f) == 0 || f[len(f)-1] != '\n' {
		f += "\n"
	}

	type Shortener interface {
		Str() string
	}

	for i, item := range args {
		if shortener, ok := item.(Shortener); ok {
			args[i] = shortener.Str()
		}
	}

	pos := fmt.Sprintf("%s/%s:%d", dir, file, line)

	opts.logger.Printf(fmt.Sprintf("%s\t%s\t%d\t%s", pos, fn, goroutine, f), args...)
}

// DumpStacktrace returns the stacktraces of all running goroutines.
func DumpStacktrace() string {
	buf := make([]byte, 128*1024)

	for {
		l := runtime.Stack(buf, true)
		if l < len(buf) {
			return string(buf[:l])
		}
		buf = make([]byte, len(buf)*2)
	}
}
