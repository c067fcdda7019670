package cli

import (
	"errors"
	"fmt"
	"io"
)

// ExitCoder is implemented by errors that choose the process exit code
type ExitCoder interface {
	ExitCode() int
}

// ExitCode maps err to a process exit code: 0 for nil, the error's own code
// when it has one, 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var coder ExitCoder
	if errors.As(err, &coder) {
		if code := coder.ExitCode(); code != 0 {
			return code
		}
	}
	return 1
}

// printError writes a fatal error; debug adds every wrapped cause with its type
func printError(w io.Writer, err error, debug bool) {
	fmt.Fprintf(w, "error: %v\n", err)
	if !debug {
		return
	}
	for depth, cur := 0, err; cur != nil; depth++ {
		fmt.Fprintf(w, "  #%d %T: %v\n", depth, cur, cur)
		switch next := cur.(type) {
		case interface{ Unwrap() error }:
			cur = next.Unwrap()
		case interface{ Unwrap() []error }:
			for _, e := range next.Unwrap() {
				fmt.Fprintf(w, "  #%d+ %T: %v\n", depth, e, e)
			}
			cur = nil
		default:
			cur = nil
		}
	}
}
