package log

import (
	"runtime/debug"
	"strings"

	"github.com/rs/zerolog"
)

// Panic renders a recovered panic value with the goroutine stack, trimmed of
// the recover and logging frames at the top.
func Panic(recovered any) func(e *zerolog.Event) {
	return func(e *zerolog.Event) {
		stack := strings.Split(string(debug.Stack()), "\n")
		if len(stack) > 9 {
			stack = stack[9:]
		}
		e.Dict(
			"panic",
			zerolog.
				Dict().
				Any("content", recovered).
				Str("stack_traces", strings.Join(stack, "\n")),
		)
	}
}
