// Package hookrun implements the five-step hook contract: read
// stdin with a timeout, execute the hook body, write well-formed output,
// always terminate with success, and drain stdout before exiting.
package hookrun

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/Elizarfish/infinite-context/internal/logging"
)

// minStdinTimeout is the floor on how long Run waits for stdin before
// giving up and emitting no context.
const minStdinTimeout = 500 * time.Millisecond

// maxPlainTextBytes is PreCompact's output ceiling.
const maxPlainTextBytes = 2000

// Output is what a hook body hands back to Run for emission to stdout.
type Output struct {
	// AdditionalContext, if non-empty, is wrapped together with EventName
	// in the {"hookSpecificOutput": {...}} envelope.
	EventName         string
	AdditionalContext string
	// PlainText, if non-empty, is written verbatim (PreCompact only).
	PlainText string
}

// Handler is a hook body: it receives the raw stdin bytes (already
// tolerant of missing/null/non-object input; nil means "no input") and
// returns what to emit.
type Handler func(input json.RawMessage) (Output, error)

// Run executes the full hook contract for category (used to tag stderr
// diagnostics) and handler, and always terminates the process with exit
// code 0.
func Run(category logging.Category, handler Handler) {
	log := logging.Get(category)
	requestID := uuid.NewString()

	defer func() {
		if r := recover(); r != nil {
			log.Error("[req=%s] recovered from panic: %v", requestID, r)
		}
		os.Exit(0)
	}()

	raw, ok := readStdinWithTimeout(minStdinTimeout)
	if !ok {
		log.Debug("[req=%s] no usable input on stdin", requestID)
		return
	}

	out, err := handler(raw)
	if err != nil {
		log.Error("[req=%s] hook body error (continuing, exit 0): %v", requestID, err)
		return
	}

	write(log, requestID, out)
}

// readStdinWithTimeout reads the whole of standard input on a background
// goroutine and resolves exactly once on whichever happens first: EOF,
// error, or the timeout. A timed-out read still returns ok=false; the
// goroutine is abandoned (the process exits regardless) rather than joined,
// since os.Stdin has no cooperative cancellation.
func readStdinWithTimeout(timeout time.Duration) (json.RawMessage, bool) {
	type result struct {
		data []byte
		err  error
	}
	ch := make(chan result, 1)

	go func() {
		data, err := io.ReadAll(os.Stdin)
		ch <- result{data, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil || len(r.data) == 0 {
			return nil, false
		}
		var probe interface{}
		if err := json.Unmarshal(r.data, &probe); err != nil {
			return nil, false
		}
		if probe == nil {
			return nil, false
		}
		if _, isObject := probe.(map[string]interface{}); !isObject {
			return nil, false
		}
		return r.data, true
	case <-time.After(timeout):
		return nil, false
	}
}

// write emits out to stdout in its envelope or plain-text form and drains
// (flushes) the writer before Run's exit-0 deferred call fires.
func write(log *logging.Logger, requestID string, out Output) {
	w := bufio.NewWriter(os.Stdout)
	defer func() {
		if err := w.Flush(); err != nil {
			log.Error("[req=%s] failed to drain stdout: %v", requestID, err)
		}
	}()

	if out.PlainText != "" {
		text := out.PlainText
		if len(text) > maxPlainTextBytes {
			text = text[:maxPlainTextBytes]
		}
		fmt.Fprint(w, text)
		return
	}

	if out.AdditionalContext == "" {
		return
	}

	envelope := map[string]interface{}{
		"hookSpecificOutput": map[string]interface{}{
			"hookEventName":     out.EventName,
			"additionalContext": out.AdditionalContext,
		},
	}
	encoded, err := json.Marshal(envelope)
	if err != nil {
		log.Error("[req=%s] failed to marshal hook output: %v", requestID, err)
		return
	}
	w.Write(encoded)
}
