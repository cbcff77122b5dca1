package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/agisilaos/asana-planner/internal/output"
)

// promptLine asks for one line on an interactive terminal. Non-interactive
// callers get a usage error naming the flag to use instead.
func promptLine(ctx *Context, label, alternative string) (string, error) {
	if ctx.Global.NoInput {
		return "", usageError(fmt.Errorf("input required; use %s or drop --no-input", alternative))
	}
	if !isTTYReader(ctx.Stdin) {
		return "", usageError(fmt.Errorf("stdin is not a TTY; use %s", alternative))
	}
	fmt.Fprintf(ctx.Stderr, "%s: ", label)
	scanner := bufio.NewScanner(ctx.Stdin)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", errors.New("no input")
	}
	return strings.TrimSpace(scanner.Text()), nil
}

func readAllTrim(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func isTTYReader(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && output.IsTTY(f)
}
