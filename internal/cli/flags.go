package cli

import (
	"flag"
	"io"
	"strings"
)

type multiValue []string

func (m *multiValue) String() string {
	return strings.Join(*m, ",")
}

func (m *multiValue) Set(value string) error {
	if value == "" {
		return nil
	}
	*m = append(*m, value)
	return nil
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func bindHelpFlag(fs *flag.FlagSet, help *bool) {
	fs.BoolVar(help, "help", false, "Show help")
	fs.BoolVar(help, "h", false, "Show help")
}

// parseFlagSetInterspersed lets flags follow positional arguments. After it
// returns, fs.Args() holds the positionals in their original order.
func parseFlagSetInterspersed(fs *flag.FlagSet, args []string) error {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return err
		}
		rest := fs.Args()
		if len(rest) == 0 {
			break
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
	return fs.Parse(append([]string{"--"}, positional...))
}

func isHelpArg(arg string) bool {
	return arg == "help" || arg == "-h" || arg == "--help"
}

func usageError(err error) error {
	return &CodeError{Code: exitUsage, Err: err}
}
