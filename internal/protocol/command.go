package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Command is one outbound instruction: a verb plus positional arguments.
// Arguments are already range-checked by the caller.
type Command struct {
	Verb string
	Args []string
}

// NewCommand renders args with their default decimal text form.
func NewCommand(verb string, args ...any) Command {
	c := Command{Verb: verb}
	for _, a := range args {
		c.Args = append(c.Args, formatArg(a))
	}
	return c
}

func formatArg(a any) string {
	switch v := a.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// String returns the command line without terminator.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Verb
	}
	return c.Verb + " " + strings.Join(c.Args, " ")
}

// Frame returns the bytes written on the wire.
func (c Command) Frame(terminator string) []byte {
	return []byte(c.String() + terminator)
}

// ParseCommand splits a raw line into verb and arguments.
func ParseCommand(line string) Command {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}
	}
	return Command{Verb: fields[0], Args: fields[1:]}
}
