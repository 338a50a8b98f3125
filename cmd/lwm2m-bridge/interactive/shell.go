// Package interactive provides the operator shell of lwm2m-bridge.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/lwm2m-bridge/lwm2m-go/pkg/downlink"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/session"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/wire"
)

// ErrUsage is returned for malformed command lines.
var ErrUsage = errors.New("usage")

// Command is one parsed downlink command.
type Command struct {
	Endpoint string
	Input    downlink.Input
}

// usageFor lists the argument shape per operation verb.
var usageFor = map[string]string{
	"read":     "read <endpoint> <path> [format]",
	"discover": "discover <endpoint> <path>",
	"observe":  "observe <endpoint> <path> [format]",
	"cancel":   "cancel <endpoint> <path>",
	"execute":  "execute <endpoint> <path> [argument]",
	"write":    "write <endpoint> <path> <value> [format]",
	"update":   "update <endpoint> <path> <value> [format]",
	"attrs":    "attrs <endpoint> <path> [pmin=1&pmax=60...]",
}

var verbOps = map[string]wire.Operation{
	"read":     wire.OpRead,
	"discover": wire.OpDiscover,
	"observe":  wire.OpObserve,
	"cancel":   wire.OpCancelObserve,
	"execute":  wire.OpExecute,
	"write":    wire.OpWriteReplace,
	"update":   wire.OpWriteUpdate,
	"attrs":    wire.OpWriteAttributes,
}

// ParseCommand parses a downlink command line. Verbs are the keys of the
// help listing; any operation name accepted by wire.ParseOperation works too.
func ParseCommand(fields []string) (Command, error) {
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("%w: empty command", ErrUsage)
	}
	verb := strings.ToLower(fields[0])
	op, ok := verbOps[verb]
	if !ok {
		if op, ok = wire.ParseOperation(verb); !ok {
			return Command{}, fmt.Errorf("unknown command %q", fields[0])
		}
		verb = canonicalVerb(op)
	}
	args := fields[1:]
	if len(args) < 2 {
		return Command{}, fmt.Errorf("%w: %s", ErrUsage, usageFor[verb])
	}

	cmd := Command{Endpoint: args[0], Input: downlink.Input{Op: op, Path: args[1]}}
	rest := args[2:]
	switch op {
	case wire.OpRead, wire.OpObserve:
		if len(rest) > 0 {
			cmd.Input.Format = rest[0]
		}
	case wire.OpExecute:
		if len(rest) > 0 {
			cmd.Input.Value = strings.Join(rest, " ")
		}
	case wire.OpWriteReplace, wire.OpWriteUpdate:
		if len(rest) == 0 {
			return Command{}, fmt.Errorf("%w: %s", ErrUsage, usageFor[verb])
		}
		cmd.Input.Value = rest[0]
		if len(rest) > 1 {
			cmd.Input.Format = rest[1]
		}
	case wire.OpWriteAttributes:
		if len(rest) > 0 {
			cmd.Input.AttributeQuery = rest[0]
		}
	}
	return cmd, nil
}

func canonicalVerb(op wire.Operation) string {
	for verb, o := range verbOps {
		if o == op {
			return verb
		}
	}
	return op.String()
}

// Shell reads operator commands and sends them to registered devices.
type Shell struct {
	registry *session.Registry
	service  *downlink.Service
	timeout  time.Duration
	rl       *readline.Instance
}

// New creates a shell. Bind it before Run.
func New(timeout time.Duration) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "lwm2m> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Shell{timeout: timeout, rl: rl}, nil
}

// Bind sets the registry commands resolve endpoints in and the service
// they are sent through.
func (s *Shell) Bind(registry *session.Registry, service *downlink.Service) {
	s.registry = registry
	s.service = service
}

// Stdout returns a writer that does not disturb the prompt.
func (s *Shell) Stdout() io.Writer {
	return s.rl.Stdout()
}

// Run reads commands until EOF, "quit" or ctx ends.
func (s *Shell) Run(ctx context.Context, cancel context.CancelFunc) {
	defer s.rl.Close()
	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch strings.ToLower(fields[0]) {
		case "help", "?":
			s.printHelp()
		case "devices", "status":
			s.cmdStatus()
		case "values":
			s.cmdValues(fields[1:])
		case "quit", "exit", "q":
			cancel()
			return
		default:
			s.cmdSend(ctx, fields)
		}
	}
}

func (s *Shell) cmdSend(ctx context.Context, fields []string) {
	out := s.rl.Stdout()
	cmd, err := ParseCommand(fields)
	if err != nil {
		fmt.Fprintln(out, err)
		return
	}
	c, ok := s.registry.ClientByEndpoint(cmd.Endpoint)
	if !ok {
		fmt.Fprintf(out, "unknown endpoint %q\n", cmd.Endpoint)
		return
	}

	err = s.service.Send(ctx, c, cmd.Input, s.timeout, func(o downlink.Outcome) {
		fmt.Fprintln(out, FormatOutcome(cmd.Endpoint, o))
	})
	if err != nil {
		fmt.Fprintf(out, "not sent: %v\n", err)
	}
}

// FormatOutcome renders an outcome as one line.
func FormatOutcome(endpoint string, o downlink.Outcome) string {
	path := o.Request.Path()
	op := o.Request.Operation()
	switch o.Kind {
	case downlink.OutcomeTransportError:
		return fmt.Sprintf("%s %s %s: %s (%v)", endpoint, op, path, o.Kind, o.Err)
	case downlink.OutcomeProtocolFailure:
		code := o.Code()
		line := fmt.Sprintf("%s %s %s: %s %s", endpoint, op, path, code, code.Name())
		if msg := o.Response.Message(); msg != "" {
			line += " " + msg
		}
		return line
	}

	code := o.Code()
	line := fmt.Sprintf("%s %s %s: %s %s (%s)", endpoint, op, path, code, code.Name(), o.Elapsed.Round(time.Microsecond))
	var content wire.Content
	switch r := o.Response.(type) {
	case wire.ReadResponse:
		content = r.Content
	case wire.ObserveResponse:
		content = r.Content
		if r.Observation != nil {
			line += " observation=" + r.Observation.ID
		}
	case wire.DiscoverResponse:
		return line + "\n  " + strings.Join(r.Links, "\n  ")
	}
	for _, p := range content.Paths() {
		line += fmt.Sprintf("\n  %s = %v", p, content[p])
	}
	return line
}

func (s *Shell) cmdStatus() {
	out := s.rl.Stdout()
	regs := s.registry.Registrations()
	if len(regs) == 0 {
		fmt.Fprintln(out, "no registered devices")
		return
	}
	for _, reg := range regs {
		c, ok := s.registry.Client(reg.ID)
		if !ok {
			continue
		}
		fmt.Fprintf(out, "%-24s id=%s objects=%v pending=%d observations=%d values=%d\n",
			reg.Endpoint, reg.ID, reg.ObjectIDs(), c.PendingCount(), len(c.Observations()), len(c.Values()))
	}
}

func (s *Shell) cmdValues(args []string) {
	out := s.rl.Stdout()
	if len(args) == 0 {
		fmt.Fprintln(out, "usage: values <endpoint> [path]")
		return
	}
	c, ok := s.registry.ClientByEndpoint(args[0])
	if !ok {
		fmt.Fprintf(out, "unknown endpoint %q\n", args[0])
		return
	}
	values := c.Values()
	prefix := ""
	if len(args) > 1 {
		prefix = args[1]
	}
	for _, p := range values.Paths() {
		if strings.HasPrefix(p, prefix) {
			fmt.Fprintf(out, "%s = %v\n", p, values[p])
		}
	}
}

func (s *Shell) printHelp() {
	out := s.rl.Stdout()
	fmt.Fprintln(out, "Commands:")
	for _, verb := range []string{"read", "discover", "observe", "cancel", "execute", "write", "update", "attrs"} {
		fmt.Fprintln(out, "  "+usageFor[verb])
	}
	fmt.Fprintln(out, "  devices")
	fmt.Fprintln(out, "  values <endpoint> [path]")
	fmt.Fprintln(out, "  quit")
}
