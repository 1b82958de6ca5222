// Package interactive provides the interactive command-line interface
// for ba-assistant.
package interactive

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/broadcast-assistant/ba-go/pkg/assistant"
	"github.com/broadcast-assistant/ba-go/pkg/discovery"
)

// Shell handles interactive mode for ba-assistant.
type Shell struct {
	model *assistant.Model
	rl    *readline.Instance
	out   io.Writer

	unsubscribe func()
}

// New creates a shell reading commands from the terminal. Notifications
// are echoed to the console while the shell runs.
func New(model *assistant.Model) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "assistant> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	s := newShell(model, rl.Stdout())
	s.rl = rl
	return s, nil
}

func newShell(model *assistant.Model, out io.Writer) *Shell {
	s := &Shell{model: model, out: out}
	s.unsubscribe = model.SubscribeAll(s.handleNotification)
	return s
}

func completer() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("scan",
			readline.PcItem("sinks"),
			readline.PcItem("sources"),
			readline.PcItem("stop"),
		),
		readline.PcItem("sources"),
		readline.PcItem("sinks"),
		readline.PcItem("add"),
		readline.PcItem("remove"),
		readline.PcItem("connect"),
		readline.PcItem("disconnect"),
		readline.PcItem("code"),
		readline.PcItem("uri"),
		readline.PcItem("heartbeat"),
		readline.PcItem("reset"),
		readline.PcItem("stats"),
		readline.PcItem("help"),
		readline.PcItem("quit"),
	)
}

// Stdout returns a writer that coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (s *Shell) Stdout() io.Writer {
	return s.out
}

// Run starts the interactive command loop. It calls cancel when the user
// quits or closes the input.
func (s *Shell) Run(ctx context.Context, cancel context.CancelFunc) {
	defer s.rl.Close()
	defer s.unsubscribe()

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			fmt.Fprintln(s.out, "Exiting...")
			cancel()
			return
		}

		if s.Execute(line) {
			cancel()
			return
		}
	}
}

// Execute runs one command line. It returns true when the user asked to
// quit.
func (s *Shell) Execute(line string) (quit bool) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		s.printHelp()
	case "scan":
		s.cmdScan(args)
	case "sources", "src":
		s.cmdSources()
	case "sinks":
		s.cmdSinks()
	case "add":
		s.cmdAdd(args)
	case "remove":
		s.report("remove source", s.model.RemoveSource())
	case "connect":
		s.cmdSink(args, "connect", s.model.ConnectSink)
	case "disconnect":
		s.cmdSink(args, "disconnect", s.model.DisconnectSink)
	case "code":
		s.cmdCode(args)
	case "uri":
		s.cmdURI(args)
	case "heartbeat", "hb":
		s.report("heartbeat", s.model.StartHeartbeat())
	case "reset":
		s.report("reset", s.model.Reset())
	case "stats":
		s.cmdStats()
	case "quit", "exit", "q":
		fmt.Fprintln(s.out, "Exiting...")
		return true
	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, `
Broadcast Assistant Commands:
  Scanning:
    scan sinks         - Scan for sinks
    scan sources       - Scan for broadcast sources
    scan stop          - Stop scanning

  Registries:
    sources            - List known sources
    sinks              - List known sinks
    stats              - Show traffic counters

  Control:
    connect <n>        - Connect sink number n
    disconnect <n>     - Disconnect sink number n
    add <n>            - Tell connected sinks to sync to source number n
    remove             - Tell connected sinks to drop their source
    code <code> [id]   - Send broadcast code (text or hex:0011..) for source id (default 0)
    uri <uri>          - Add a source from a Broadcast Audio URI
    heartbeat          - Ask the firmware to start heartbeats
    reset              - Reset the firmware and clear registries

  General:
    help               - Show this help
    quit               - Exit`)
}

func (s *Shell) report(action string, err error) {
	if err != nil {
		fmt.Fprintf(s.out, "Error: %s: %v\n", action, err)
		return
	}
	fmt.Fprintf(s.out, "Sent %s\n", action)
}

func (s *Shell) cmdScan(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.out, "Usage: scan sinks|sources|stop")
		return
	}
	switch strings.ToLower(args[0]) {
	case "sinks":
		s.report("start sink scan", s.model.StartSinkScan())
	case "sources":
		s.report("start source scan", s.model.StartSourceScan())
	case "stop":
		s.report("stop scan", s.model.StopScan())
	default:
		fmt.Fprintln(s.out, "Usage: scan sinks|sources|stop")
	}
}

func (s *Shell) cmdSources() {
	sources := s.model.Sources()
	if len(sources) == 0 {
		fmt.Fprintln(s.out, "No sources")
		return
	}

	fmt.Fprintf(s.out, "\nSources (%d):\n", len(sources))
	fmt.Fprintln(s.out, "-------------------------------------------")
	for i := range sources {
		src := &sources[i]
		marker := " "
		if src.State == assistant.SourceStateSelected {
			marker = "*"
		}
		fmt.Fprintf(s.out, "%s %2d. %s [%s]\n", marker, i+1, src.DisplayName(), src.Address)
		if src.BroadcastID != nil {
			fmt.Fprintf(s.out, "       Broadcast ID: %06X\n", *src.BroadcastID)
		}
		if src.RSSI != nil {
			fmt.Fprintf(s.out, "       RSSI: %d dBm\n", *src.RSSI)
		}
		if len(src.BASE) > 0 {
			fmt.Fprintf(s.out, "       BASE: %d bytes\n", len(src.BASE))
		}
	}
}

func (s *Shell) cmdSinks() {
	sinks := s.model.Sinks()
	if len(sinks) == 0 {
		fmt.Fprintln(s.out, "No sinks")
		return
	}

	fmt.Fprintf(s.out, "\nSinks (%d):\n", len(sinks))
	fmt.Fprintln(s.out, "-------------------------------------------")
	for i, sink := range sinks {
		fmt.Fprintf(s.out, "  %2d. %s [%s]\n", i+1, sink.DisplayName(), sink.Address)
		fmt.Fprintf(s.out, "       State: %s\n", sink.ConnectionState)
		if sink.RSSI != nil {
			fmt.Fprintf(s.out, "       RSSI: %d dBm\n", *sink.RSSI)
		}
		if src, ok := s.model.SourceOf(sink); ok {
			fmt.Fprintf(s.out, "       Source: %s\n", src.DisplayName())
		}
	}
}

func (s *Shell) cmdAdd(args []string) {
	sources := s.model.Sources()
	i, err := parseIndex(args, len(sources))
	if err != nil {
		fmt.Fprintf(s.out, "Usage: add <n> (%v)\n", err)
		return
	}
	s.report("add source "+sources[i].DisplayName(), s.model.AddSource(sources[i]))
}

func (s *Shell) cmdSink(args []string, action string, fn func(assistant.Sink) error) {
	sinks := s.model.Sinks()
	i, err := parseIndex(args, len(sinks))
	if err != nil {
		fmt.Fprintf(s.out, "Usage: %s <n> (%v)\n", action, err)
		return
	}
	s.report(action+" "+sinks[i].DisplayName(), fn(sinks[i]))
}

func (s *Shell) cmdCode(args []string) {
	if len(args) < 1 || len(args) > 2 {
		fmt.Fprintln(s.out, "Usage: code <text|hex:..> [source-id]")
		return
	}
	code, err := parseBroadcastCode(args[0])
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	var sourceID uint8
	if len(args) == 2 {
		v, err := strconv.ParseUint(args[1], 0, 8)
		if err != nil {
			fmt.Fprintf(s.out, "Error: invalid source id %q\n", args[1])
			return
		}
		sourceID = uint8(v)
	}
	s.report("broadcast code", s.model.SendBroadcastCode(sourceID, code))
}

func (s *Shell) cmdURI(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.out, "Usage: uri <BLUETOOTH:...;;>")
		return
	}
	tokens, err := discovery.ParseBroadcastAudioURI(args[0])
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	if err := s.model.AddSourceFromBroadcastAudioURI(tokens); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
	}
}

func (s *Shell) cmdStats() {
	st := s.model.Stats()
	link := "down"
	if s.model.Connected() {
		link = "up"
	}
	fmt.Fprintf(s.out, "Link:            %s\n", link)
	fmt.Fprintf(s.out, "Sources:         %d\n", len(s.model.Sources()))
	fmt.Fprintf(s.out, "Sinks:           %d\n", len(s.model.Sinks()))
	fmt.Fprintf(s.out, "Messages:        %d\n", st.MessagesHandled)
	fmt.Fprintf(s.out, "Commands sent:   %d\n", st.CommandsSent)
	fmt.Fprintf(s.out, "Send failures:   %d\n", st.SendFailures)
	for reason, n := range st.Dropped {
		fmt.Fprintf(s.out, "Dropped %-8s %d\n", string(reason)+":", n)
	}
}

func (s *Shell) handleNotification(n assistant.Notification) {
	switch {
	case n.Source != nil:
		fmt.Fprintf(s.out, "[EVENT] %s: %s [%s]\n", n.Name, n.Source.DisplayName(), n.Source.Address)
	case n.Sink != nil:
		fmt.Fprintf(s.out, "[EVENT] %s: %s [%s] %s\n", n.Name, n.Sink.DisplayName(), n.Sink.Address, n.Sink.ConnectionState)
	case n.Name == assistant.HeartbeatReceived:
		fmt.Fprintf(s.out, "[EVENT] %s #%d\n", n.Name, n.Counter)
	default:
		fmt.Fprintf(s.out, "[EVENT] %s\n", n.Name)
	}
}

// parseIndex parses a 1-based list position into a slice index.
func parseIndex(args []string, n int) (int, error) {
	if len(args) != 1 {
		return 0, errors.New("missing number")
	}
	v, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", args[0])
	}
	if v < 1 || v > n {
		return 0, fmt.Errorf("number out of range 1..%d", n)
	}
	return v - 1, nil
}

// parseBroadcastCode accepts plain text or hex with a "hex:" prefix.
func parseBroadcastCode(arg string) ([]byte, error) {
	if rest, ok := strings.CutPrefix(arg, "hex:"); ok {
		code, err := hex.DecodeString(rest)
		if err != nil {
			return nil, fmt.Errorf("invalid hex broadcast code: %w", err)
		}
		return code, nil
	}
	return []byte(arg), nil
}
