// Command tio-route converts routing paths and sends single TIO packets.
//
//	tio-route parse /3/1/
//	tio-route format 0301
//	tio-route send -to 127.0.0.1:7855 -type rpc_request -route /3/1/ -payload dev.name
package main

import (
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/appnet-org/tio/pkg/logging"
	"github.com/appnet-org/tio/pkg/packet"
	"github.com/appnet-org/tio/pkg/relay"
	"github.com/appnet-org/tio/pkg/transport"
	"go.uber.org/zap"
)

var errUsage = errors.New("usage: tio-route parse <path> | format <hex> | send [flags]")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "tio-route: %v\n", err)
		if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "parse":
		if len(args) != 2 {
			return errUsage
		}
		return parseCmd(args[1], out)
	case "format":
		if len(args) != 2 {
			return errUsage
		}
		return formatCmd(args[1], out)
	case "send":
		return sendCmd(args[1:], out)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
}

func parseCmd(path string, out io.Writer) error {
	var hops [packet.MaxRoutingSize]byte
	n, err := packet.ParseRoutingPath(path, hops[:])
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, hex.EncodeToString(hops[:n]))
	return err
}

func formatCmd(s string, out io.Writer) error {
	hops, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("decode hops: %w", err)
	}
	var buf [packet.RoutingFormatBufSize]byte
	n, err := packet.FormatRoutingPath(hops, buf[:])
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(buf[:n]))
	return err
}

type sendOptions struct {
	to      string
	typ     string
	route   string
	via     string
	payload string
	wait    time.Duration
}

func sendCmd(args []string, out io.Writer) error {
	var opts sendOptions
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVar(&opts.to, "to", "127.0.0.1:7855", "relay or device address")
	fs.StringVar(&opts.typ, "type", "rpc_request", "packet type name or number")
	fs.StringVar(&opts.route, "route", "", "routing trailer, last hop popped first")
	fs.StringVar(&opts.via, "via", "", "relays to traverse, first relay first")
	fs.StringVar(&opts.payload, "payload", "", "payload text")
	fs.DurationVar(&opts.wait, "wait", 0, "wait this long for one reply")
	if err := fs.Parse(args); err != nil {
		return err
	}

	p, err := buildPacket(opts)
	if err != nil {
		return err
	}

	t, err := transport.NewUDPTransport("")
	if err != nil {
		return err
	}
	defer t.Close()

	if err := t.Send(opts.to, p); err != nil {
		return fmt.Errorf("send to %s: %w", opts.to, err)
	}
	logging.Debug("Sent packet", zap.String("to", opts.to), zap.Stringer("packet", p))
	if _, err := fmt.Fprintf(out, "sent %s\n", p); err != nil {
		return err
	}

	if opts.wait <= 0 {
		return nil
	}
	if err := t.SetReadDeadline(time.Now().Add(opts.wait)); err != nil {
		return err
	}
	reply, from, err := t.Receive()
	if err != nil {
		return fmt.Errorf("wait for reply: %w", err)
	}
	_, err = fmt.Fprintf(out, "reply from %s: %s %q\n", from, reply, reply.PayloadData())
	return err
}

func buildPacket(opts sendOptions) (*packet.Packet, error) {
	if opts.route != "" && opts.via != "" {
		return nil, errors.New("-route and -via are mutually exclusive")
	}

	typ, err := parseType(opts.typ)
	if err != nil {
		return nil, err
	}
	p, err := packet.New(typ, []byte(opts.payload))
	if err != nil {
		return nil, err
	}

	var route packet.Route
	switch {
	case opts.via != "":
		route, err = relay.ParseTraversal(opts.via)
	default:
		route, err = packet.ParseRoute(opts.route)
	}
	if err != nil {
		return nil, err
	}
	if err := p.SetRouting(route); err != nil {
		return nil, err
	}
	return p, nil
}

// parseType accepts a registered type name, "streamN", or a number.
func parseType(s string) (packet.Type, error) {
	t, ok := packet.DefaultRegistry.Lookup(s)
	if !ok {
		n, err := strconv.ParseUint(s, 10, 8)
		if err != nil {
			return 0, fmt.Errorf("unknown packet type %q", s)
		}
		t = packet.Type(n)
	}
	if t == packet.TypeInvalid {
		return 0, fmt.Errorf("packet type %q is reserved", s)
	}
	return t, nil
}
