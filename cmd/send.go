package cmd

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/mstrov/stripd/internal/audio"
	"github.com/mstrov/stripd/internal/protocol"
)

// CreateSendCmd creates the send command: a small bench client that builds
// one binary protocol message, sends it to a running device and prints any
// reply line.
func CreateSendCmd() *cobra.Command {
	var addr string
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "send <command> [args...]",
		Short: "Send one control command to a device",
		Long: `Builds a binary protocol message and sends it to a running device.

Commands:
  color <r> <g> <b>        Set static color (0-255 each)
  mode <id>                Switch visual mode
  brightness <level>       Set brightness (0-255)
  audio <b0> ... <b15>     Send one 16-band audio frame
  reconfigure <ssid> <password>
                           Replace network credentials (setup context only)`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			msg, hasReply, err := buildMessage(args)
			if err != nil {
				return err
			}

			conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
			if err != nil {
				return fmt.Errorf("dial %s: %w", addr, err)
			}
			defer conn.Close()

			if _, err := conn.Write(msg); err != nil {
				return fmt.Errorf("write: %w", err)
			}

			// Silent commands still surface an ERR line on validation
			// failure, so listen briefly either way.
			timeout := wait
			if hasReply {
				timeout = 5 * time.Second
			}
			if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
				return err
			}
			line, err := bufio.NewReader(conn).ReadString('\n')
			if err != nil {
				if hasReply {
					return fmt.Errorf("no reply: %w", err)
				}
				return nil
			}
			fmt.Fprint(os.Stdout, line)
			return nil
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "127.0.0.1:7777", "Device control address")
	cmd.Flags().DurationVar(&wait, "wait", 500*time.Millisecond, "How long to wait for an error reply on silent commands")
	return cmd
}

func buildMessage(args []string) (msg []byte, hasReply bool, err error) {
	byteArg := func(s string) (byte, error) {
		v, convErr := strconv.ParseUint(s, 10, 8)
		if convErr != nil {
			return 0, fmt.Errorf("%q is not a byte value: %w", s, convErr)
		}
		return byte(v), nil
	}

	switch cmd, rest := args[0], args[1:]; cmd {
	case "color":
		if len(rest) != 3 {
			return nil, false, fmt.Errorf("color wants 3 args, got %d", len(rest))
		}
		msg = []byte{protocol.OpSetColor}
		for _, a := range rest {
			b, argErr := byteArg(a)
			if argErr != nil {
				return nil, false, argErr
			}
			msg = append(msg, b)
		}
		return msg, false, nil

	case "mode":
		if len(rest) != 1 {
			return nil, false, fmt.Errorf("mode wants 1 arg, got %d", len(rest))
		}
		b, argErr := byteArg(rest[0])
		if argErr != nil {
			return nil, false, argErr
		}
		return []byte{protocol.OpSetMode, b}, false, nil

	case "brightness":
		if len(rest) != 1 {
			return nil, false, fmt.Errorf("brightness wants 1 arg, got %d", len(rest))
		}
		b, argErr := byteArg(rest[0])
		if argErr != nil {
			return nil, false, argErr
		}
		return []byte{protocol.OpSetBrightness, b}, false, nil

	case "audio":
		if len(rest) != audio.NumBands {
			return nil, false, fmt.Errorf("audio wants %d band values, got %d", audio.NumBands, len(rest))
		}
		msg = []byte{protocol.OpAudioFrame}
		for _, a := range rest {
			b, argErr := byteArg(a)
			if argErr != nil {
				return nil, false, argErr
			}
			msg = append(msg, b)
		}
		return msg, false, nil

	case "reconfigure":
		if len(rest) != 2 {
			return nil, false, fmt.Errorf("reconfigure wants ssid and password, got %d args", len(rest))
		}
		ssid, pass := rest[0], rest[1]
		msg = []byte{protocol.OpReconfigure, byte(len(ssid)), byte(len(pass))}
		msg = append(msg, ssid...)
		msg = append(msg, pass...)
		return msg, true, nil

	default:
		return nil, false, fmt.Errorf("unknown command %q", cmd)
	}
}
