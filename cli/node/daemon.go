package node

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"path/filepath"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"go.dedis.ch/jellybean"
	"go.dedis.ch/jellybean/cli"
	"golang.org/x/xerrors"
)

const (
	ioTimeout  = 30 * time.Second
	socketName = "daemon.sock"
)

var promCommands = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "jellybean_daemon_commands_total",
	Help: "commands received by the daemon of the node",
}, []string{"status"})

func init() {
	jellybean.PromCollectors = append(jellybean.PromCollectors, promCommands)
}

// event is a JSON message streamed from the daemon to the client. The stream
// ends either with the connection being closed, or with an error event.
type event struct {
	Err   bool
	Value string
}

// socketClient sends one command per connection to the daemon listening on a
// UNIX socket.
//
// - implements node.Client
type socketClient struct {
	socketpath  string
	out         io.Writer
	dialTimeout time.Duration
	dialFn      func(network, addr string, timeout time.Duration) (net.Conn, error)
}

// Send implements node.Client. It writes the command and copies the output
// of the daemon until the connection is closed.
func (c socketClient) Send(data []byte) error {
	conn, err := c.dialFn("unix", c.socketpath, c.dialTimeout)
	if err != nil {
		return xerrors.Errorf("couldn't open connection: %v", err)
	}

	defer conn.Close()

	_, err = conn.Write(data)
	if err != nil {
		return xerrors.Errorf("couldn't write to daemon: %v", err)
	}

	dec := json.NewDecoder(conn)

	for {
		var evt event

		err = dec.Decode(&evt)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return xerrors.Errorf("fail to decode event: %v", err)
		}

		if evt.Err {
			return xerrors.New(evt.Value)
		}

		fmt.Fprint(c.out, evt.Value)
	}
}

// socketDaemon executes the actions received on a UNIX socket, so that only
// the users with access to the node directory can run commands.
//
// - implements node.Daemon
type socketDaemon struct {
	sync.WaitGroup

	logger      zerolog.Logger
	socketpath  string
	injector    Injector
	actions     *actionMap
	closing     chan struct{}
	readTimeout time.Duration
	listenFn    func(network, addr string) (net.Listener, error)
}

// Listen implements node.Daemon. It binds the socket and accepts the
// connections in the background until the daemon is closed.
func (d *socketDaemon) Listen() error {
	socket, err := d.listenFn("unix", d.socketpath)
	if err != nil {
		return xerrors.Errorf("couldn't bind socket: %v", err)
	}

	d.Add(2)

	go func() {
		defer d.Done()

		<-d.closing
		socket.Close()
	}()

	go func() {
		defer d.Done()

		for {
			conn, err := socket.Accept()
			if err != nil {
				select {
				case <-d.closing:
				default:
					d.logger.Err(err).Msg("daemon closed unexpectedly")
				}

				return
			}

			go d.handleConn(conn)
		}
	}()

	return nil
}

func (d *socketDaemon) handleConn(conn net.Conn) {
	defer conn.Close()

	logger := d.logger.With().Str("request", xid.New().String()).Logger()

	conn.SetReadDeadline(time.Now().Add(d.readTimeout))

	id, flags, err := readRequest(conn)
	if err == io.EOF {
		// connectivity check of the client
		return
	}
	if err != nil {
		d.sendError(logger, conn, err)
		return
	}

	logger = logger.With().Uint16("command", id).Logger()
	logger.Debug().Str("flags", fmt.Sprintf("%v", flags)).Msg("received command")

	action := d.actions.Get(id)
	if action == nil {
		d.sendError(logger, conn, xerrors.Errorf("unknown command '%d'", id))
		return
	}

	err = action.Execute(Context{
		Injector: d.injector,
		Flags:    flags,
		Out:      newClientWriter(conn),
	})
	if err != nil {
		d.sendError(logger, conn, xerrors.Errorf("command error: %v", err))
		return
	}

	promCommands.WithLabelValues("ok").Inc()

	logger.Debug().Msg("command executed")
}

func (d *socketDaemon) sendError(logger zerolog.Logger, conn net.Conn, err error) {
	promCommands.WithLabelValues("error").Inc()

	logger.Debug().Err(err).Msg("sending error to client")

	err = json.NewEncoder(conn).Encode(event{Err: true, Value: err.Error()})
	if err != nil {
		logger.Warn().Err(err).Msg("connection to daemon has error")
	}
}

// Close implements node.Daemon. It closes the socket and waits for the
// background routines.
func (d *socketDaemon) Close() error {
	close(d.closing)
	d.Wait()

	return nil
}

// readRequest reads the identifier of the action, two bytes in little-endian,
// followed by the JSON flags of the command. It returns io.EOF when the
// connection is closed before the identifier.
func readRequest(r io.Reader) (uint16, FlagSet, error) {
	header := make([]byte, 2)

	_, err := io.ReadFull(r, header)
	if err == io.EOF {
		return 0, nil, err
	}
	if err != nil {
		return 0, nil, xerrors.Errorf("stream corrupted: %v", err)
	}

	flags := make(FlagSet)

	err = json.NewDecoder(r).Decode(&flags)
	if err != nil {
		return 0, nil, xerrors.Errorf("failed to decode flags: %v", err)
	}

	return binary.LittleEndian.Uint16(header), flags, nil
}

// clientWriter streams each write of an action as an event.
//
// - implements io.Writer
type clientWriter struct {
	enc *json.Encoder
}

func newClientWriter(w io.Writer) *clientWriter {
	return &clientWriter{
		enc: json.NewEncoder(w),
	}
}

// Write implements io.Writer.
func (w *clientWriter) Write(data []byte) (int, error) {
	err := w.enc.Encode(event{Value: string(data)})
	if err != nil {
		return 0, xerrors.Errorf("while packing data: %v", err)
	}

	return len(data), nil
}

// socketFactory creates the daemon and the clients of the socket in the node
// directory.
//
// - implements node.DaemonFactory
type socketFactory struct {
	injector Injector
	actions  *actionMap
	out      io.Writer
}

// ClientFromContext implements node.DaemonFactory.
func (f socketFactory) ClientFromContext(ctx cli.Flags) (Client, error) {
	client := socketClient{
		socketpath:  socketPath(ctx),
		out:         f.out,
		dialTimeout: ioTimeout,
		dialFn:      net.DialTimeout,
	}

	return client, nil
}

// DaemonFromContext implements node.DaemonFactory.
func (f socketFactory) DaemonFromContext(ctx cli.Flags) (Daemon, error) {
	path := socketPath(ctx)

	daemon := &socketDaemon{
		logger:      jellybean.Logger.With().Str("daemon", path).Logger(),
		socketpath:  path,
		injector:    f.injector,
		actions:     f.actions,
		closing:     make(chan struct{}),
		readTimeout: ioTimeout,
		listenFn:    net.Listen,
	}

	return daemon, nil
}

func socketPath(ctx cli.Flags) string {
	return filepath.Join(ctx.Path(ConfigFlag), socketName)
}
