package natsbus

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jhoicas/pos-inventario/internal/application/inventory"
	"github.com/jhoicas/pos-inventario/internal/domain"
	"github.com/jhoicas/pos-inventario/pkg/logger"
	"github.com/nats-io/nats.go"
)

var _ inventory.MovementPublisher = (*Client)(nil)

// Client conexión al bus central. Su estado (conectado o no) es la señal de conectividad del
// terminal: Changes emite true al reconectar y false al perder la conexión.
type Client struct {
	conn    *nats.Conn
	online  atomic.Bool
	changes chan bool
	log     *logger.Logger
}

func newClient(log *logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	return &Client{changes: make(chan bool, 1), log: log.Component("natsbus")}
}

// Connect abre la conexión. Si el servidor no está disponible no falla: el cliente queda
// offline y reintenta indefinidamente en segundo plano.
func Connect(url, name string, log *logger.Logger) (*Client, error) {
	c := newClient(log)
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.ConnectHandler(func(*nats.Conn) { c.setOnline(true, nil) }),
		nats.ReconnectHandler(func(*nats.Conn) { c.setOnline(true, nil) }),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) { c.setOnline(false, err) }),
		nats.ClosedHandler(func(*nats.Conn) { c.setOnline(false, nil) }),
	)
	if err != nil {
		return nil, fmt.Errorf("conectar a NATS: %w", err)
	}
	c.conn = conn
	c.setOnline(conn.IsConnected(), nil)
	return c, nil
}

// Online indica si hay conexión con el bus en este momento.
func (c *Client) Online() bool {
	return c.online.Load()
}

// Changes canal con el último cambio de estado. Si el consumidor se atrasa solo conserva el más reciente.
func (c *Client) Changes() <-chan bool {
	return c.changes
}

// Publish publica data en subject. Sin conexión devuelve domain.ErrOffline en vez de
// acumular el mensaje en el buffer de reconexión.
func (c *Client) Publish(ctx context.Context, subject string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.conn == nil || !c.Online() {
		return domain.ErrOffline
	}
	return c.conn.Publish(subject, data)
}

// Close vacía las publicaciones pendientes y cierra la conexión.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	if err := c.conn.Drain(); err != nil {
		c.conn.Close()
		return err
	}
	return nil
}

func (c *Client) setOnline(online bool, cause error) {
	if c.online.Swap(online) == online {
		return
	}
	if online {
		c.log.Info().Msg("conexión con el bus central establecida")
	} else {
		c.log.Warn().Err(cause).Msg("conexión con el bus central perdida")
	}

	select {
	case c.changes <- online:
	default:
		select {
		case <-c.changes:
		default:
		}
		select {
		case c.changes <- online:
		default:
		}
	}
}
