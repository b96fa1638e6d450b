package ordwire

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"larkbook/internal/common"
	"larkbook/internal/workerpool"
)

const (
	maxRecvSize     = 4 * 1024
	defaultNWorkers = 10
	connTimeout     = time.Second
)

var (
	ErrImproperConversion = errors.New("ordwire: improper task type")
	ErrClientDoesNotExist = errors.New("ordwire: client does not exist")
)

// Engine is the single-goroutine-owned order book surface the server
// drives. Every method here must only ever be called from the
// sessionHandler goroutine — that is what keeps the matching engine
// single-threaded per instance even though many TCP connections feed it
// concurrently.
type Engine interface {
	PlaceOrder(msg NewOrderMessage) ([]common.Trade, *common.OrderInBook, error)
	CancelOrder(orderID uint64) error
	UpdateOrder(msg UpdateOrderMessage) error
	LogBook()
}

type clientSession struct {
	conn net.Conn
}

type clientMessage struct {
	clientAddress string
	message       Message
}

// Server is a TCP front end for agent order intake. It owns a worker
// pool that reads one frame per connection and republishes it onto a
// single channel drained by exactly one goroutine (sessionHandler),
// which is the only caller ever allowed to touch Engine.
type Server struct {
	address string
	port    int
	engine  Engine

	pool           workerpool.WorkerPool
	cancel         context.CancelFunc
	sessions       map[string]clientSession
	sessionsLock   sync.Mutex
	clientMessages chan clientMessage
}

// New constructs a Server bound to address:port, driving engine.
func New(address string, port int, engine Engine) *Server {
	return &Server{
		address:        address,
		port:           port,
		engine:         engine,
		pool:           workerpool.New(defaultNWorkers),
		sessions:       make(map[string]clientSession),
		clientMessages: make(chan clientMessage, 1),
	}
}

// Shutdown stops the running server.
func (s *Server) Shutdown() {
	log.Info().Msg("ordwire: server shutting down")
	if s.cancel != nil {
		s.cancel()
	}
}

// Run blocks, accepting connections until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	defer s.Shutdown()
	ctx, s.cancel = context.WithCancel(ctx)
	t, ctx := tomb.WithContext(ctx)

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		return fmt.Errorf("ordwire: listen: %w", err)
	}
	defer listener.Close()

	t.Go(func() error {
		s.pool.Setup(t, s.handleConnection)
		return nil
	})
	t.Go(func() error {
		return s.sessionHandler(t)
	})

	log.Info().Str("address", listener.Addr().String()).Msg("ordwire: server listening")

	for {
		select {
		case <-ctx.Done():
			return t.Wait()
		default:
			conn, err := listener.Accept()
			if err != nil {
				log.Error().Err(err).Msg("ordwire: accept failed")
				continue
			}
			s.addSession(conn)
			s.pool.AddTask(conn)
		}
	}
}

func (s *Server) sessionHandler(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case msg := <-s.clientMessages:
			if err := s.handleMessage(msg); err != nil {
				log.Error().Err(err).Str("clientAddress", msg.clientAddress).Msg("ordwire: error handling message")
				s.sendReport(msg.clientAddress, NewErrorReport(err))
			}
		}
	}
}

func (s *Server) handleMessage(msg clientMessage) error {
	switch msg.message.GetType() {
	case NewOrder:
		order, ok := msg.message.(NewOrderMessage)
		if !ok {
			return ErrImproperConversion
		}
		trades, oib, err := s.engine.PlaceOrder(order)
		if err != nil {
			return err
		}
		s.reportFill(msg.clientAddress, order, trades, oib)
		return nil
	case CancelOrder:
		order, ok := msg.message.(CancelOrderMessage)
		if !ok {
			return ErrImproperConversion
		}
		return s.engine.CancelOrder(order.OrderID)
	case UpdateOrder:
		order, ok := msg.message.(UpdateOrderMessage)
		if !ok {
			return ErrImproperConversion
		}
		return s.engine.UpdateOrder(order)
	case LogBook:
		s.engine.LogBook()
		return nil
	case Heartbeat:
		return nil
	default:
		return ErrInvalidMessageType
	}
}

func (s *Server) reportFill(clientAddress string, order NewOrderMessage, trades []common.Trade, oib *common.OrderInBook) {
	for _, tr := range trades {
		s.sendReport(clientAddress, NewTradeReport(tr, order.Side, order.TraderID, tr.MakerOrderID))
	}
	if oib != nil {
		s.sendReport(clientAddress, Report{
			Type:    ExecutionReport,
			Side:    oib.Side,
			Price:   oib.Price,
			Size:    oib.Size,
			OrderID: oib.OrderID,
		})
	}
}

func (s *Server) sendReport(clientAddress string, report Report) {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()

	session, ok := s.sessions[clientAddress]
	if !ok {
		return
	}
	if _, err := session.conn.Write(report.Serialize()); err != nil {
		log.Error().Err(err).Str("clientAddress", clientAddress).Msg("ordwire: write failed, dropping session")
		delete(s.sessions, clientAddress)
	}
}

func (s *Server) handleConnection(t *tomb.Tomb, task any) error {
	conn, ok := task.(net.Conn)
	if !ok {
		return ErrImproperConversion
	}
	if err := conn.SetDeadline(time.Now().Add(connTimeout)); err != nil {
		log.Error().Err(err).Str("address", conn.RemoteAddr().String()).Msg("ordwire: set deadline failed")
		conn.Close()
		return nil
	}

	buf := make([]byte, maxRecvSize)
	select {
	case <-t.Dying():
		conn.Close()
		return nil
	default:
		n, err := conn.Read(buf)
		if err != nil {
			s.deleteSession(conn.RemoteAddr().String())
			conn.Close()
			return nil
		}
		message, err := ParseMessage(buf[:n])
		if err != nil {
			log.Error().Err(err).Str("address", conn.RemoteAddr().String()).Msg("ordwire: parse failed")
			s.deleteSession(conn.RemoteAddr().String())
			conn.Close()
			return nil
		}
		s.clientMessages <- clientMessage{clientAddress: conn.RemoteAddr().String(), message: message}
		s.pool.AddTask(conn)
	}
	return nil
}

func (s *Server) addSession(conn net.Conn) {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()
	s.sessions[conn.RemoteAddr().String()] = clientSession{conn: conn}
}

func (s *Server) deleteSession(address string) {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()
	delete(s.sessions, address)
}
