package net

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"garm/internal/common"
	"garm/internal/engine"
	"garm/internal/utils"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const (
	MAX_RECV_SIZE      = 4 * 1024
	defaultNWorkers    = 10
	defaultConnTimeout = 30 * time.Second
	outboundQueueSize  = 1024
)

var ErrImproperConversion = errors.New("improper type conversion")

// ClientSession contains relevant information pertaining to an individual
// connected TCP session.
type ClientSession struct {
	id    uuid.UUID
	conn  net.Conn
	owner string // last owner name seen on this session
}

// ClientMessage links a message to the client sending it.
type ClientMessage struct {
	clientAddress string
	message       Message
}

// outboundReport is a serialized frame addressed to one session.
type outboundReport struct {
	clientAddress string
	frame         []byte
}

type Server struct {
	address string
	port    int
	engine  *engine.Engine
	pool    utils.WorkerPool
	cancel  context.CancelFunc

	clientSessions     map[string]*ClientSession
	owners             map[string]string // owner name -> client address
	clientSessionsLock sync.Mutex

	clientMessages chan ClientMessage
	outbound       chan outboundReport
}

func New(address string, port int, eng *engine.Engine) *Server {
	return &Server{
		address:        address,
		port:           port,
		engine:         eng,
		pool:           utils.NewWorkerPool(defaultNWorkers),
		clientSessions: make(map[string]*ClientSession),
		owners:         make(map[string]string),
		clientMessages: make(chan ClientMessage, defaultNWorkers),
		outbound:       make(chan outboundReport, outboundQueueSize),
	}
}

func (s *Server) Shutdown() {
	log.Info().Msg("server shutting down")
	s.cancel()
}

func (s *Server) Run(ctx context.Context) {
	defer s.Shutdown()

	// Setup a cancel on the context for future shutdown.
	ctx, s.cancel = context.WithCancel(ctx)
	t, ctx := tomb.WithContext(ctx)

	// Start a tcp listener.
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		log.Error().Err(err).Msg("unable to start listener")
		return
	}
	defer func() {
		if err := listener.Close(); err != nil {
			log.Error().Err(err).Msg("unable to close listener")
		}
	}()

	// Start the worker pool.
	s.pool.Setup(t, s.handleConnection)

	// Start the session handler and the report sender.
	t.Go(func() error {
		return s.sessionHandler(t)
	})
	t.Go(func() error {
		return s.reportSender(t)
	})

	log.Info().Str("address", s.address).Int("port", s.port).Msg("server running")

	// Start accepting connections.
	for {
		select {
		case <-ctx.Done():
			return
		default:
			conn, err := listener.Accept()
			if err != nil {
				select {
				case <-ctx.Done():
					return
				default:
				}
				log.Error().Err(err).Msg("error accepting client")
				continue
			}

			session := s.addClientSession(conn)
			log.Info().
				Str("session", session.id.String()).
				Str("address", conn.RemoteAddr().String()).
				Msg("new client added")

			// Pass over the connection to be read from.
			s.pool.AddTask(conn)
		}
	}
}

// ReportTrade satisfies engine.Reporter: it frames the execution once per
// party and queues the frames for delivery. Never blocks; if the outbound
// queue is full the report is dropped, the trade log remains the source of
// truth.
func (s *Server) ReportTrade(trade common.Trade) {
	frame, err := serializeExecution(trade)
	if err != nil {
		log.Error().Err(err).Uint64("seq", trade.Seq).Msg("unable to serialize execution report")
		return
	}

	s.clientSessionsLock.Lock()
	addresses := make([]string, 0, 2)
	if addr, ok := s.owners[trade.Buyer]; ok {
		addresses = append(addresses, addr)
	}
	if addr, ok := s.owners[trade.Seller]; ok && trade.Seller != trade.Buyer {
		addresses = append(addresses, addr)
	}
	s.clientSessionsLock.Unlock()

	for _, addr := range addresses {
		s.send(addr, frame)
	}
}

func (s *Server) send(clientAddress string, frame []byte) {
	select {
	case s.outbound <- outboundReport{clientAddress: clientAddress, frame: frame}:
	default:
		log.Warn().Str("address", clientAddress).Msg("outbound queue full, report dropped")
	}
}

// reportSender is the only goroutine writing to client connections.
func (s *Server) reportSender(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case report := <-s.outbound:
			s.clientSessionsLock.Lock()
			session, ok := s.clientSessions[report.clientAddress]
			s.clientSessionsLock.Unlock()
			if !ok {
				continue
			}

			if err := writeReport(session.conn, report.frame, defaultConnTimeout); err != nil {
				log.Error().
					Err(err).
					Str("session", session.id.String()).
					Msg("unable to send report")
				s.deleteClientSession(report.clientAddress)
			}
		}
	}
}

// writeReport delivers one frame under a write deadline, so a single
// stalled client cannot back the sender up for every other session.
func writeReport(conn net.Conn, frame []byte, timeout time.Duration) error {
	if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	_, err := conn.Write(frame)
	return err
}

// sessionHandler drains incoming messages and runs them against the
// engine. Replies are queued on the outbound channel, never written here.
func (s *Server) sessionHandler(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case clientMessage := <-s.clientMessages:
			s.handleMessage(clientMessage)
		}
	}
}

func (s *Server) handleMessage(clientMessage ClientMessage) {
	addr := clientMessage.clientAddress

	switch message := clientMessage.message.(type) {
	case NewOrderMessage:
		order, err := message.Order()
		if err != nil {
			s.send(addr, serializeError(err))
			return
		}
		// Bind before submitting: execution reports fan out from inside
		// SubmitOrder, and a first order may fill the moment it arrives.
		prev, existed := s.bindOwner(order.Owner, addr)
		id, err := s.engine.SubmitOrder(order)
		if err != nil {
			s.restoreOwner(order.Owner, prev, existed)
			s.send(addr, serializeError(err))
			return
		}
		s.send(addr, serializeAck(OrderAck, id))

	case CancelOrderMessage:
		if err := s.engine.CancelOrder(message.Ticker, message.OrderID); err != nil {
			s.send(addr, serializeError(err))
			return
		}
		s.send(addr, serializeAck(CancelAck, message.OrderID))

	case BookQueryMessage:
		bids, asks, err := s.engine.BookSnapshot(message.Ticker)
		if err != nil {
			s.send(addr, serializeError(err))
			return
		}
		frame, err := serializeBook(BookSnapshot{
			Ticker: message.Ticker,
			Bids:   bids,
			Asks:   asks,
		})
		if err != nil {
			log.Error().Err(err).Msg("unable to serialize book snapshot")
			return
		}
		s.send(addr, frame)

	case TradeLogQueryMessage:
		trades := s.engine.Trades()
		if message.From > 0 {
			filtered := trades[:0]
			for _, trade := range trades {
				if trade.Seq >= message.From {
					filtered = append(filtered, trade)
				}
			}
			trades = filtered
		}
		frame, err := serializeTradeLog(trades)
		if err != nil {
			log.Error().Err(err).Msg("unable to serialize trade log")
			return
		}
		s.send(addr, frame)

	case BaseMessage:
		// Heartbeats keep the session warm, nothing to do.

	default:
		s.send(addr, serializeError(ErrInvalidMessageType))
	}
}

// handleConnection is a short-lived worker method which reads the next
// message off the connection, parses and passes it forward to
// sessionHandler. The connection is re-queued afterwards so another worker
// picks up the next message; a dead connection tears its session down.
// Note, any error returned from here is fatal to the pool.
func (s *Server) handleConnection(t *tomb.Tomb, task any) error {
	conn, ok := task.(net.Conn)
	if !ok {
		return ErrImproperConversion
	}
	addr := conn.RemoteAddr().String()

	if err := conn.SetReadDeadline(time.Now().Add(defaultConnTimeout)); err != nil {
		log.Error().Err(err).Str("address", addr).Msg("failed setting deadline for connection")
		s.closeClientSession(addr, conn)
		return nil
	}

	buffer := make([]byte, MAX_RECV_SIZE)
	select {
	case <-t.Dying():
		return nil
	default:
		n, err := conn.Read(buffer)
		if err != nil {
			if os.IsTimeout(err) {
				// Idle client, give the next message another window.
				s.pool.AddTask(conn)
				return nil
			}
			// The client has likely exited. Clean up the session.
			s.closeClientSession(addr, conn)
			return nil
		}

		message, err := parseMessage(buffer[:n])
		if err != nil {
			log.Error().
				Err(err).
				Str("address", addr).
				Msg("error parsing message")
			s.send(addr, serializeError(err))
			s.pool.AddTask(conn)
			return nil
		}

		// Pass over to the message handling buffer and exit this worker.
		s.clientMessages <- ClientMessage{
			message:       message,
			clientAddress: addr,
		}

		// Push the client connection back to handle the next message.
		s.pool.AddTask(conn)
	}
	return nil
}

// addClientSession is an atomic map add
func (s *Server) addClientSession(conn net.Conn) *ClientSession {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()

	session := &ClientSession{
		id:   uuid.New(),
		conn: conn,
	}
	s.clientSessions[conn.RemoteAddr().String()] = session
	return session
}

// bindOwner remembers which session an owner submits from, so execution
// reports can find their way back. The previous binding, if any, is
// returned so a rejected submission can be rolled back.
func (s *Server) bindOwner(owner, clientAddress string) (string, bool) {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()

	prev, existed := s.owners[owner]
	s.owners[owner] = clientAddress
	if session, ok := s.clientSessions[clientAddress]; ok {
		session.owner = owner
	}
	return prev, existed
}

// restoreOwner undoes a bindOwner after a rejected submission.
func (s *Server) restoreOwner(owner, prev string, existed bool) {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()

	if existed {
		s.owners[owner] = prev
	} else {
		delete(s.owners, owner)
	}
}

// deleteClientSession is an atomic map remove
func (s *Server) deleteClientSession(address string) {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()

	if session, ok := s.clientSessions[address]; ok {
		if session.owner != "" {
			delete(s.owners, session.owner)
		}
		delete(s.clientSessions, address)
	}
}

func (s *Server) closeClientSession(address string, conn net.Conn) {
	s.deleteClientSession(address)
	if err := conn.Close(); err != nil {
		log.Error().Err(err).Str("address", address).Msg("unable to close connection")
	}
}
