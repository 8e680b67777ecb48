package comm

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
)

const (
	joinTimeout  = 30 * time.Second
	dialInterval = 100 * time.Millisecond
)

// ErrClosed is returned by collectives on a closed group.
var ErrClosed = errors.New("process group is closed")

type msgKind string

const (
	kindHello   msgKind = "hello"
	kindWelcome msgKind = "welcome"
	kindBarrier msgKind = "barrier"
	kindReduce  msgKind = "reduce"
	kindRelease msgKind = "release"
)

type message struct {
	Kind   msgKind   `json:"kind"`
	Rank   int       `json:"rank"`
	Seq    uint64    `json:"seq"`
	Op     Op        `json:"op,omitempty"`
	Values []float64 `json:"values,omitempty"`
}

type peer struct {
	conn net.Conn
	enc  *json.Encoder
	dec  *json.Decoder
}

func newPeer(conn net.Conn) *peer {
	return &peer{conn: conn, enc: json.NewEncoder(conn), dec: json.NewDecoder(conn)}
}

// TCPGroup is a process group coordinated by its root rank over plain TCP.
// Collectives are lock-step rounds: every rank calls the same collectives in
// the same order, so the root serves each round synchronously. Group
// formation blocks until all ranks have joined, like an MPI init.
type TCPGroup struct {
	log  *zap.Logger
	rank int
	size int
	seq  uint64

	listener net.Listener
	peers    []*peer // root only, indexed by rank
	root     *peer   // workers only

	closed bool
}

func NewTCPGroup(log *zap.Logger, rank, size int, coordinator string) (*TCPGroup, error) {
	if size < 2 {
		return nil, fmt.Errorf("tcp group needs at least 2 ranks, got %d", size)
	}
	if rank < 0 || rank >= size {
		return nil, fmt.Errorf("rank %d out of range [0,%d)", rank, size)
	}
	g := &TCPGroup{log: log.Named("comm"), rank: rank, size: size}
	if rank == 0 {
		if err := g.listen(coordinator); err != nil {
			return nil, err
		}
	} else {
		if err := g.join(coordinator); err != nil {
			return nil, err
		}
	}
	g.log.Debug("process group formed",
		zap.Int("rank", rank),
		zap.Int("size", size),
		zap.String("coordinator", coordinator))
	return g, nil
}

func (g *TCPGroup) listen(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("coordinator listen on %s: %w", addr, err)
	}
	g.listener = lis
	if tl, ok := lis.(*net.TCPListener); ok {
		tl.SetDeadline(time.Now().Add(joinTimeout))
	}

	g.peers = make([]*peer, g.size)
	joined := 0
	for joined < g.size-1 {
		conn, err := lis.Accept()
		if err != nil {
			g.Close()
			return fmt.Errorf("waiting for %d more ranks: %w", g.size-1-joined, err)
		}
		p := newPeer(conn)
		var hello message
		if err := p.dec.Decode(&hello); err != nil {
			g.Close()
			return fmt.Errorf("rank handshake from %s: %w", conn.RemoteAddr(), err)
		}
		if hello.Kind != kindHello || hello.Rank <= 0 || hello.Rank >= g.size {
			g.Close()
			return fmt.Errorf("unexpected handshake from %s: kind=%s rank=%d", conn.RemoteAddr(), hello.Kind, hello.Rank)
		}
		if g.peers[hello.Rank] != nil {
			g.Close()
			return fmt.Errorf("rank %d joined twice", hello.Rank)
		}
		g.peers[hello.Rank] = p
		joined++
		g.log.Debug("rank joined", zap.Int("rank", hello.Rank), zap.Int("waiting", g.size-1-joined))
	}
	if tl, ok := lis.(*net.TCPListener); ok {
		tl.SetDeadline(time.Time{})
	}

	for r := 1; r < g.size; r++ {
		if err := g.peers[r].enc.Encode(message{Kind: kindWelcome}); err != nil {
			g.Close()
			return fmt.Errorf("welcome rank %d: %w", r, err)
		}
	}
	return nil
}

func (g *TCPGroup) join(addr string) error {
	deadline := time.Now().Add(joinTimeout)
	var conn net.Conn
	var err error
	for {
		conn, err = net.DialTimeout("tcp", addr, 10*dialInterval)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("coordinator %s unreachable: %w", addr, err)
		}
		time.Sleep(dialInterval)
	}

	p := newPeer(conn)
	if err := p.enc.Encode(message{Kind: kindHello, Rank: g.rank}); err != nil {
		conn.Close()
		return fmt.Errorf("rank handshake: %w", err)
	}
	var welcome message
	if err := p.dec.Decode(&welcome); err != nil {
		conn.Close()
		return fmt.Errorf("waiting for group to form: %w", err)
	}
	if welcome.Kind != kindWelcome {
		conn.Close()
		return fmt.Errorf("unexpected %s from coordinator during handshake", welcome.Kind)
	}
	g.root = p
	return nil
}

func (g *TCPGroup) Rank() int         { return g.rank }
func (g *TCPGroup) Size() int         { return g.size }
func (g *TCPGroup) Transport() string { return "tcp" }

func (g *TCPGroup) Barrier() error {
	if g.closed {
		return ErrClosed
	}
	g.seq++
	if g.rank == 0 {
		_, err := g.rootRound(kindBarrier, nil, OpSum)
		return err
	}
	return g.workerRound(message{Kind: kindBarrier, Rank: g.rank, Seq: g.seq})
}

func (g *TCPGroup) Reduce(values []float64, op Op) ([]float64, error) {
	if g.closed {
		return nil, ErrClosed
	}
	g.seq++
	if g.rank == 0 {
		acc := make([]float64, len(values))
		copy(acc, values)
		return g.rootRound(kindReduce, acc, op)
	}
	err := g.workerRound(message{Kind: kindReduce, Rank: g.rank, Seq: g.seq, Op: op, Values: values})
	return nil, err
}

// rootRound collects one message per worker, folds reduce contributions into
// acc, then releases all workers.
func (g *TCPGroup) rootRound(kind msgKind, acc []float64, op Op) ([]float64, error) {
	for r := 1; r < g.size; r++ {
		var m message
		if err := g.peers[r].dec.Decode(&m); err != nil {
			return nil, fmt.Errorf("rank %d in round %d: %w", r, g.seq, err)
		}
		if m.Kind != kind || m.Seq != g.seq {
			return nil, fmt.Errorf("rank %d out of step: got %s/%d, want %s/%d", r, m.Kind, m.Seq, kind, g.seq)
		}
		if kind == kindReduce {
			if m.Op != op {
				return nil, fmt.Errorf("rank %d out of step: reduce op %d, want %d", r, m.Op, op)
			}
			if err := fold(op, acc, m.Values); err != nil {
				return nil, fmt.Errorf("rank %d: %w", r, err)
			}
		}
	}
	for r := 1; r < g.size; r++ {
		if err := g.peers[r].enc.Encode(message{Kind: kindRelease, Seq: g.seq}); err != nil {
			return nil, fmt.Errorf("release rank %d: %w", r, err)
		}
	}
	return acc, nil
}

func (g *TCPGroup) workerRound(m message) error {
	if err := g.root.enc.Encode(m); err != nil {
		return fmt.Errorf("round %d: %w", g.seq, err)
	}
	var release message
	if err := g.root.dec.Decode(&release); err != nil {
		return fmt.Errorf("round %d: %w", g.seq, err)
	}
	if release.Kind != kindRelease || release.Seq != g.seq {
		return fmt.Errorf("out of step with coordinator: got %s/%d, want %s/%d", release.Kind, release.Seq, kindRelease, g.seq)
	}
	return nil
}

func (g *TCPGroup) Close() error {
	if g.closed {
		return nil
	}
	g.closed = true
	if g.listener != nil {
		g.listener.Close()
	}
	for _, p := range g.peers {
		if p != nil {
			p.conn.Close()
		}
	}
	if g.root != nil {
		g.root.conn.Close()
	}
	return nil
}
