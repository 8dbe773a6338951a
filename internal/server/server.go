package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"path/filepath"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"terrainstream/internal/config"
	"terrainstream/internal/mesh"
	"terrainstream/internal/network"
	"terrainstream/internal/observer"
	"terrainstream/internal/pipeline"
	"terrainstream/internal/terrain"
	"terrainstream/internal/world"
)

// Server streams terrain chunks around the observers connected over UDP. All
// world state is owned by the tick loop; network handlers only touch the
// session registry and the observer inbox.
type Server struct {
	cfg      *config.Config
	net      *network.Server
	pipeline *pipeline.Pipeline
	world    *world.Manager
	preview  *world.PreviewRenderer
	inbox    *observer.Queue
	sessions *sessionRegistry
	logger   *log.Logger

	now        timeSource
	newTicker  tickerFactory
	streamSeq  uint64
	lastStream time.Time
}

func New(cfg *config.Config) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := log.New(log.Writer(), "terrain-server ", log.LstdFlags|log.Lmicroseconds)

	maps, err := terrain.NewMapGenerator(cfg.Terrain)
	if err != nil {
		return nil, fmt.Errorf("terrain generator: %w", err)
	}

	netSrv, err := network.Listen(cfg.Network.ListenUDP, nil, cfg.Network.MaxDatagramSizeBytes)
	if err != nil {
		return nil, err
	}

	jobs := pipeline.New(context.Background(), cfg.Pipeline, nil)
	requests := pipeline.NewGenerator(jobs, maps, mesh.Builder{}, cfg.Terrain.HeightMultiplier)

	var renderer world.Renderer = world.NopRenderer{}
	var preview *world.PreviewRenderer
	if cfg.Preview.Enabled {
		dir, err := filepath.Abs(cfg.Preview.Dir)
		if err != nil {
			dir = cfg.Preview.Dir
		}
		preview = world.NewPreviewRenderer(dir, cfg.Preview.Scale, nil)
		renderer = preview
		logger.Printf("writing chunk previews to %s", dir)
	}

	manager, err := world.NewManager(world.OptionsFromConfig(cfg), requests, renderer, nil)
	if err != nil {
		jobs.Close()
		netSrv.Close()
		if preview != nil {
			preview.Close()
		}
		return nil, fmt.Errorf("chunk manager: %w", err)
	}

	srv := &Server{
		cfg:       cfg,
		net:       netSrv,
		pipeline:  jobs,
		world:     manager,
		preview:   preview,
		inbox:     observer.NewQueue(),
		sessions:  newSessionRegistry(),
		logger:    logger,
		now:       time.Now,
		newTicker: defaultTickerFactory(),
	}
	srv.registerHandlers()
	return srv, nil
}

func (s *Server) registerHandlers() {
	s.net.Register(network.MessageObserverHello, s.onObserverHello)
	s.net.Register(network.MessageObserverUpdate, s.onObserverUpdate)
	s.net.Register(network.MessageObserverBye, s.onObserverBye)
}

// LocalAddr is the UDP address observers should dial.
func (s *Server) LocalAddr() *net.UDPAddr {
	return s.net.LocalAddr()
}

func (s *Server) Run(ctx context.Context) error {
	defer s.net.Close()
	defer s.pipeline.Close()
	if s.preview != nil {
		defer s.preview.Close()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		if err := s.net.Serve(ctx); err != nil && ctx.Err() == nil {
			s.logger.Printf("network server stopped: %v", err)
			cancel()
		}
	}()

	// Stream around the origin until the first observer reports in.
	s.world.UpdateViewer(mgl64.Vec2{})
	s.logger.Printf("server %s listening on %s", s.cfg.Server.ID, s.net.LocalAddr())

	loop := newTickLoop(s, s.cfg.Server.TickRate.Duration())
	loop.newTicker = s.newTicker
	loop.now = s.now
	loop.Start(ctx)
	loop.Wait()

	traffic := s.net.Traffic()
	stats := s.world.Stats()
	s.logger.Printf("stopping: %d datagrams in, %d out, %d malformed; %d chunks known, %d evicted, %d failures",
		traffic.Received, traffic.Sent, traffic.Malformed, stats.Known, stats.Evicted, stats.Failures)
	return ctx.Err()
}

// tick runs one frame of the streaming loop.
func (s *Server) tick(now time.Time, _ time.Duration) {
	batch := s.inbox.Drain(0)
	if latest, ok := observer.Latest(batch); ok {
		s.world.UpdateViewer(latest.Position)
	}

	s.pipeline.Drain()

	for _, id := range s.sessions.expire(now, s.cfg.Network.SessionTimeout.Duration()) {
		s.logger.Printf("observer session %s timed out", id)
	}

	if now.Sub(s.lastStream) >= s.cfg.Server.StreamRate.Duration() {
		s.lastStream = now
		s.broadcastVisibleChunks()
	}
}

func (s *Server) visibleChunks() network.VisibleChunks {
	snapshot := s.world.Snapshot()
	stats := s.world.Stats()
	viewer := s.world.Viewer()

	s.streamSeq++
	msg := network.VisibleChunks{
		ServerID: s.cfg.Server.ID,
		Seq:      s.streamSeq,
		Viewer:   network.Viewer{X: viewer.X(), Y: viewer.Y()},
		Chunks:   make([]network.ChunkState, 0, len(snapshot)),
		Known:    stats.Known,
		Pending:  stats.Pending,
	}
	for _, chunk := range snapshot {
		msg.Chunks = append(msg.Chunks, network.ChunkState{
			X:     chunk.Coord.X,
			Y:     chunk.Coord.Y,
			State: chunk.State.String(),
			LOD:   chunk.LOD,
		})
	}
	return msg
}

func (s *Server) broadcastVisibleChunks() {
	targets := s.sessions.targets()
	if len(targets) == 0 {
		return
	}
	msg := s.visibleChunks()
	for _, target := range targets {
		if err := s.net.SendTo(target, network.MessageVisibleChunks, msg); err != nil {
			s.logger.Printf("visible chunks send to %s: %v", target, err)
		}
	}
}

func (s *Server) onObserverHello(ctx context.Context, addr *net.UDPAddr, env network.Envelope) {
	var hello network.ObserverHello
	if err := network.DecodePayload(env, &hello); err != nil {
		s.logger.Printf("observer hello: %v", err)
		return
	}
	now := s.now()
	id := s.sessions.open(addr, hello.Name, now)
	s.inbox.Enqueue(observer.Update{
		SessionID:  id,
		Position:   mgl64.Vec2{hello.X, hello.Y},
		ReceivedAt: now,
	})

	welcome := network.Welcome{
		ServerID:  s.cfg.Server.ID,
		SessionID: id,
		ChunkSize: s.cfg.Terrain.ChunkSize,
	}
	if err := s.net.SendTo(addr, network.MessageWelcome, welcome); err != nil {
		s.logger.Printf("welcome send to %s: %v", addr, err)
		return
	}
	s.logger.Printf("observer %q joined from %s as %s", hello.Name, addr, id)
}

func (s *Server) onObserverUpdate(ctx context.Context, addr *net.UDPAddr, env network.Envelope) {
	var update network.ObserverUpdate
	if err := network.DecodePayload(env, &update); err != nil {
		s.logger.Printf("observer update: %v", err)
		return
	}
	now := s.now()
	if !s.sessions.touch(update.SessionID, addr, now) {
		s.logger.Printf("observer update for unknown session %q from %s", update.SessionID, addr)
		return
	}
	s.inbox.Enqueue(observer.Update{
		SessionID:  update.SessionID,
		Position:   mgl64.Vec2{update.X, update.Y},
		ReceivedAt: now,
	})
}

func (s *Server) onObserverBye(ctx context.Context, addr *net.UDPAddr, env network.Envelope) {
	var bye network.ObserverBye
	if err := network.DecodePayload(env, &bye); err != nil {
		s.logger.Printf("observer bye: %v", err)
		return
	}
	if s.sessions.close(bye.SessionID) {
		s.logger.Printf("observer session %s left", bye.SessionID)
	}
}
