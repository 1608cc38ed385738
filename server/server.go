package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/rpc"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"github.com/speedgrapplers/gameserver/broadcast"
	"github.com/speedgrapplers/gameserver/config"
	"github.com/speedgrapplers/gameserver/logger"
	"github.com/speedgrapplers/gameserver/monitor"
	"github.com/speedgrapplers/gameserver/network"
	"github.com/speedgrapplers/gameserver/room"
	gameserver_rpc "github.com/speedgrapplers/gameserver/rpc"
	"github.com/speedgrapplers/gameserver/session"
)

// GameServer is the session gateway: it terminates websocket connections,
// validates and routes messages into rooms, and serves the join QR and
// listing endpoints. It never touches simulation state; that belongs to
// the display hosts.
type GameServer struct {
	cfg      *config.Config
	upgrader websocket.Upgrader

	registry    *room.Registry
	sessions    *session.Manager
	broadcaster room.Broadcaster
	monitor     *monitor.Monitor
	rpcServer   *gameserver_rpc.Server
	router      *httprouter.Router
}

func NewGameServer(cfg *config.Config, mon *monitor.Monitor) *GameServer {
	s := &GameServer{
		cfg:      cfg,
		registry: room.NewRegistry(cfg.Game.RoomTTL, cfg.Game.ReapInterval, cfg.Game.MaxPlayers),
		sessions: session.NewManager(),
		monitor:  mon,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Controllers join from phones on arbitrary networks.
				return true
			},
		},
	}
	s.broadcaster = broadcast.NewRoomBroadcaster(s.registry)

	rpcServer, err := gameserver_rpc.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	s.rpcServer = rpcServer
	rpc.Register(gameserver_rpc.NewAdminService(s.registry))

	router := httprouter.New()
	router.GET("/ws", s.handleWebSocket)
	router.GET("/qr/:code", s.handleQR)
	router.GET("/rooms", s.handleRooms)
	router.GET("/healthz", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		_, _ = w.Write([]byte("ok"))
	})
	s.router = router

	return s
}

func (s *GameServer) Start() error {
	s.monitor.StartServer(s.cfg.Server.MetricsAddress)
	go s.rpcServer.Start()

	logger.Log.Infof("Game server listening on %s", s.cfg.Server.HTTPAddress)
	return http.ListenAndServe(s.cfg.Server.HTTPAddress, s.router)
}

func (s *GameServer) Shutdown() {
	s.registry.Stop()
	s.rpcServer.Stop()
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(network.NewWSConnection(conn))
}

func (s *GameServer) handleConnection(conn network.Connection) {
	sess := session.NewSession(uuid.New().String(), conn)
	s.sessions.Add(sess)
	s.monitor.IncOnlineSessions()

	logger.Log.Infof("New connection from %s, session ID: %s", conn.RemoteAddr(), sess.ID)

	defer func() {
		logger.Log.Infof("Connection closed, session ID: %s", sess.ID)
		if code := sess.Room(); code != "" {
			if r, exists := s.registry.Get(code); exists {
				r.Leave(sess.ID)
			}
		}
		s.sessions.Remove(sess.ID)
		s.monitor.DecOnlineSessions()
		s.monitor.SetActiveRooms(s.registry.Count())
		_ = conn.Close()
	}()

	for {
		msg, err := conn.Read()
		if err != nil {
			return
		}
		s.dispatch(sess, msg)
	}
}

func (s *GameServer) dispatch(sess *session.Session, msg *network.Message) {
	if msg.Binary {
		s.handleSnapshot(sess, msg.Data)
		return
	}
	if msg.Env == nil {
		// Not even an envelope. Input-grade noise, drop it.
		s.monitor.IncInputsDroppedInvalid()
		return
	}
	switch msg.Env.E {
	case network.EvHostCreate:
		s.handleHostCreate(sess)
	case network.EvControllerJoin:
		s.handleControllerJoin(sess, msg.Env.D)
	case network.EvControllerInput:
		s.handleControllerInput(sess, msg.Env.D)
	default:
		logger.Log.Infof("Unknown event %q from session %s", msg.Env.E, sess.ID)
	}
}

func (s *GameServer) handleHostCreate(sess *session.Session) {
	if sess.Room() != "" {
		// One room per display connection.
		return
	}
	r := s.registry.Create(sess, s.broadcaster, s.monitor)
	s.monitor.SetActiveRooms(s.registry.Count())
	logger.Log.Infof("Session %s created room %s", sess.ID, r.Code)

	_ = sess.Send(network.EvHostCreateAck, network.CreateAck{OK: true, RoomCode: r.Code})
	_ = s.broadcaster.BroadcastToRoom(r.Code, network.EvRoomStats, r.Stats())
}

func (s *GameServer) handleControllerJoin(sess *session.Session, data []byte) {
	var req network.JoinRequest
	if err := json.Unmarshal(data, &req); err != nil {
		_ = sess.Send(network.EvControllerJoinAck, network.JoinAck{OK: false, Reason: network.ReasonInvalidPayload})
		return
	}
	if err := req.Validate(); err != nil {
		_ = sess.Send(network.EvControllerJoinAck, network.JoinAck{OK: false, Reason: network.ReasonInvalidPayload})
		return
	}

	r, exists := s.registry.Get(req.RoomCode)
	if !exists {
		_ = sess.Send(network.EvControllerJoinAck, network.JoinAck{OK: false, Reason: network.ReasonRoomNotFound})
		return
	}

	playerID, color, err := r.Join(sess, req.DisplayName)
	if err != nil {
		reason := network.ReasonRoomNotFound
		if errors.Is(err, network.ErrRoomFull) {
			reason = network.ReasonRoomFull
		}
		_ = sess.Send(network.EvControllerJoinAck, network.JoinAck{OK: false, Reason: reason})
		return
	}

	// The token is opaque and merely echoed; there is no resume logic
	// behind it.
	token := req.ReconnectionToken
	if token == "" {
		token = uuid.New().String()
	}

	logger.Log.Infof("Session %s joined room %s", sess.ID, r.Code)
	_ = sess.Send(network.EvControllerJoinAck, network.JoinAck{
		OK:                true,
		PlayerID:          playerID,
		Color:             color,
		ReconnectionToken: token,
	})
}

// handleControllerInput validates and routes one input sample. Bad or
// stale samples vanish without acknowledgment: input is a best-effort
// stream and a nack per frame would double the traffic for nothing.
func (s *GameServer) handleControllerInput(sess *session.Session, data []byte) {
	s.monitor.IncInputsReceived()

	code := sess.Room()
	if code == "" || sess.Role() != session.RoleController {
		return
	}

	var payload network.InputPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		s.monitor.IncInputsDroppedInvalid()
		return
	}
	if err := payload.Validate(); err != nil {
		s.monitor.IncInputsDroppedInvalid()
		return
	}

	if r, exists := s.registry.Get(code); exists {
		r.SubmitInput(sess.ID, payload)
	}
}

func (s *GameServer) handleSnapshot(sess *session.Session, data []byte) {
	if sess.Role() != session.RoleDisplay {
		return
	}
	if r, exists := s.registry.Get(sess.Room()); exists {
		r.SubmitSnapshot(data)
	}
}

// handleQR renders a join QR for a room code, pointing phones at the
// controller page.
func (s *GameServer) handleQR(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	code := strings.ToUpper(ps.ByName("code"))
	if _, exists := s.registry.Get(code); !exists {
		http.NotFound(w, r)
		return
	}
	url := s.cfg.Server.PublicURL + "/controller?room=" + code
	png, err := qrcode.Encode(url, qrcode.Medium, 256)
	if err != nil {
		http.Error(w, "qr encoding failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

func (s *GameServer) handleRooms(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.registry.List())
}
