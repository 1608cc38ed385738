package rpc

import (
	"net"
	"net/rpc"

	"github.com/speedgrapplers/gameserver/logger"
	"github.com/speedgrapplers/gameserver/room"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
}

func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins serving RPC connections until the listener closes.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		_ = s.listener.Close()
	}
}

// AdminService exposes operational room controls over net/rpc.
type AdminService struct {
	registry *room.Registry
}

func NewAdminService(registry *room.Registry) *AdminService {
	return &AdminService{registry: registry}
}

type ListRoomsArgs struct{}

type ListRoomsReply struct {
	Rooms []room.RoomInfo
}

func (a *AdminService) ListRooms(_ *ListRoomsArgs, reply *ListRoomsReply) error {
	reply.Rooms = a.registry.List()
	return nil
}

type CloseRoomArgs struct {
	Code string
}

type CloseRoomReply struct {
	Closed bool
}

func (a *AdminService) CloseRoom(args *CloseRoomArgs, reply *CloseRoomReply) error {
	reply.Closed = a.registry.CloseRoom(args.Code)
	return nil
}
