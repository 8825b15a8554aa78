package api

import (
	"encoding/json"
	"errors"
	"log"
	"net"
	"os"
	"runtime"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
)

// jsonCodec позволяет использовать gRPC с JSON-пейлоадом вместо protobuf,
// чтобы переиспользовать структуру Message без генерации кодеков.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }
func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}
func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// ControlServer bidirectional stream, зеркало WebSocket канала для
// нативных фронтендов
type ControlServer interface {
	Stream(Control_StreamServer) error
}

type Control_StreamServer interface {
	Send(*Message) error
	Recv() (*Message, error)
	grpc.ServerStream
}

type controlStreamServer struct {
	grpc.ServerStream
}

func (x *controlStreamServer) Send(m *Message) error {
	return x.ServerStream.SendMsg(m)
}

func (x *controlStreamServer) Recv() (*Message, error) {
	m := new(Message)
	if err := x.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func _Control_Stream_Handler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(ControlServer).Stream(&controlStreamServer{stream})
}

var _Control_serviceDesc = grpc.ServiceDesc{
	ServiceName: "medscribe.Control",
	HandlerType: (*ControlServer)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Stream",
			Handler:       _Control_Stream_Handler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "internal/api/control.proto",
}

func RegisterControlServer(s *grpc.Server, srv ControlServer) {
	s.RegisterService(&_Control_serviceDesc, srv)
}

// Stream обслуживает одного gRPC клиента: входящие сообщения проходят
// через общий диспетчер, broadcast уходит через исходящий канал
func (s *Server) Stream(stream Control_StreamServer) error {
	out := make(chan Message, 64)

	s.mu.Lock()
	s.grpcClients[out] = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.grpcClients, out)
		s.mu.Unlock()
	}()

	errCh := make(chan error, 1)
	go func() {
		for {
			msg, err := stream.Recv()
			if err != nil {
				errCh <- err
				return
			}
			resp := s.handleMessage(*msg)
			select {
			case out <- resp:
			default:
			}
		}
	}()

	for {
		select {
		case msg := <-out:
			if err := stream.Send(&msg); err != nil {
				return err
			}
		case err := <-errCh:
			return err
		}
	}
}

func (s *Server) startGRPCServer() {
	addr := s.Config.GRPCAddr
	if addr == "" {
		if runtime.GOOS == "windows" {
			addr = "npipe:\\\\.\\pipe\\medscribe-grpc"
		} else {
			addr = "unix:///tmp/medscribe-grpc.sock"
		}
	}

	lis, err := listenGRPC(addr)
	if err != nil {
		log.Printf("Failed to start gRPC listener (%s): %v", addr, err)
		return
	}

	server := grpc.NewServer(
		grpc.Creds(insecure.NewCredentials()),
		grpc.ForceServerCodec(jsonCodec{}),
	)
	RegisterControlServer(server, s)

	log.Printf("gRPC listening on %s", addr)
	if err := server.Serve(lis); err != nil {
		log.Printf("gRPC server stopped: %v", err)
	}
}

func listenGRPC(addr string) (net.Listener, error) {
	switch {
	case strings.HasPrefix(addr, "unix:"):
		socketPath := strings.TrimPrefix(addr, "unix:")
		socketPath = strings.TrimPrefix(socketPath, "//")
		if err := removeIfExists(socketPath); err != nil {
			return nil, err
		}
		return net.Listen("unix", socketPath)
	case strings.HasPrefix(addr, "npipe:"):
		return listenPipe(strings.TrimPrefix(addr, "npipe:"))
	default:
		// TCP как запасной вариант
		return net.Listen("tcp", addr)
	}
}

func removeIfExists(path string) error {
	if path == "" {
		return errors.New("empty socket path")
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
