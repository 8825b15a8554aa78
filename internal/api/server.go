package api

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"medscribe/diarize"
	"medscribe/internal/config"
	"medscribe/session"
	"medscribe/voice"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server раздаёт realtime выход движка по WebSocket и gRPC.
// Текстовые сообщения управляют сессиями; бинарные WebSocket сообщения
// несут кадры PCM (float32 LE) от слоя захвата.
type Server struct {
	Config     *config.Config
	SessionMgr *session.Manager

	clients     map[*websocket.Conn]bool
	grpcClients map[chan Message]bool
	mu          sync.Mutex
}

// NewServer создаёт API сервер
func NewServer(cfg *config.Config, mgr *session.Manager) *Server {
	return &Server{
		Config:      cfg,
		SessionMgr:  mgr,
		clients:     make(map[*websocket.Conn]bool),
		grpcClients: make(map[chan Message]bool),
	}
}

// Start блокирующий запуск HTTP и gRPC слушателей
func (s *Server) Start() {
	http.HandleFunc("/ws", s.handleWebSocket)

	go s.startGRPCServer()

	log.Printf("Backend listening on :%s", s.Config.Port)
	if err := http.ListenAndServe(":"+s.Config.Port, nil); err != nil {
		log.Fatal("ListenAndServe:", err)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[API] websocket upgrade: %v", err)
		return
	}

	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			s.handleAudioFrame(data)
		case websocket.TextMessage:
			var msg Message
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			resp := s.handleMessage(msg)
			s.mu.Lock()
			conn.WriteJSON(resp)
			s.mu.Unlock()
		}
	}
}

// handleAudioFrame бинарный кадр PCM float32 LE от слоя захвата
func (s *Server) handleAudioFrame(data []byte) {
	sess := s.SessionMgr.GetActiveSession()
	if sess == nil || len(data) < 4 {
		return
	}

	samples := make([]float32, len(data)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}

	if sess.Audio != nil {
		sess.Audio.Write(samples)
	}
	sess.Pipeline.PushFrame(samples)
}

// handleMessage диспетчеризация управляющих сообщений; общая для
// WebSocket и gRPC stream
func (s *Server) handleMessage(msg Message) Message {
	switch msg.Type {
	case "start_session":
		mode := voice.CaptureDirect
		if msg.Mode == string(voice.CaptureRelayed) {
			mode = voice.CaptureRelayed
		}
		sess, err := s.SessionMgr.CreateSession(session.Config{
			Mode:       mode,
			ArchiveMP3: msg.ArchiveMP3 || s.Config.ArchiveMP3,
			VADModel:   s.Config.VADModelPath,
		})
		if err != nil {
			return Message{Type: "error", Error: err.Error()}
		}
		s.attachCallbacks(sess)
		return Message{Type: "session_started", Session: sess}

	case "stop_session":
		sess, err := s.SessionMgr.StopSession()
		if err != nil {
			return Message{Type: "error", Error: err.Error()}
		}
		return Message{Type: "session_stopped", Session: sess}

	case "pause_session":
		if err := s.SessionMgr.PauseSession(); err != nil {
			return Message{Type: "error", Error: err.Error()}
		}
		return Message{Type: "session_paused"}

	case "resume_session":
		if err := s.SessionMgr.ResumeSession(); err != nil {
			return Message{Type: "error", Error: err.Error()}
		}
		return Message{Type: "session_resumed"}

	case "push_segment":
		sess := s.SessionMgr.GetActiveSession()
		if sess == nil {
			return Message{Type: "error", Error: "no active session"}
		}
		ts := time.Now()
		if msg.Timestamp > 0 {
			ts = time.UnixMilli(msg.Timestamp)
		}
		sess.Pipeline.PushSegment(msg.Text, ts)
		return Message{Type: "segment_accepted"}

	case "get_characteristics":
		sess := s.SessionMgr.GetActiveSession()
		if sess == nil {
			return Message{Type: "error", Error: "no active session"}
		}
		vc := sess.Pipeline.Latest()
		return Message{Type: "characteristics", Characteristics: &vc}

	case "get_profiles":
		sess, resp := s.sessionForRead(msg)
		if sess == nil {
			return resp
		}
		return Message{Type: "profiles", Profiles: sess.Pipeline.Profiles()}

	case "get_flagged":
		sess, resp := s.sessionForRead(msg)
		if sess == nil {
			return resp
		}
		return Message{Type: "flagged", Flagged: sess.Pipeline.Flagged()}

	case "get_stats":
		sess, resp := s.sessionForRead(msg)
		if sess == nil {
			return resp
		}
		stats := sess.Pipeline.Stats()
		return Message{Type: "stats", Stats: &stats}

	case "get_transcript":
		sess, resp := s.sessionForRead(msg)
		if sess == nil {
			return resp
		}
		return Message{Type: "transcript", Transcript: sess.Pipeline.Transcript()}

	case "reanalyze":
		sess, resp := s.sessionForRead(msg)
		if sess == nil {
			return resp
		}
		turns, err := s.reanalyzeSession(sess)
		if err != nil {
			return Message{Type: "error", Error: err.Error()}
		}
		return Message{Type: "reanalysis", SessionID: sess.ID, Turns: turns}

	case "list_sessions":
		return Message{Type: "sessions", Sessions: s.SessionMgr.ListSessions()}

	default:
		return Message{Type: "error", Error: "unknown message type: " + msg.Type}
	}
}

// reanalyzeSession нейронная офлайн-диаризация MP3 архива сессии:
// участки, помеченные трекером как низкоуверенные, пересматриваются
// по полной записи. Требует моделей сегментации и эмбеддингов на диске.
func (s *Server) reanalyzeSession(sess *session.Session) ([]diarize.TurnSegment, error) {
	if s.Config.SegModelPath == "" || s.Config.EmbedModelPath == "" {
		return nil, fmt.Errorf("offline diarization models are not configured")
	}

	reader, err := session.NewMP3Reader(filepath.Join(sess.DataDir, "audio.mp3"))
	if err != nil {
		return nil, fmt.Errorf("session has no readable audio archive: %w", err)
	}
	defer reader.Close()

	samples, err := reader.ReadAllMono()
	if err != nil {
		return nil, err
	}

	d, err := diarize.NewOfflineDiarizer(
		diarize.DefaultOfflineDiarizerConfig(s.Config.SegModelPath, s.Config.EmbedModelPath))
	if err != nil {
		return nil, err
	}
	defer d.Close()

	return d.Reanalyze(samples)
}

// sessionForRead сессия для read-path запроса: по ID или активная
func (s *Server) sessionForRead(msg Message) (*session.Session, Message) {
	if msg.SessionID != "" {
		sess, err := s.SessionMgr.GetSession(msg.SessionID)
		if err != nil {
			return nil, Message{Type: "error", Error: err.Error()}
		}
		return sess, Message{}
	}
	if sess := s.SessionMgr.GetActiveSession(); sess != nil {
		return sess, Message{}
	}
	return nil, Message{Type: "error", Error: "no active session"}
}

// attachCallbacks подписывает broadcast на выход конвейера сессии
func (s *Server) attachCallbacks(sess *session.Session) {
	id := sess.ID
	sess.Pipeline.SetCallbacks(
		func(vc voice.VoiceCharacteristics) {
			s.broadcast(Message{Type: "characteristics", SessionID: id, Characteristics: &vc})
		},
		func(seg diarize.Segment) {
			s.broadcast(Message{Type: "segment", SessionID: id, Segment: &seg})
		},
	)
}

// broadcast рассылает сообщение всем подключённым клиентам
func (s *Server) broadcast(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for conn := range s.clients {
		if err := conn.WriteJSON(msg); err != nil {
			conn.Close()
			delete(s.clients, conn)
		}
	}
	for ch := range s.grpcClients {
		select {
		case ch <- msg:
		default:
			// Медленный gRPC клиент не должен тормозить конвейер
		}
	}
}
