package app

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"chat_platform/internal/chat/domain"
	"chat_platform/internal/chat/repository"
	errprocess "chat_platform/pkg/err"
	"chat_platform/pkg/logger"
	"chat_platform/pkg/middlewares"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// pingInterval keepalive period of a websocket session
var pingInterval = 10 * time.Minute

// ChatWebsocketHandler 可包含所有需要的 UseCase
type ChatWebsocketHandler struct {
	convUC ConversationUseCase
	users  UserDirectory
	pubsub repository.PubSub
}

// NewChatWebsocketHandler create ChatWebsocketHandler
func NewChatWebsocketHandler(convUC ConversationUseCase, users UserDirectory, pubsub repository.PubSub) *ChatWebsocketHandler {
	return &ChatWebsocketHandler{
		convUC: convUC,
		users:  users,
		pubsub: pubsub,
	}
}

// session one websocket connection, writes are serialized
type session struct {
	conn   *websocket.Conn
	userID string
	view   *domain.ViewState
	mu     sync.Mutex
}

func (s *session) send(resp domain.WSResponse) {
	b, _ := json.Marshal(resp)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.WriteMessage(websocket.TextMessage, b); err != nil {
		logger.Log.Error("write message error", zap.String("user_id", s.userID), zap.Error(err))
	}
}

func (s *session) ping() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(websocket.PingMessage, []byte("ping message"))
}

func (s *session) sendError(action, msg string) {
	s.send(domain.WSResponse{Action: action, Success: false, Error: msg})
}

// HandleConnection 是 WebSocket 連線的進入點
func (h *ChatWebsocketHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	h.Serve(ctx, conn, &domain.ViewState{})
}

// Serve run a session with the given view state until the peer disconnects
func (h *ChatWebsocketHandler) Serve(ctx context.Context, conn *websocket.Conn, view *domain.ViewState) {
	identity, _ := conn.Locals(middlewares.TokenIdentity).(string)
	caller, err := h.users.ResolveCaller(ctx, identity)
	if err != nil {
		s := &session{conn: conn}
		s.sendError(string(domain.ActionError), errprocess.Message(err))
		_ = conn.Close()
		return
	}

	s := &session{conn: conn, userID: caller.ID, view: view}
	logger.Log.Info("websocket connected", zap.String("user_id", s.userID))

	ticker := time.NewTicker(pingInterval)
	ctxClose, cancel := context.WithCancel(ctx)
	defer func() {
		ticker.Stop()
		cancel()
		logger.Log.Info("websocket close", zap.String("user_id", s.userID))
		_ = conn.Close()
	}()

	//client發出close
	//fiber會自動處理(在read msg 回傳err),故需要SetCloseHandler另外接出
	conn.SetCloseHandler(func(code int, text string) error {
		logger.Log.Debug("websocket closed by peer", zap.Int("code", code), zap.String("user_id", s.userID))
		return nil
	})

	//server發出ping之後client連線正常會回pong
	conn.SetPongHandler(func(appData string) error {
		logger.Log.Debug("received pong", zap.String("user_id", s.userID))
		return nil
	})

	//client發出ping
	conn.SetPingHandler(func(appData string) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
	})

	//啟用sub訂閱自己的訊息
	if err := h.pubsub.Subscribe(ctxClose, domain.UserChannel(s.userID), func(ev domain.Event) {
		h.onEvent(ctxClose, s, ev)
	}); err != nil {
		logger.Log.Error("websocket subscribe", zap.String("user_id", s.userID), zap.Error(err))
		s.sendError(string(domain.ActionError), "realtime feed unavailable")
		return
	}

	// 定期發送 Ping
	go func() {
		for {
			select {
			case <-ticker.C:
				if err := s.ping(); err != nil {
					logger.Log.Error("ping error", zap.String("user_id", s.userID), zap.Error(err))
					return
				}
			case <-ctxClose.Done():
				return
			}
		}
	}()

	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Log.Debug("connection closed", zap.String("user_id", s.userID))
			} else {
				//直接斷線 1006
				logger.Log.Warn("websocket read error", zap.String("user_id", s.userID), zap.Error(err))
			}
			return
		}
		if mt != websocket.TextMessage {
			s.sendError(string(domain.ActionError), "unsupported message type")
			continue
		}
		h.textMessageAction(ctxClose, s, message)
	}
}

// onEvent forward a pushed event, a new message in the viewed conversation is read on arrival
func (h *ChatWebsocketHandler) onEvent(ctx context.Context, s *session, ev domain.Event) {
	if ev.Action == domain.NewMessage && s.view.IsViewing(ev.ConversationID) {
		if err := h.convUC.MarkRead(ctx, s.userID, ev.ConversationID); err != nil {
			logger.Log.Warn("auto mark read", zap.String("user_id", s.userID), zap.Error(err))
		}
	}
	payload := map[string]interface{}{"conversation_id": ev.ConversationID}
	if len(ev.Data) > 0 {
		payload["data"] = ev.Data
	}
	s.send(domain.WSResponse{Action: string(ev.Action), Success: true, Payload: payload})
}

func (h *ChatWebsocketHandler) textMessageAction(ctx context.Context, s *session, msg []byte) {
	var req domain.WSRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		s.sendError(string(domain.ActionError), "invalid request")
		return
	}

	resp := domain.WSResponse{Action: req.Action, Success: false, Payload: map[string]interface{}{}}
	switch domain.Action(req.Action) {
	//進入聊天室，同時標記已讀
	case domain.ViewConversation:
		if req.ConversationID == "" {
			resp.Error = "conversation_id is required"
			break
		}
		s.view.View(req.ConversationID)
		if err := h.convUC.MarkRead(ctx, s.userID, req.ConversationID); err != nil {
			resp.Error = errprocess.Message(err)
			break
		}
		resp.Success = true
		resp.Payload["conversation_id"] = req.ConversationID

	//離開聊天室
	case domain.LeaveConversation:
		s.view.Leave()
		resp.Success = true

	case domain.MarkRead:
		if req.ConversationID == "" {
			resp.Error = "conversation_id is required"
			break
		}
		if err := h.convUC.MarkRead(ctx, s.userID, req.ConversationID); err != nil {
			resp.Error = errprocess.Message(err)
			break
		}
		resp.Success = true
		resp.Payload["conversation_id"] = req.ConversationID

	case domain.GetConversations:
		views, err := h.convUC.ListForUser(ctx, s.userID)
		if err != nil {
			resp.Error = errprocess.Message(err)
			break
		}
		resp.Success = true
		resp.Payload["conversations"] = views

	default:
		resp.Action = string(domain.ActionError)
		resp.Error = "unknown action"
	}

	if resp.Error != "" {
		logger.Log.Warn("websocket err", zap.String("user_id", s.userID), zap.String("action", req.Action), zap.String("err", resp.Error))
	}
	s.send(resp)
}
