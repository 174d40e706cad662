package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/apperr"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/models"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/realtime"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/workflow"
)

type ChatHandler struct {
	Engine *workflow.Engine
	Hub    *realtime.Hub
	Log    *zap.Logger
}

func NewChatHandler(e *workflow.Engine, hub *realtime.Hub, log *zap.Logger) *ChatHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ChatHandler{Engine: e, Hub: hub, Log: log}
}

// GetMessages replays the project chat. ?since= is RFC3339 or unix millis.
func (h *ChatHandler) GetMessages(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id", apperr.CodeProjectNotFound, "project")
	if err != nil {
		return err
	}
	since, err := parseSince(c.Query("since"))
	if err != nil {
		fe := apperr.FieldErrors{}
		fe.Add("since", "must be RFC3339 or unix milliseconds")
		return fe.Err()
	}
	limit, _ := strconv.Atoi(c.Query("limit", "100"))

	msgs, err := h.Engine.ChatHistory(c.UserContext(), currentActor(c), id, since, limit)
	if err != nil {
		return err
	}
	return ok(c, "", msgs)
}

func parseSince(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms), nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

type SendMessageReq struct {
	Body string `json:"body" form:"body"`
}

func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id", apperr.CodeProjectNotFound, "project")
	if err != nil {
		return err
	}
	var req SendMessageReq
	if err := c.BodyParser(&req); err != nil {
		return invalidBody()
	}

	msg, err := h.Engine.SendChatMessage(c.UserContext(), currentActor(c), id, req.Body)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "sent",
		"data":    msg,
	})
}

// UpgradeProjectChat runs before the websocket upgrade: it rejects plain HTTP
// requests and callers who may not join the room, so those get a normal
// error response instead of a socket.
func (h *ChatHandler) UpgradeProjectChat(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	id, err := paramUUID(c, "id", apperr.CodeProjectNotFound, "project")
	if err != nil {
		return err
	}
	if _, err := h.Engine.CanJoinChat(c.UserContext(), currentActor(c), id); err != nil {
		return err
	}
	c.Locals("projectId", id)
	return c.Next()
}

// UpgradeNotifications only admits authenticated websocket requests.
func (h *ChatHandler) UpgradeNotifications(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return c.Next()
}

func actorFromSocket(c *websocket.Conn) workflow.Actor {
	a := workflow.Actor{}
	a.ID, _ = c.Locals("userId").(uuid.UUID)
	a.Role, _ = c.Locals("role").(models.Role)
	return a
}

// ProjectChatSocket joins the project room. Inbound {"type":"message"}
// frames are stored and relayed like POSTed messages.
func (h *ChatHandler) ProjectChatSocket(c *websocket.Conn) {
	actor := actorFromSocket(c)
	projectID, _ := c.Locals("projectId").(uuid.UUID)

	client := h.Hub.Subscribe(projectID, actor.ID)
	h.serve(c, client, func(in realtime.Inbound) {
		if in.Type != "message" {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := h.Engine.SendChatMessage(ctx, actor, projectID, in.Body); err != nil {
			h.reply(client, err)
		}
	})
}

// NotificationSocket streams the caller's notifications.
func (h *ChatHandler) NotificationSocket(c *websocket.Conn) {
	actor := actorFromSocket(c)
	client := h.Hub.Subscribe(uuid.Nil, actor.ID)
	h.serve(c, client, func(realtime.Inbound) {})
}

func (h *ChatHandler) serve(c *websocket.Conn, client *realtime.Client, onFrame func(realtime.Inbound)) {
	log := h.Log.With(
		zap.String("client_id", client.ID),
		zap.Stringer("user_id", client.UserID),
		zap.Stringer("project_id", client.ProjectID),
	)
	log.Info("websocket connected")

	conn := realtime.NewWebSocketConn(c)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := conn.WritePump(client.Send); err != nil {
			log.Debug("websocket write stopped", zap.Error(err))
		}
		// wake the read loop when the write side dies
		_ = c.Close()
	}()

	for {
		in, err := conn.ReadInbound()
		if err != nil {
			log.Debug("websocket read stopped", zap.Error(err))
			break
		}
		switch in.Type {
		case "ping", "pong":
			continue
		}
		onFrame(in)
	}

	h.Hub.Unsubscribe(client)
	<-done
	log.Info("websocket disconnected")
}

func (h *ChatHandler) reply(client *realtime.Client, err error) {
	var ae *apperr.AppError
	if !errors.As(err, &ae) {
		ae = apperr.New(apperr.CodeInternal, "internal server error")
	}
	payload, mErr := json.Marshal(fiber.Map{
		"type":    "error",
		"code":    ae.Code,
		"message": ae.Message,
		"errors":  ae.Fields,
	})
	if mErr != nil {
		return
	}
	select {
	case client.Send <- payload:
	default:
	}
}
