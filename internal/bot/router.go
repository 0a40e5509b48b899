// Package bot routes inbound chat commands through log and authorization
// middleware to their handlers.
package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	apperrors "vpn-tool-bot/internal/common/errors"
	"vpn-tool-bot/internal/common/logger"
	"vpn-tool-bot/internal/features/profile/models"
	"vpn-tool-bot/internal/platform/telegram"
)

// Replier delivers replies back through the chat transport.
type Replier interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendDocument(ctx context.Context, chatID int64, path, filename string) error
}

// ProfileService is the issuance workflow consumed by the handlers.
type ProfileService interface {
	EnsureProfile(ctx context.Context, caller models.Caller) (models.Profile, error)
	List(ctx context.Context) ([]models.Profile, error)
	RevokeByIndex(ctx context.Context, index int) (string, error)
	BulkInstall(ctx context.Context) error
}

const (
	replyFailed       = "failed"
	replyWrongCommand = "wrong command"
	replyNoClients    = "no clients"
	replyInstalled    = "installed"

	replyGuide = "OpenVPN client and guide\nhttps://openvpn.net/vpn-client/"

	startReplyUser = "Available commands:\n---\n" +
		"/guide - installation guide\n---\n" +
		"/ovpn - get your .ovpn file\n---\n"
	startReplyAdmin = startReplyUser +
		"/list - all clients\n---\n" +
		"/revoke {num} - remove client by number\n---\n---\n" +
		"/install - install openvpn on server\n---\n"
)

type Router struct {
	gate     *Gate
	profiles ProfileService
	replier  Replier
}

func NewRouter(gate *Gate, profiles ProfileService, replier Replier) *Router {
	return &Router{gate: gate, profiles: profiles, replier: replier}
}

// HandleUpdate runs one update through the pipeline: log, authorize,
// handle. Handler failures are logged in full and surfaced to the chat as
// a generic reply, never with internal detail.
func (r *Router) HandleUpdate(ctx context.Context, upd telegram.Update) {
	msg := upd.Message
	if msg == nil || msg.From == nil {
		return
	}
	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, "/") {
		return
	}
	command, arg := splitCommand(text)

	lg := logger.Info().
		Str("request_id", uuid.NewString()).
		Str("command", text).
		Int64("user_id", msg.From.ID).
		Str("username", msg.From.Username).
		Str("name", strings.TrimSpace(msg.From.FirstName+" "+msg.From.LastName))

	var gate func(context.Context, *telegram.Message) Verdict
	var handler func(context.Context, *telegram.Message, string) error
	switch command {
	case "start":
		gate, handler = r.gate.AdminOrGroupMember, r.handleStart
	case "ovpn":
		gate, handler = r.gate.AdminOrGroupMember, r.handleOvpn
	case "guide":
		gate, handler = r.gate.AdminOrGroupMember, r.handleGuide
	case "list":
		gate, handler = r.gate.AdminOnly, r.handleList
	case "revoke":
		gate, handler = r.gate.AdminOnly, r.handleRevoke
	case "install":
		gate, handler = r.gate.AdminOnly, r.handleInstall
	default:
		lg.Msg("Unknown command ignored")
		return
	}
	lg.Msg("Command received")

	if v := gate(ctx, msg); !v.Allowed {
		logger.Warn().
			Str("command", text).
			Int64("user_id", msg.From.ID).
			Msg("Unauthorized command rejected")
		if v.Reply != "" {
			r.reply(ctx, msg.Chat.ID, v.Reply)
		}
		return
	}

	if err := handler(ctx, msg, arg); err != nil {
		r.replyError(ctx, msg, text, err)
	}
}

func (r *Router) handleStart(ctx context.Context, msg *telegram.Message, _ string) error {
	reply := startReplyUser
	if r.gate.IsAdmin(msg.From.ID) {
		reply = startReplyAdmin
	}
	return r.replier.SendMessage(ctx, msg.Chat.ID, reply)
}

func (r *Router) handleOvpn(ctx context.Context, msg *telegram.Message, _ string) error {
	caller := models.Caller{
		ID:        msg.From.ID,
		Username:  msg.From.Username,
		FirstName: msg.From.FirstName,
		LastName:  msg.From.LastName,
	}
	p, err := r.profiles.EnsureProfile(ctx, caller)
	if err != nil {
		return err
	}

	filename := caller.Username + models.Extension
	if caller.Username == "" {
		filename = fmt.Sprintf("id%d%s", caller.ID, models.Extension)
	}
	return r.replier.SendDocument(ctx, msg.Chat.ID, p.Path, filename)
}

func (r *Router) handleGuide(ctx context.Context, msg *telegram.Message, _ string) error {
	return r.replier.SendMessage(ctx, msg.Chat.ID, replyGuide)
}

func (r *Router) handleList(ctx context.Context, msg *telegram.Message, _ string) error {
	profiles, err := r.profiles.List(ctx)
	if err != nil {
		return err
	}
	if len(profiles) == 0 {
		return r.replier.SendMessage(ctx, msg.Chat.ID, replyNoClients)
	}
	lines := make([]string, 0, len(profiles))
	for i, p := range profiles {
		lines = append(lines, fmt.Sprintf("%d. %s", i, p.Name))
	}
	return r.replier.SendMessage(ctx, msg.Chat.ID, strings.Join(lines, "\n"))
}

func (r *Router) handleRevoke(ctx context.Context, msg *telegram.Message, arg string) error {
	index, err := strconv.Atoi(arg)
	if err != nil {
		return apperrors.NewNotFoundError("revoke argument", arg)
	}
	name, err := r.profiles.RevokeByIndex(ctx, index)
	if err != nil {
		return err
	}
	return r.replier.SendMessage(ctx, msg.Chat.ID, name+" revoked.")
}

func (r *Router) handleInstall(ctx context.Context, msg *telegram.Message, _ string) error {
	if err := r.profiles.BulkInstall(ctx); err != nil {
		return err
	}
	return r.replier.SendMessage(ctx, msg.Chat.ID, replyInstalled)
}

func (r *Router) replyError(ctx context.Context, msg *telegram.Message, command string, err error) {
	logger.Error().
		Err(err).
		Str("command", command).
		Int64("user_id", msg.From.ID).
		Str("username", msg.From.Username).
		Msg("Command failed")

	reply := replyFailed
	if appErr, ok := apperrors.AsAppError(err); ok && appErr.IsNotFound() {
		reply = replyWrongCommand
	}
	r.reply(ctx, msg.Chat.ID, reply)
}

func (r *Router) reply(ctx context.Context, chatID int64, text string) {
	if err := r.replier.SendMessage(ctx, chatID, text); err != nil {
		logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send reply")
	}
}

// splitCommand extracts the command name and its trailing argument from
// message text like "/revoke 3" or "/list@vpn_tool_bot".
func splitCommand(text string) (string, string) {
	fields := strings.Fields(text)
	name := strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	var arg string
	if len(fields) > 1 {
		arg = fields[len(fields)-1]
	}
	return name, arg
}
