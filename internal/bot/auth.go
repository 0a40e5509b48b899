package bot

import (
	"context"

	"vpn-tool-bot/internal/common/logger"
	"vpn-tool-bot/internal/platform/telegram"
)

// MembershipChecker queries live group membership. Implemented by the
// Telegram client.
type MembershipChecker interface {
	CheckMembership(ctx context.Context, chatID string, userID int64) (bool, error)
}

const (
	replyUsePrivate   = "пиши в личку бота"
	replyUnauthorized = "deprecated bot"
)

// Verdict is an authorization decision. Reply is the rejection message for
// the chat, empty when allowed or when rejections are silent.
type Verdict struct {
	Allowed bool
	Reply   string
}

// Gate evaluates callers against the admin roster and the users group.
// The roster and group id are immutable after startup.
type Gate struct {
	admins       map[int64]struct{}
	groupID      string
	members      MembershipChecker
	silentReject bool
}

func NewGate(adminIDs []int64, groupID string, members MembershipChecker, silentReject bool) *Gate {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &Gate{
		admins:       admins,
		groupID:      groupID,
		members:      members,
		silentReject: silentReject,
	}
}

// IsAdmin reports roster membership.
func (g *Gate) IsAdmin(id int64) bool {
	_, ok := g.admins[id]
	return ok
}

func (g *Gate) reject(reply string) Verdict {
	if g.silentReject {
		return Verdict{Allowed: false}
	}
	return Verdict{Allowed: false, Reply: reply}
}

// Chat-kind check comes first: it is cheap and picks the right rejection
// message before any identity lookup.
func (g *Gate) checkChat(msg *telegram.Message) (Verdict, bool) {
	if msg.Chat.Type != telegram.ChatTypePrivate {
		return g.reject(replyUsePrivate), false
	}
	return Verdict{Allowed: true}, true
}

// AdminOnly passes iff the chat is private and the caller is on the roster.
func (g *Gate) AdminOnly(ctx context.Context, msg *telegram.Message) Verdict {
	if v, ok := g.checkChat(msg); !ok {
		return v
	}
	if !g.IsAdmin(msg.From.ID) {
		return g.reject(replyUnauthorized)
	}
	return Verdict{Allowed: true}
}

// AdminOrGroupMember passes iff the chat is private and the caller is on
// the roster or currently a member of the users group. A failed membership
// query fails closed: the caller is treated as a non-member.
func (g *Gate) AdminOrGroupMember(ctx context.Context, msg *telegram.Message) Verdict {
	if v, ok := g.checkChat(msg); !ok {
		return v
	}
	if g.IsAdmin(msg.From.ID) {
		return Verdict{Allowed: true}
	}
	if g.groupID == "" {
		return g.reject(replyUnauthorized)
	}
	member, err := g.members.CheckMembership(ctx, g.groupID, msg.From.ID)
	if err != nil {
		logger.Warn().
			Err(err).
			Int64("user_id", msg.From.ID).
			Msg("Membership check failed, treating as non-member")
		return g.reject(replyUnauthorized)
	}
	if !member {
		return g.reject(replyUnauthorized)
	}
	return Verdict{Allowed: true}
}
