package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"vpn-tool-bot/internal/platform/telegram"
)

type fakeMembers struct {
	member bool
	err    error
	calls  int
}

func (f *fakeMembers) CheckMembership(context.Context, string, int64) (bool, error) {
	f.calls++
	return f.member, f.err
}

func message(chatType string, userID int64) *telegram.Message {
	return &telegram.Message{
		From: &telegram.User{ID: userID, Username: "user"},
		Chat: telegram.Chat{ID: userID, Type: chatType},
	}
}

func TestAdminOnly(t *testing.T) {
	members := &fakeMembers{}
	gate := NewGate([]int64{111}, "-100200", members, false)

	t.Run("admin in private chat passes", func(t *testing.T) {
		v := gate.AdminOnly(context.Background(), message(telegram.ChatTypePrivate, 111))
		assert.True(t, v.Allowed)
		assert.Empty(t, v.Reply)
	})

	t.Run("non-admin rejected", func(t *testing.T) {
		v := gate.AdminOnly(context.Background(), message(telegram.ChatTypePrivate, 222))
		assert.False(t, v.Allowed)
		assert.Equal(t, replyUnauthorized, v.Reply)
	})

	t.Run("group chat rejected even for admin", func(t *testing.T) {
		v := gate.AdminOnly(context.Background(), message(telegram.ChatTypeGroup, 111))
		assert.False(t, v.Allowed)
		assert.Equal(t, replyUsePrivate, v.Reply)
	})

	t.Run("never queries membership", func(t *testing.T) {
		assert.Zero(t, members.calls)
	})
}

func TestAdminOrGroupMember(t *testing.T) {
	t.Run("admin passes without membership query", func(t *testing.T) {
		members := &fakeMembers{}
		gate := NewGate([]int64{111}, "-100200", members, false)
		v := gate.AdminOrGroupMember(context.Background(), message(telegram.ChatTypePrivate, 111))
		assert.True(t, v.Allowed)
		assert.Zero(t, members.calls)
	})

	t.Run("group member passes", func(t *testing.T) {
		members := &fakeMembers{member: true}
		gate := NewGate([]int64{111}, "-100200", members, false)
		v := gate.AdminOrGroupMember(context.Background(), message(telegram.ChatTypePrivate, 222))
		assert.True(t, v.Allowed)
		assert.Equal(t, 1, members.calls)
	})

	t.Run("non-member rejected", func(t *testing.T) {
		members := &fakeMembers{member: false}
		gate := NewGate([]int64{111}, "-100200", members, false)
		v := gate.AdminOrGroupMember(context.Background(), message(telegram.ChatTypePrivate, 222))
		assert.False(t, v.Allowed)
		assert.Equal(t, replyUnauthorized, v.Reply)
	})

	t.Run("membership query failure fails closed", func(t *testing.T) {
		members := &fakeMembers{err: errors.New("network down")}
		gate := NewGate([]int64{111}, "-100200", members, false)
		v := gate.AdminOrGroupMember(context.Background(), message(telegram.ChatTypePrivate, 222))
		assert.False(t, v.Allowed)
		assert.Equal(t, replyUnauthorized, v.Reply)
	})

	t.Run("no configured group rejects non-admins", func(t *testing.T) {
		members := &fakeMembers{member: true}
		gate := NewGate([]int64{111}, "", members, false)
		v := gate.AdminOrGroupMember(context.Background(), message(telegram.ChatTypePrivate, 222))
		assert.False(t, v.Allowed)
		assert.Zero(t, members.calls)
	})

	t.Run("group chat rejected before identity", func(t *testing.T) {
		members := &fakeMembers{member: true}
		gate := NewGate([]int64{111}, "-100200", members, false)
		v := gate.AdminOrGroupMember(context.Background(), message(telegram.ChatTypeGroup, 222))
		assert.False(t, v.Allowed)
		assert.Equal(t, replyUsePrivate, v.Reply)
		assert.Zero(t, members.calls)
	})
}

func TestSilentReject(t *testing.T) {
	gate := NewGate([]int64{111}, "-100200", &fakeMembers{}, true)

	v := gate.AdminOnly(context.Background(), message(telegram.ChatTypePrivate, 222))
	assert.False(t, v.Allowed)
	assert.Empty(t, v.Reply, "silent policy drops the rejection reply")

	v = gate.AdminOnly(context.Background(), message(telegram.ChatTypeGroup, 222))
	assert.False(t, v.Allowed)
	assert.Empty(t, v.Reply)
}
