package bot

import (
	"testing"

	"pgregory.net/rapid"

	"magic-rpg-bot/internal/config"
)

func TestAdminCheckProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numAdmins := rapid.IntRange(1, 10).Draw(t, "numAdmins")
		adminIDs := make([]int64, numAdmins)
		adminSet := make(map[int64]bool)
		for i := 0; i < numAdmins; i++ {
			adminIDs[i] = rapid.Int64Range(1, 1000000000).Draw(t, "adminID")
			adminSet[adminIDs[i]] = true
		}
		cfg := &config.Config{Admin: config.AdminConfig{IDs: adminIDs}}

		userID := rapid.Int64Range(1, 1000000000).Draw(t, "userID")
		if cfg.IsAdmin(userID) != adminSet[userID] {
			t.Fatalf("admin check mismatch: userID=%d adminIDs=%v", userID, adminIDs)
		}
	})
}

func TestWhitelistCheckProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numChats := rapid.IntRange(1, 10).Draw(t, "numChats")
		chatIDs := make([]int64, numChats)
		chatSet := make(map[int64]bool)
		for i := 0; i < numChats; i++ {
			chatIDs[i] = -rapid.Int64Range(1, 1000000000).Draw(t, "chatID")
			chatSet[chatIDs[i]] = true
		}
		cfg := &config.Config{Whitelist: config.WhitelistConfig{Chats: chatIDs}}

		testChatID := -rapid.Int64Range(1, 1000000000).Draw(t, "testChatID")
		if cfg.IsChatAllowed(testChatID) != chatSet[testChatID] {
			t.Fatalf("whitelist check mismatch: chatID=%d chats=%v", testChatID, chatIDs)
		}
	})
}

func TestEmptyWhitelistAllowsAllChats(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cfg := &config.Config{Whitelist: config.WhitelistConfig{Chats: []int64{}}}
		chatID := -rapid.Int64Range(1, 1000000000).Draw(t, "chatID")
		if !cfg.IsChatAllowed(chatID) {
			t.Fatalf("empty whitelist should allow chat %d", chatID)
		}
	})
}

func TestPrivateUserCacheRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		userID := rapid.Int64Range(1, 1000000000).Draw(t, "userID")
		AllowPrivateUser(userID)
		if !IsPrivateUserAllowed(userID) {
			t.Fatalf("user %d should be allowed after caching", userID)
		}
	})
}
