package service

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/funnel-bot/internal/config"
	"github.com/spec-kit/funnel-bot/internal/domain"
	"github.com/spec-kit/funnel-bot/internal/telegram"
)

func newTestModeration(t *testing.T) (*ModerationService, *fakeMessenger, *fakeLinkRepo) {
	t.Helper()
	messenger := newFakeMessenger()
	links := &fakeLinkRepo{}
	svc := NewModerationService(config.ModerationConfig{
		SpamKeywords:   []string{"free money", "dm me"},
		FloodLimit:     5,
		AllowedDomains: []string{"t.me", "youtube.com", "meet.google.com"},
	}, ModerationDependencies{
		Transport:   messenger,
		Links:       links,
		Subscribers: newFakeSubscriberRepo(),
	}, zap.NewNop())
	return svc, messenger, links
}

func groupMessage(text string) *telegram.IncomingMessage {
	return &telegram.IncomingMessage{
		MessageID: 10,
		From:      &telegram.User{ID: 7, FirstName: "Ana"},
		Chat:      telegram.Chat{ID: -100123, Type: "supergroup"},
		Date:      time.Now().Unix(),
		Text:      text,
	}
}

func TestModerationDeletesSpamKeyword(t *testing.T) {
	svc, messenger, _ := newTestModeration(t)

	err := svc.HandleMessage(context.Background(), groupMessage("FREE MONEY for everyone"))
	require.NoError(t, err)

	require.Equal(t, []int64{10}, messenger.deleted)
	require.Len(t, messenger.sent, 1)
	require.Contains(t, messenger.sent[0].text, "your message was removed")
}

func TestModerationIgnoresCleanMessage(t *testing.T) {
	svc, messenger, _ := newTestModeration(t)

	err := svc.HandleMessage(context.Background(), groupMessage("good morning everyone"))
	require.NoError(t, err)

	require.Empty(t, messenger.deleted)
	require.Empty(t, messenger.sent)
}

func TestModerationIgnoresBotsAndEmptySenders(t *testing.T) {
	svc, messenger, _ := newTestModeration(t)

	msg := groupMessage("free money")
	msg.From.IsBot = true
	require.NoError(t, svc.HandleMessage(context.Background(), msg))

	msg = groupMessage("free money")
	msg.From = nil
	require.NoError(t, svc.HandleMessage(context.Background(), msg))

	require.Empty(t, messenger.deleted)
}

func TestModerationTracksAllowedLinks(t *testing.T) {
	svc, messenger, links := newTestModeration(t)

	err := svc.HandleMessage(context.Background(), groupMessage("watch https://www.youtube.com/watch?v=abc"))
	require.NoError(t, err)

	require.Empty(t, messenger.deleted)
	require.Len(t, links.clicks, 1)
	require.Equal(t, domain.LinkTypeAllowed, links.clicks[0].LinkType)
	require.Equal(t, "youtube.com", links.clicks[0].Domain)
}

func TestModerationRemovesExternalLinks(t *testing.T) {
	svc, messenger, links := newTestModeration(t)

	err := svc.HandleMessage(context.Background(), groupMessage("buy at https://sketchy.example.io/offer"))
	require.NoError(t, err)

	require.Equal(t, []int64{10}, messenger.deleted)
	require.Len(t, links.clicks, 1)
	require.Equal(t, domain.LinkTypeExternal, links.clicks[0].LinkType)
}

func TestModerationClassifiesInternalLinks(t *testing.T) {
	svc, messenger, links := newTestModeration(t)

	err := svc.HandleMessage(context.Background(), groupMessage("join https://t.me/some_group"))
	require.NoError(t, err)

	require.Empty(t, messenger.deleted)
	require.Len(t, links.clicks, 1)
	require.Equal(t, domain.LinkTypeInternal, links.clicks[0].LinkType)
}

func TestRefreshProfileDoesNotReactivate(t *testing.T) {
	repo := newFakeSubscriberRepo()
	svc := NewModerationService(config.ModerationConfig{}, ModerationDependencies{
		Transport:   newFakeMessenger(),
		Links:       &fakeLinkRepo{},
		Subscribers: repo,
	}, zap.NewNop())

	seed := &domain.Subscriber{UserID: 7, FirstName: "Ana"}
	require.NoError(t, repo.Upsert(context.Background(), seed))
	require.NoError(t, repo.Deactivate(context.Background(), 7))

	svc.RefreshProfile(context.Background(), &telegram.User{ID: 7, FirstName: "Anna", Username: "anna"}, time.Now().UTC())

	// Chat activity refreshes the profile but a blocked recipient stays out
	// of the funnel until they rejoin or /start the bot themselves.
	sub, err := repo.GetByID(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, "Anna", sub.FirstName)
	require.False(t, sub.Active)
}

func TestPreviewTruncatesOnRuneBoundary(t *testing.T) {
	text := strings.Repeat("a", 79) + "日本語のテキスト"

	got := preview(text)
	require.LessOrEqual(t, len(got), 80)
	require.True(t, utf8.ValidString(got))
	require.Equal(t, strings.Repeat("a", 79), got)

	short := "short メッセージ"
	require.Equal(t, short, preview(short))
}
