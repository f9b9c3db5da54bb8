package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/samber/lo"

	"github.com/foxseedlab/tsuyaku/internal/discord"
	"github.com/foxseedlab/tsuyaku/internal/failure"
	"github.com/foxseedlab/tsuyaku/internal/language"
	"github.com/foxseedlab/tsuyaku/internal/session"
	"github.com/foxseedlab/tsuyaku/internal/transcription"
)

// CapturerFactory builds the capture capability for one voice connection.
type CapturerFactory func(voice discord.VoiceConnection) transcription.Capturer

// Bot runs one interpreting session per voice channel, driven by slash
// commands. The bot host has no speaker, so sessions are created without a
// synthesizer.
type Bot struct {
	guildID       string
	defaultLocale string
	discord       discord.Client
	factory       *session.Factory
	normalizer    *language.Normalizer
	newCapturer   CapturerFactory

	ctx      context.Context
	mu       sync.Mutex
	sessions map[string]*channelSession
}

type channelSession struct {
	guildID   string
	channelID string
	voice     discord.VoiceConnection
	manager   *session.Manager
}

func NewBot(guildID, defaultLocale string, dc discord.Client, factory *session.Factory, normalizer *language.Normalizer, newCapturer CapturerFactory) *Bot {
	return &Bot{
		guildID:       guildID,
		defaultLocale: defaultLocale,
		discord:       dc,
		factory:       factory,
		normalizer:    normalizer,
		newCapturer:   newCapturer,
		ctx:           context.Background(),
		sessions:      make(map[string]*channelSession),
	}
}

// Start registers handlers and slash commands on a connected client.
func (b *Bot) Start(ctx context.Context) error {
	b.ctx = ctx
	b.discord.RegisterSlashCommandHandler(b.HandleSlashCommand)
	b.discord.RegisterVoiceStateUpdateHandler(b.HandleVoiceStateUpdate)
	if err := b.discord.UpsertGuildSlashCommands(b.guildID, b.slashCommands()); err != nil {
		return err
	}
	slog.Info("slash commands registered", "guild_id", b.guildID)
	return nil
}

func (b *Bot) slashCommands() []discord.SlashCommandDefinition {
	localeChoices := lo.Map(b.normalizer.RecognitionTags(), func(tag string, _ int) discord.SlashCommandChoice {
		return discord.SlashCommandChoice{Name: b.normalizer.SourceDisplayName(tag) + " (" + tag + ")", Value: tag}
	})
	targetChoices := lo.Map(b.normalizer.Registry().Entries(), func(e language.Entry, _ int) discord.SlashCommandChoice {
		return discord.SlashCommandChoice{Name: e.DisplayName, Value: e.Code}
	})
	return []discord.SlashCommandDefinition{
		{
			Name:        commandStart,
			Description: slashCommandStartDescription,
			Options: []discord.SlashCommandOption{
				{Name: optionLanguage, Description: optionLanguageDescription, Choices: localeChoices},
			},
		},
		{Name: commandStop, Description: slashCommandStopDescription},
		{
			Name:        commandTranslate,
			Description: slashCommandTranslateDescription,
			Options: []discord.SlashCommandOption{
				{Name: optionTarget, Description: optionTargetDescription, Required: true, Choices: targetChoices},
			},
		},
		{Name: commandClear, Description: slashCommandClearDescription},
		{Name: commandSpeak, Description: slashCommandSpeakDescription},
	}
}

func sessionKey(guildID, channelID string) string {
	return guildID + ":" + channelID
}

func (b *Bot) HandleSlashCommand(event discord.SlashCommandEvent) {
	respond := func(content string) {
		if event.RespondEphemeral == nil {
			return
		}
		if err := event.RespondEphemeral(content); err != nil {
			slog.Error("failed to respond to slash command", "error", err, "command", event.CommandName)
		}
	}

	if event.GuildID != b.guildID {
		respond(messageEphemeralWrongGuild)
		return
	}
	channelID, err := b.discord.GetUserVoiceChannelID(event.GuildID, event.UserID)
	if err != nil {
		slog.Error("failed to resolve user voice channel", "error", err, "guild_id", event.GuildID, "user_id", event.UserID)
		respond(messageEphemeralVoiceLookupFailed)
		return
	}
	if channelID == "" {
		respond(messageEphemeralJoinVCFirst)
		return
	}

	switch event.CommandName {
	case commandStart:
		respond(b.start(event.GuildID, channelID, event.Options[optionLanguage]))
	case commandStop:
		if !b.stopSession(event.GuildID, channelID, stopReasonManualSlash) {
			respond(messageEphemeralNotRunning)
			return
		}
		respond(stopEphemeralTitle(channelID) + "\n" + messageStopEphemeralHint)
	case commandTranslate:
		respond(b.translate(event.GuildID, channelID, event.Options[optionTarget]))
	case commandClear:
		respond(b.clear(event.GuildID, channelID))
	case commandSpeak:
		respond(b.speak(event.GuildID, channelID))
	default:
		respond(messageEphemeralUnknownCommand)
	}
}

func (b *Bot) lookup(guildID, channelID string) *channelSession {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sessions[sessionKey(guildID, channelID)]
}

func (b *Bot) start(guildID, channelID, locale string) string {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		locale = b.defaultLocale
	}
	sourceName := b.normalizer.SourceDisplayName(locale)

	if cs := b.lookup(guildID, channelID); cs != nil {
		if cs.manager.View().Transcript.IsCapturing {
			return messageEphemeralAlreadyRunning
		}
		// The previous stream ended on its own; capture again in place.
		if err := cs.manager.StartCapture(b.ctx, locale); err != nil {
			slog.Error("failed to resume capture", "error", err, "guild_id", guildID, "channel_id", channelID)
			return messageEphemeralStartFailed
		}
		b.post(channelID, messageResumeChannelTitle)
		return startEphemeralTitle(channelID, sourceName) + "\n" + messageStartEphemeralSecondLine
	}

	voice, err := b.discord.JoinVoiceChannel(guildID, channelID)
	if err != nil {
		slog.Error("failed to join voice channel", "error", err, "guild_id", guildID, "channel_id", channelID)
		return messageEphemeralStartFailed
	}
	slog.Info("joined voice channel", "guild_id", guildID, "channel_id", channelID)

	manager := b.factory.New(b.ctx, b.newCapturer(voice), nil)
	manager.SetPresenter(newChatPresenter(b.discord, channelID))
	if err := manager.StartCapture(b.ctx, locale); err != nil {
		slog.Error("failed to start capture", "error", err, "guild_id", guildID, "channel_id", channelID)
		manager.Close()
		_ = voice.Disconnect()
		return messageEphemeralStartFailed
	}

	cs := &channelSession{guildID: guildID, channelID: channelID, voice: voice, manager: manager}
	key := sessionKey(guildID, channelID)
	b.mu.Lock()
	existing := b.sessions[key]
	if existing == nil {
		b.sessions[key] = cs
	}
	b.mu.Unlock()
	if existing != nil {
		// Lost a race with a concurrent start for the same channel.
		manager.Close()
		return messageEphemeralAlreadyRunning
	}

	slog.Info("interpreting session started", "session_id", manager.ID(), "guild_id", guildID, "channel_id", channelID, "locale", locale)
	b.post(channelID, messageStartChannelTitle+"\n"+messageStartChannelHint)
	return startEphemeralTitle(channelID, sourceName) + "\n" + messageStartEphemeralSecondLine
}

func (b *Bot) translate(guildID, channelID, target string) string {
	cs := b.lookup(guildID, channelID)
	if cs == nil {
		return messageEphemeralNotRunning
	}
	target = strings.TrimSpace(target)
	if target == "" {
		return messageEphemeralMissingTarget
	}
	// Interactions must be answered quickly; the result is posted by the
	// presenter when it arrives.
	go cs.manager.Translate(b.ctx, target)
	return messageEphemeralTranslating
}

func (b *Bot) clear(guildID, channelID string) string {
	cs := b.lookup(guildID, channelID)
	if cs == nil {
		return messageEphemeralNotRunning
	}
	if err := cs.manager.Clear(); err != nil {
		if errors.Is(err, session.ErrTranslationInProgress) {
			return messageEphemeralClearBlocked
		}
		return fmt.Sprintf(messageErrorFormat, failure.Message(err))
	}
	return messageEphemeralCleared
}

func (b *Bot) speak(guildID, channelID string) string {
	cs := b.lookup(guildID, channelID)
	if cs == nil {
		return messageEphemeralNotRunning
	}
	if err := cs.manager.Speak(); err != nil {
		return fmt.Sprintf(messageErrorFormat, failure.Message(err))
	}
	return messageEphemeralSpeaking
}

func (b *Bot) HandleVoiceStateUpdate(event discord.VoiceStateEvent) {
	if event.GuildID != b.guildID || event.BeforeChannelID == "" {
		return
	}
	if b.lookup(event.GuildID, event.BeforeChannelID) == nil {
		return
	}

	botUserID, err := b.discord.GetBotUserID()
	if err == nil && event.UserID == botUserID {
		slog.Info("bot left voice channel", "guild_id", event.GuildID, "channel_id", event.BeforeChannelID, "moved_to", event.AfterChannelID)
		b.stopSession(event.GuildID, event.BeforeChannelID, stopReasonBotRemoved)
		return
	}
	if event.UserIsBot {
		return
	}

	participants, err := b.discord.ListVoiceChannelParticipants(event.GuildID, event.BeforeChannelID)
	if err != nil {
		slog.Error("failed to list voice participants", "error", err, "guild_id", event.GuildID, "channel_id", event.BeforeChannelID)
		return
	}
	humans := lo.CountBy(participants, func(p discord.VoiceParticipant) bool { return !p.IsBot })
	slog.Info("participant left interpreted channel", "guild_id", event.GuildID, "channel_id", event.BeforeChannelID, "user_id", event.UserID, "remaining_humans", humans)
	if humans == 0 {
		b.stopSession(event.GuildID, event.BeforeChannelID, stopReasonParticipantsLeft)
	}
}

// stopSession reports whether a session was running.
func (b *Bot) stopSession(guildID, channelID string, reason stopReason) bool {
	key := sessionKey(guildID, channelID)
	b.mu.Lock()
	cs, ok := b.sessions[key]
	delete(b.sessions, key)
	b.mu.Unlock()
	if !ok {
		return false
	}

	slog.Info("stopping interpreting session", "session_id", cs.manager.ID(), "channel_id", channelID, "reason", reason)
	cs.manager.Close()
	if reason != stopReasonBotRemoved {
		if err := cs.voice.Disconnect(); err != nil {
			slog.Warn("failed to disconnect voice", "error", err, "channel_id", channelID)
		}
	}
	b.post(channelID, stopChannelMessage(reason))
	return true
}

// Shutdown stops every running session.
func (b *Bot) Shutdown() {
	b.mu.Lock()
	running := lo.Values(b.sessions)
	b.mu.Unlock()
	for _, cs := range running {
		b.stopSession(cs.guildID, cs.channelID, stopReasonServerClosed)
	}
}

func (b *Bot) post(channelID, content string) {
	if err := b.discord.SendChannelMessage(channelID, content); err != nil {
		slog.Error("failed to post channel message", "error", err, "channel_id", channelID)
	}
}
