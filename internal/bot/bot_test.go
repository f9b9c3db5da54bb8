package bot

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/foxseedlab/tsuyaku/internal/discord"
	"github.com/foxseedlab/tsuyaku/internal/language"
	"github.com/foxseedlab/tsuyaku/internal/session"
	"github.com/foxseedlab/tsuyaku/internal/transcription"
	"github.com/foxseedlab/tsuyaku/internal/translation"
)

const (
	testGuildID   = "guild-1"
	testChannelID = "vc-1"
	testUserID    = "user-1"
	testBotUserID = "bot-1"
)

type mockVoice struct {
	mu          sync.Mutex
	disconnects int
}

func (v *mockVoice) Disconnect() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.disconnects++
	return nil
}

func (v *mockVoice) ReceiveAudio(func(string, []byte)) {}

func (v *mockVoice) disconnectCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.disconnects
}

type mockDiscord struct {
	mu           sync.Mutex
	userChannel  map[string]string
	participants []discord.VoiceParticipant
	voices       []*mockVoice
	messages     []string
	commands     []discord.SlashCommandDefinition
	slashHandler func(discord.SlashCommandEvent)
	voiceHandler func(discord.VoiceStateEvent)
}

func newMockDiscord() *mockDiscord {
	return &mockDiscord{userChannel: map[string]string{testUserID: testChannelID}}
}

func (d *mockDiscord) Connect(context.Context) error { return nil }
func (d *mockDiscord) Close() error                  { return nil }

func (d *mockDiscord) JoinVoiceChannel(string, string) (discord.VoiceConnection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v := &mockVoice{}
	d.voices = append(d.voices, v)
	return v, nil
}

func (d *mockDiscord) SendChannelMessage(_ string, content string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messages = append(d.messages, content)
	return nil
}

func (d *mockDiscord) RegisterVoiceStateUpdateHandler(h func(discord.VoiceStateEvent)) {
	d.voiceHandler = h
}

func (d *mockDiscord) RegisterSlashCommandHandler(h func(discord.SlashCommandEvent)) {
	d.slashHandler = h
}

func (d *mockDiscord) UpsertGuildSlashCommands(_ string, defs []discord.SlashCommandDefinition) error {
	d.commands = defs
	return nil
}

func (d *mockDiscord) GetUserVoiceChannelID(_ string, userID string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.userChannel[userID], nil
}

func (d *mockDiscord) ListVoiceChannelParticipants(string, string) ([]discord.VoiceParticipant, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.participants, nil
}

func (d *mockDiscord) GetBotUserID() (string, error) { return testBotUserID, nil }
func (d *mockDiscord) Run(context.Context) error      { return nil }

func (d *mockDiscord) hasMessage(substr string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, m := range d.messages {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

func (d *mockDiscord) voice(i int) *mockVoice {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.voices[i]
}

type mockStream struct {
	events   chan transcription.Event
	stopOnce sync.Once
}

func (s *mockStream) Events() <-chan transcription.Event { return s.events }

func (s *mockStream) Stop() error {
	s.stopOnce.Do(func() { close(s.events) })
	return nil
}

type mockCapturer struct {
	mu      sync.Mutex
	locales []string
	streams []*mockStream
}

func (c *mockCapturer) Start(_ context.Context, localeTag string) (transcription.Stream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := &mockStream{events: make(chan transcription.Event, 8)}
	c.locales = append(c.locales, localeTag)
	c.streams = append(c.streams, s)
	return s, nil
}

func (c *mockCapturer) last() (*mockStream, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streams[len(c.streams)-1], c.locales[len(c.locales)-1]
}

type mockGateway struct{}

func (mockGateway) Translate(_ context.Context, req translation.GatewayRequest) (translation.GatewayResponse, error) {
	return translation.GatewayResponse{
		Success:            true,
		TranslatedText:     "Hola",
		TargetLanguage:     "Spanish",
		SourceLanguage:     "English",
		TargetLanguageCode: req.TargetLanguageCode,
	}, nil
}

func newTestBot(t *testing.T) (*Bot, *mockDiscord, *mockCapturer) {
	t.Helper()
	normalizer := language.NewNormalizer(language.DefaultRegistry())
	factory := session.NewFactory(translation.NewOrchestrator(mockGateway{}, normalizer), normalizer, nil)
	dc := newMockDiscord()
	capturer := &mockCapturer{}
	b := NewBot(testGuildID, "en-US", dc, factory, normalizer, func(discord.VoiceConnection) transcription.Capturer {
		return capturer
	})
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	t.Cleanup(b.Shutdown)
	return b, dc, capturer
}

func runCommand(dc *mockDiscord, name string, options map[string]string) string {
	var reply string
	dc.slashHandler(discord.SlashCommandEvent{
		GuildID:     testGuildID,
		ChannelID:   "text-1",
		CommandName: name,
		UserID:      testUserID,
		Options:     options,
		RespondEphemeral: func(content string) error {
			reply = content
			return nil
		},
	})
	return reply
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBot_RegistersSlashCommands(t *testing.T) {
	_, dc, _ := newTestBot(t)
	if len(dc.commands) != 5 {
		t.Fatalf("expected 5 commands, got %d", len(dc.commands))
	}
	translate := dc.commands[2]
	if translate.Name != commandTranslate || !translate.Options[0].Required || len(translate.Options[0].Choices) != 10 {
		t.Fatalf("unexpected translate command: %+v", translate)
	}
}

func TestBot_RejectsOtherGuild(t *testing.T) {
	_, dc, _ := newTestBot(t)
	var reply string
	dc.slashHandler(discord.SlashCommandEvent{
		GuildID:          "other",
		CommandName:      commandStart,
		UserID:           testUserID,
		RespondEphemeral: func(c string) error { reply = c; return nil },
	})
	if reply != messageEphemeralWrongGuild {
		t.Fatalf("unexpected reply: %q", reply)
	}
}

func TestBot_RequiresVoiceChannel(t *testing.T) {
	_, dc, _ := newTestBot(t)
	dc.userChannel = map[string]string{}
	if reply := runCommand(dc, commandStart, nil); reply != messageEphemeralJoinVCFirst {
		t.Fatalf("unexpected reply: %q", reply)
	}
}

func TestBot_StartAndAlreadyRunning(t *testing.T) {
	_, dc, capturer := newTestBot(t)

	reply := runCommand(dc, commandStart, map[string]string{optionLanguage: "es-MX"})
	if !strings.Contains(reply, testChannelID) || !strings.Contains(reply, "Spanish") {
		t.Fatalf("unexpected start reply: %q", reply)
	}
	if _, locale := capturer.last(); locale != "es-MX" {
		t.Fatalf("expected es-MX capture, got %s", locale)
	}
	if !dc.hasMessage(messageStartChannelTitle) {
		t.Fatal("expected start message in channel")
	}

	if reply := runCommand(dc, commandStart, nil); reply != messageEphemeralAlreadyRunning {
		t.Fatalf("unexpected second start reply: %q", reply)
	}
}

func TestBot_StartUsesDefaultLocale(t *testing.T) {
	_, dc, capturer := newTestBot(t)
	runCommand(dc, commandStart, nil)
	if _, locale := capturer.last(); locale != "en-US" {
		t.Fatalf("expected default locale, got %s", locale)
	}
}

func TestBot_StartResumesEndedCapture(t *testing.T) {
	b, dc, capturer := newTestBot(t)
	runCommand(dc, commandStart, nil)
	stream, _ := capturer.last()
	stream.events <- transcription.Event{Kind: transcription.EventEnd}

	cs := b.lookup(testGuildID, testChannelID)
	waitFor(t, func() bool { return !cs.manager.View().Transcript.IsCapturing })

	reply := runCommand(dc, commandStart, nil)
	if !strings.Contains(reply, testChannelID) {
		t.Fatalf("unexpected resume reply: %q", reply)
	}
	if !dc.hasMessage(messageResumeChannelTitle) {
		t.Fatal("expected resume message")
	}
}

func TestBot_StopWithoutSession(t *testing.T) {
	_, dc, _ := newTestBot(t)
	if reply := runCommand(dc, commandStop, nil); reply != messageEphemeralNotRunning {
		t.Fatalf("unexpected reply: %q", reply)
	}
}

func TestBot_StopDisconnectsAndPosts(t *testing.T) {
	b, dc, _ := newTestBot(t)
	runCommand(dc, commandStart, nil)

	reply := runCommand(dc, commandStop, nil)
	if !strings.Contains(reply, testChannelID) {
		t.Fatalf("unexpected stop reply: %q", reply)
	}
	if dc.voice(0).disconnectCount() != 1 {
		t.Fatal("expected voice disconnect")
	}
	if !dc.hasMessage(stopReasonDetail(stopReasonManualSlash)) {
		t.Fatal("expected stop message with reason")
	}
	if b.lookup(testGuildID, testChannelID) != nil {
		t.Fatal("session should be removed")
	}
}

func TestBot_TranscriptAndTranslationArePosted(t *testing.T) {
	_, dc, capturer := newTestBot(t)
	runCommand(dc, commandStart, nil)
	stream, _ := capturer.last()
	stream.events <- transcription.Event{Kind: transcription.EventResults, Results: []transcription.Result{{Index: 0, Text: "Hello", IsFinal: true}}}
	waitFor(t, func() bool { return dc.hasMessage(":speech_balloon: Hello") })

	if reply := runCommand(dc, commandTranslate, map[string]string{optionTarget: "es"}); reply != messageEphemeralTranslating {
		t.Fatalf("unexpected translate reply: %q", reply)
	}
	waitFor(t, func() bool { return dc.hasMessage("**Spanish** (from English)\nHola") })
}

func TestBot_TranslateRequiresTarget(t *testing.T) {
	_, dc, _ := newTestBot(t)
	runCommand(dc, commandStart, nil)
	if reply := runCommand(dc, commandTranslate, nil); reply != messageEphemeralMissingTarget {
		t.Fatalf("unexpected reply: %q", reply)
	}
}

func TestBot_SpeakWithoutSynthesizer(t *testing.T) {
	_, dc, _ := newTestBot(t)
	runCommand(dc, commandStart, nil)
	reply := runCommand(dc, commandSpeak, nil)
	if !strings.Contains(reply, "Text-to-Speech is not supported") {
		t.Fatalf("unexpected reply: %q", reply)
	}
}

func TestBot_Clear(t *testing.T) {
	_, dc, _ := newTestBot(t)
	if reply := runCommand(dc, commandClear, nil); reply != messageEphemeralNotRunning {
		t.Fatalf("unexpected reply without session: %q", reply)
	}
	runCommand(dc, commandStart, nil)
	if reply := runCommand(dc, commandClear, nil); reply != messageEphemeralCleared {
		t.Fatalf("unexpected reply: %q", reply)
	}
}

func TestBot_StopsWhenHumansLeave(t *testing.T) {
	b, dc, _ := newTestBot(t)
	runCommand(dc, commandStart, nil)

	dc.participants = []discord.VoiceParticipant{{UserID: testBotUserID, IsBot: true}}
	dc.voiceHandler(discord.VoiceStateEvent{GuildID: testGuildID, UserID: testUserID, BeforeChannelID: testChannelID})

	if b.lookup(testGuildID, testChannelID) != nil {
		t.Fatal("expected session to stop")
	}
	if !dc.hasMessage(stopReasonDetail(stopReasonParticipantsLeft)) {
		t.Fatal("expected participants-left message")
	}
}

func TestBot_KeepsRunningWhileHumansRemain(t *testing.T) {
	b, dc, _ := newTestBot(t)
	runCommand(dc, commandStart, nil)

	dc.participants = []discord.VoiceParticipant{{UserID: "user-2"}, {UserID: testBotUserID, IsBot: true}}
	dc.voiceHandler(discord.VoiceStateEvent{GuildID: testGuildID, UserID: testUserID, BeforeChannelID: testChannelID})

	if b.lookup(testGuildID, testChannelID) == nil {
		t.Fatal("session should keep running")
	}
}

func TestBot_StopsWhenBotRemoved(t *testing.T) {
	b, dc, _ := newTestBot(t)
	runCommand(dc, commandStart, nil)

	dc.voiceHandler(discord.VoiceStateEvent{GuildID: testGuildID, UserID: testBotUserID, UserIsBot: true, BeforeChannelID: testChannelID})

	if b.lookup(testGuildID, testChannelID) != nil {
		t.Fatal("expected session to stop")
	}
	if dc.voice(0).disconnectCount() != 0 {
		t.Fatal("a removed bot must not disconnect again")
	}
}
