package bot

import "fmt"

const (
	commandStart     = "tsuyaku-start"
	commandStop      = "tsuyaku-stop"
	commandTranslate = "tsuyaku-translate"
	commandClear     = "tsuyaku-clear"
	commandSpeak     = "tsuyaku-speak"

	optionLanguage = "language"
	optionTarget   = "target"

	slashCommandStartDescription     = "Start interpreting the voice channel you are in."
	slashCommandStopDescription      = "Stop interpreting the voice channel you are in."
	slashCommandTranslateDescription = "Translate what has been said so far."
	slashCommandClearDescription     = "Clear the transcript collected so far."
	slashCommandSpeakDescription     = "Read the latest translation aloud."
	optionLanguageDescription        = "Language being spoken (defaults to the server setting)."
	optionTargetDescription          = "Language to translate into."

	messageEphemeralWrongGuild        = ":warning: **This command cannot be used in this server.**"
	messageEphemeralUnknownCommand    = ":warning: **Unknown command.**"
	messageEphemeralVoiceLookupFailed = ":warning: **Could not check your voice channel.**"
	messageEphemeralJoinVCFirst       = ":warning: **Join a voice channel first.**"
	messageEphemeralAlreadyRunning    = ":warning: **Interpreting is already running in this voice channel.**"
	messageEphemeralStartFailed       = ":warning: **Failed to start interpreting.**"
	messageEphemeralNotRunning        = ":warning: **Interpreting is not running in this voice channel.**"
	messageEphemeralMissingTarget     = ":warning: **Choose a language to translate into.**"
	messageEphemeralTranslating       = ":hourglass_flowing_sand: **Translating...** The result will be posted in the voice channel chat."
	messageEphemeralCleared           = ":wastebasket: **Transcript cleared.**"
	messageEphemeralClearBlocked      = ":warning: **Wait for the translation to finish before clearing.**"
	messageEphemeralSpeaking          = ":loud_sound: **Speaking.**"
	messagePoweredByLine              = "-# *Powered by [tsuyaku](https://github.com/foxseedlab/tsuyaku)*"

	messageStartChannelTitle  = ":microphone2: **Interpreting started.**"
	messageStartChannelHint   = "-# Use /tsuyaku-translate to translate and /tsuyaku-stop to stop."
	messageResumeChannelTitle = ":microphone2: **Interpreting resumed.**"

	messageStopChannelTitle = ":pause_button:  **Interpreting stopped.**"
	messageStopRestart      = "Use /tsuyaku-start to start."
	messageStopRestartAgain = "Use /tsuyaku-start to start again."

	messageTranscriptFormat  = ":speech_balloon: %s"
	messageTranslationFormat = ":globe_with_meridians: **%s** (from %s)\n%s"
	messageErrorFormat       = ":warning: **%s**"

	messageStartEphemeralTitleFormat = ":microphone2: **Interpreting started in** <#%s> **(%s).**"
	messageStopEphemeralTitleFormat  = ":pause_button:  **Interpreting stopped in** <#%s>**.**"
	messageStartEphemeralSecondLine  = "-# The transcript and translations are posted in the voice channel chat."
	messageStopEphemeralHint         = "-# Use /tsuyaku-start to start."
)

type stopReason string

const (
	stopReasonManualSlash      stopReason = "manual_slash"
	stopReasonParticipantsLeft stopReason = "participants_left"
	stopReasonBotRemoved       stopReason = "bot_removed"
	stopReasonServerClosed     stopReason = "server_closed"
)

func startEphemeralTitle(channelID, sourceName string) string {
	return fmt.Sprintf(messageStartEphemeralTitleFormat, channelID, sourceName)
}

func stopEphemeralTitle(channelID string) string {
	return fmt.Sprintf(messageStopEphemeralTitleFormat, channelID)
}

func stopReasonDetail(reason stopReason) string {
	switch reason {
	case stopReasonManualSlash:
		return "A participant ran the stop command."
	case stopReasonParticipantsLeft:
		return "Everyone left the voice channel."
	case stopReasonBotRemoved:
		return "The interpreter bot was disconnected."
	case stopReasonServerClosed:
		return "The interpreter server shut down."
	default:
		return "An unknown error occurred."
	}
}

func stopReasonNeedsRestartAgain(reason stopReason) bool {
	return reason == stopReasonServerClosed || reason == stopReasonBotRemoved
}

func stopChannelMessage(reason stopReason) string {
	restart := messageStopRestart
	if stopReasonNeedsRestartAgain(reason) {
		restart = messageStopRestartAgain
	}
	return messageStopChannelTitle + "\n" + stopReasonDetail(reason) + "\n-# " + restart + "\n" + messagePoweredByLine
}
