package pipeline

import "strings"

const (
	noSpeechReply    = "No speech detected."
	transcriptPrefix = "Transcription:\n\n"
)

// FormatReply builds the reply body for a transcription result. Non-empty
// text is included verbatim, without truncation or re-encoding.
func FormatReply(text string) string {
	if strings.TrimSpace(text) == "" {
		return noSpeechReply
	}
	return transcriptPrefix + text
}
