package ai

import (
	"fmt"
	"strings"

	"couplebot/internal/scheduler"
)

// BuildPrompt renders the model prompt for a generation request. The global
// style comes from the stored AI settings; the per-partner style adds
// recipient-specific flavor on top.
func BuildPrompt(req scheduler.GenerateRequest) string {
	if req.Intent == scheduler.IntentGoodMorning {
		return goodMorningPrompt(req.Style, req.Settings.Style)
	}
	return fmt.Sprintf("Generate a %s message for my significant other.", req.Settings.Style)
}

func goodMorningPrompt(userStyle, globalStyle string) string {
	var b strings.Builder
	b.WriteString("Generate a good morning message for my significant other. ")
	if strings.TrimSpace(globalStyle) != "" {
		fmt.Fprintf(&b, "The message should be %s in tone. ", globalStyle)
	}

	switch strings.ToLower(strings.TrimSpace(userStyle)) {
	case "romantic":
		b.WriteString("Include romantic and affectionate language. ")
	case "humorous":
		b.WriteString("Include humor and lighthearted jokes. ")
	case "motivational":
		b.WriteString("Include motivational and inspiring content. ")
	}

	b.WriteString("Keep the message concise but meaningful.")
	return b.String()
}
