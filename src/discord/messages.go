package discord

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
)

// MaxDiscordMessageLen is the platform's hard limit for message content.
const MaxDiscordMessageLen = 2000

// Reply is the outcome of a command: text, optionally with one file attached.
type Reply struct {
	Content  string
	FileName string
	File     []byte
	// Public replies are visible to the whole channel; the rest are ephemeral.
	Public bool
}

// HasFile reports whether the reply carries an attachment.
func (r Reply) HasFile() bool {
	return r.FileName != "" && r.File != nil
}

// CodeBlockOrFile renders body inside a code block when it fits a single
// message, and as an attachment named fileName otherwise. intro goes above
// the block, or alone when the body is attached.
func CodeBlockOrFile(intro, lang, body, fileName string) Reply {
	block := "```" + lang + "\n" + body + "\n```"
	text := block
	if intro != "" {
		text = intro + "\n" + block
	}
	if len(body) < MaxDiscordMessageLen && len(text) <= MaxDiscordMessageLen {
		return Reply{Content: text}
	}
	return Reply{Content: intro, FileName: fileName, File: []byte(body)}
}

// Truncate shortens value to at most limit bytes on a rune boundary, marking
// the cut with an ellipsis.
func Truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	if limit <= 3 {
		return value[:limit]
	}
	cut := limit - 3
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return strings.TrimRight(value[:cut], " ") + "..."
}

// Respond answers an interaction with reply. Mentions in the text never ping.
func Respond(s *discordgo.Session, interaction *discordgo.Interaction, reply Reply) error {
	data := &discordgo.InteractionResponseData{
		Content:         Truncate(reply.Content, MaxDiscordMessageLen),
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}
	if !reply.Public {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	if reply.HasFile() {
		data.Files = []*discordgo.File{{
			Name:        reply.FileName,
			ContentType: "text/plain",
			Reader:      bytes.NewReader(reply.File),
		}}
	}
	return s.InteractionRespond(interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
}

// Defer acknowledges an interaction that needs more than three seconds.
func Defer(s *discordgo.Session, interaction *discordgo.Interaction, public bool) error {
	data := &discordgo.InteractionResponseData{}
	if !public {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return s.InteractionRespond(interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: data,
	})
}

// EditDeferred fills in a deferred interaction response.
func EditDeferred(s *discordgo.Session, interaction *discordgo.Interaction, reply Reply) error {
	content := Truncate(reply.Content, MaxDiscordMessageLen)
	edit := &discordgo.WebhookEdit{
		Content:         &content,
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}
	if reply.HasFile() {
		edit.Files = []*discordgo.File{{
			Name:        reply.FileName,
			ContentType: "text/plain",
			Reader:      bytes.NewReader(reply.File),
		}}
	}
	_, err := s.InteractionResponseEdit(interaction, edit)
	return err
}

// SendLog posts a line to a log channel without pinging anyone.
func SendLog(s *discordgo.Session, channelID, content string) error {
	_, err := s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:         Truncate(content, MaxDiscordMessageLen),
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	})
	return err
}
