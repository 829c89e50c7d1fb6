package discord

import (
	"regexp"
	"strings"

	discordapi "github.com/iiimabbie/dcbot/discord"
)

var mentionTagPattern = regexp.MustCompile(`<@!?\d+>`)

// mentionsUser reports whether msg addresses userID, either through the
// resolved mentions array or a raw mention tag in the content.
func mentionsUser(msg discordapi.Message, userID string) bool {
	if userID == "" {
		return false
	}
	for _, u := range msg.Mentions {
		if u.ID == userID {
			return true
		}
	}
	return strings.Contains(msg.Content, "<@"+userID+">") ||
		strings.Contains(msg.Content, "<@!"+userID+">")
}

// cleanContent strips mention tags from text so the model sees the words,
// not the markup. A message that was only a mention cleans to "".
func cleanContent(text string) string {
	return strings.TrimSpace(mentionTagPattern.ReplaceAllString(text, ""))
}

func isDirectChannel(channelType int) bool {
	return channelType == discordapi.ChannelTypeDM
}

func isThreadChannel(channelType int) bool {
	return channelType == discordapi.ChannelTypePublicThread ||
		channelType == discordapi.ChannelTypePrivateThread
}

// splitMessage chunks text at limit runes, preferring newline then space
// boundaries so chunks do not cut words mid-way.
func splitMessage(text string, limit int) []string {
	if limit <= 0 || len([]rune(text)) <= limit {
		return []string{text}
	}
	runes := []rune(text)
	var chunks []string
	for len(runes) > 0 {
		if len(runes) <= limit {
			chunks = append(chunks, string(runes))
			break
		}
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		if cut == limit {
			for i := limit; i > limit/2; i-- {
				if runes[i-1] == ' ' {
					cut = i
					break
				}
			}
		}
		chunks = append(chunks, strings.TrimRight(string(runes[:cut]), " \n"))
		runes = runes[cut:]
	}
	return chunks
}
