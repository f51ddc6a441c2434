// Package report delivers the end-of-run summary to Telegram and Discord.
package report

import (
	"fmt"
	"strings"

	apihttp "github.com/mrfarmer/rewards-farmer-bot/internal/adapters/http"
)

// Discord rejects message bodies over 2000 characters.
const discordMessageLimit = 2000

type TelegramSettings struct {
	Token  string
	ChatID string
	Proxy  string
}

// SendToTelegram posts the report through the bot API, optionally through a
// proxy when Telegram is blocked on the host network.
func SendToTelegram(settings TelegramSettings, text string) error {
	client, err := apihttp.NewAPIClient(settings.Proxy)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", settings.Token)
	_, err = client.Fetch(endpoint, &apihttp.FetchOptions{
		Method: "POST",
		Body: map[string]string{
			"chat_id": settings.ChatID,
			"text":    text,
		},
	})
	if err != nil {
		return fmt.Errorf("telegram delivery failed: %w", err)
	}
	return nil
}

// SendToDiscord posts the report to a webhook, split into chunks under the
// 2000 character limit.
func SendToDiscord(webhookURL, text string) error {
	client, err := apihttp.NewAPIClient("")
	if err != nil {
		return err
	}

	for _, chunk := range ChunkMessage(text, discordMessageLimit) {
		_, err := client.Fetch(webhookURL, &apihttp.FetchOptions{
			Method: "POST",
			Body:   map[string]string{"content": chunk},
		})
		if err != nil {
			return fmt.Errorf("discord delivery failed: %w", err)
		}
	}
	return nil
}

// ChunkMessage splits text into pieces no longer than limit, preferring line
// boundaries. A single oversized line is hard-split.
func ChunkMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	for _, line := range strings.Split(text, "\n") {
		for len(line) > limit {
			if current.Len() > 0 {
				chunks = append(chunks, current.String())
				current.Reset()
			}
			chunks = append(chunks, line[:limit])
			line = line[limit:]
		}
		extra := len(line)
		if current.Len() > 0 {
			extra++
		}
		if current.Len()+extra > limit {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}
