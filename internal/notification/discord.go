package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/glacier-albedo/modis-albedo-cli/internal/properties"
)

const (
	colorRed    = 16711680
	colorGreen  = 65280
	colorOrange = 16753920
)

type DiscordMessage struct {
	Embeds []DiscordEmbed `json:"embeds"`
}

type DiscordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
}

// Notifier posts embeds to Discord webhooks. An empty URL disables that kind
// of message.
type Notifier struct {
	ErrorURL   string
	SuccessURL string
	Client     *http.Client
}

// FromEnv builds a notifier from the webhook URLs in the environment.
func FromEnv() *Notifier {
	return &Notifier{
		ErrorURL:   properties.DiscordErrorNotificationUrl(),
		SuccessURL: properties.DiscordSuccessNotificationUrl(),
		Client:     http.DefaultClient,
	}
}

func (n *Notifier) Error(message string) error {
	return n.send(n.ErrorURL, DiscordEmbed{
		Title:       "🚨 Error Notification",
		Description: fmt.Sprintf("An error occurred: %s", message),
		Color:       colorRed,
	})
}

func (n *Notifier) Warning(message string) error {
	return n.send(n.ErrorURL, DiscordEmbed{
		Title:       "⚠️ Warning Notification",
		Description: message,
		Color:       colorOrange,
	})
}

func (n *Notifier) Success(message string) error {
	return n.send(n.SuccessURL, DiscordEmbed{
		Title:       "✅ Success Notification",
		Description: message,
		Color:       colorGreen,
	})
}

func (n *Notifier) send(url string, embed DiscordEmbed) error {
	if url == "" {
		return nil
	}
	payload, err := json.Marshal(DiscordMessage{Embeds: []DiscordEmbed{embed}})
	if err != nil {
		return err
	}

	client := n.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Post(url, "application/json", bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to send Discord notification, status code: %d", resp.StatusCode)
	}
	return nil
}
