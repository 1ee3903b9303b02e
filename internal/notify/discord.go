package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Discord delivers notifications through a Discord webhook.
type Discord struct {
	Webhook string
	Client  *http.Client
}

func NewDiscord(webhook string) *Discord {
	if webhook == "" {
		return nil
	}
	return &Discord{
		Webhook: webhook,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type discordPayload struct {
	Content string `json:"content"`
}

func (d *Discord) Send(ctx context.Context, title, text string) error {
	if d == nil || d.Webhook == "" {
		return errors.New("discord disabled")
	}
	body, _ := json.Marshal(discordPayload{Content: "**" + title + "**\n" + text})
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, d.Webhook, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("discord webhook returned %s", resp.Status)
	}
	return nil
}
