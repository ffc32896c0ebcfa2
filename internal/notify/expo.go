package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const DefaultExpoEndpoint = "https://exp.host/--/api/v2/push/send"

type expoPushMessage struct {
	To    string `json:"to"`
	Title string `json:"title"`
	Body  string `json:"body"`
	Sound string `json:"sound"`
}

// ExpoNotifier delivers pushes through Expo's HTTP endpoint, which is
// what the mobile client registers its device tokens with.
type ExpoNotifier struct {
	endpoint string
	client   *http.Client
}

func NewExpoNotifier(endpoint string) *ExpoNotifier {
	if endpoint == "" {
		endpoint = DefaultExpoEndpoint
	}

	return &ExpoNotifier{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (n *ExpoNotifier) Deliver(token, title, body string) error {
	payload, err := json.Marshal(expoPushMessage{
		To:    token,
		Title: title,
		Body:  body,
		Sound: "default",
	})
	if err != nil {
		return fmt.Errorf("marshal push message: %w", err)
	}

	resp, err := n.client.Post(n.endpoint, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("post push message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("push delivery failed: %s", resp.Status)
	}

	return nil
}
