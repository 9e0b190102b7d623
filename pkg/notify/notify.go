package notify

import (
	"encoding/json"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/vacwatch/vacwatch/internal/utils"
	"github.com/vacwatch/vacwatch/pkg/whttp"
)

// Webhook posts plain-text notifications to a configured URL. An empty URL
// disables it. Delivery is best effort: failures are logged, never surfaced
// to the scrape run.
type Webhook struct {
	URL    string
	client *retryablehttp.Client
}

func NewWebhook(url string) *Webhook {
	return &Webhook{
		URL:    url,
		client: whttp.NewClient(2),
	}
}

func (w *Webhook) Send(text string) {
	if w == nil || w.URL == "" {
		return
	}

	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		utils.Log.Warnf("Webhook payload marshal failed: %v", err)
		return
	}

	res, err := whttp.SendHTTPRequest(&whttp.WHTTPReq{
		Method:  "POST",
		URL:     w.URL,
		Body:    string(payload),
		Headers: []whttp.WHTTPHeader{{Name: "Content-Type", Value: "application/json"}},
	}, w.client)
	if err != nil {
		utils.Log.Warnf("Webhook delivery failed: %v", err)
		return
	}
	if res.StatusCode >= 300 {
		utils.Log.Warnf("Webhook delivery got status %d", res.StatusCode)
	}
}
