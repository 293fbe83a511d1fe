package notify

import (
	"github.com/obsidianstack/sentinel/pkg/types"
	"github.com/obsidianstack/sentinel/server/internal/config"
)

// DefaultPushCategory is used when no push category is configured.
const DefaultPushCategory = "alerts"

// WebhookTarget is one resolved webhook destination.
type WebhookTarget struct {
	Type string // slack | teams | pagerduty | http
	URL  string
}

// Recipients lists who receives alerts of one severity on each channel.
type Recipients struct {
	Email        []string
	SMS          []string
	PushCategory string
	Webhooks     []WebhookTarget
}

// RecipientTable maps a severity (or config.DefaultRecipientsKey) to its
// recipients.
type RecipientTable map[string]Recipients

// For returns the recipients of severity s, falling back to the default
// entry when s has none.
func (t RecipientTable) For(s types.Severity) Recipients {
	if r, ok := t[string(s)]; ok {
		return r
	}
	return t[config.DefaultRecipientsKey]
}

// RecipientsFromConfig resolves webhook URLs from the environment. Targets
// whose URL is unset are left out.
func RecipientsFromConfig(cfg map[string]config.RecipientsConfig) RecipientTable {
	out := make(RecipientTable, len(cfg))
	for key, rc := range cfg {
		r := Recipients{
			Email:        append([]string(nil), rc.Email...),
			SMS:          append([]string(nil), rc.SMS...),
			PushCategory: rc.PushCategory,
		}
		for _, wh := range rc.Webhooks {
			if url := wh.URL(); url != "" {
				r.Webhooks = append(r.Webhooks, WebhookTarget{Type: wh.Type, URL: url})
			}
		}
		out[key] = r
	}
	return out
}
