package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"GenAIMonitor/internal/domain"
	"GenAIMonitor/internal/ports"
)

const (
	defaultAPIBase = "https://api.telegram.org"
	// maxListed caps how many new articles are listed in one message.
	maxListed = 10
)

// Notifier sends run summaries to a Telegram chat via bot API.
type Notifier struct {
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(botToken, chatID string) *Notifier {
	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  defaultAPIBase,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// WithAPIBase points the notifier at another Bot API host.
func (n *Notifier) WithAPIBase(base string) *Notifier {
	n.apiBase = strings.TrimRight(base, "/")
	return n
}

// NotifyRun posts a Markdown summary of the run to Telegram.
func (n *Notifier) NotifyRun(ctx context.Context, report domain.RunReport) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", FormatReport(report))
	form.Set("parse_mode", "Markdown")
	form.Set("disable_web_page_preview", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}

// FormatReport renders the run as Telegram Markdown.
func FormatReport(report domain.RunReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*GenAI monitor run* `%s`\n", report.RunID)
	fmt.Fprintf(&b, "Sources: %d attempted, %d ok, %d unchanged, %d failed\n",
		report.SourcesAttempted, report.SourcesSucceeded, report.SourcesUnchanged, len(report.SourcesFailed))
	fmt.Fprintf(&b, "New articles: %d (%s)\n", report.ArticlesFound, report.Duration().Round(time.Second))

	for i, a := range report.NewArticles {
		if i == maxListed {
			fmt.Fprintf(&b, "_...and %d more_\n", len(report.NewArticles)-maxListed)
			break
		}
		fmt.Fprintf(&b, "\n• [%s](%s) _%s_", escape(a.Title), a.URL, escape(string(a.Sector)))
	}

	if len(report.SourcesFailed) > 0 {
		b.WriteString("\n\n*Failures*")
		for _, f := range report.SourcesFailed {
			fmt.Fprintf(&b, "\n• %s: %s", escape(f.SourceID), escape(string(f.Reason)))
		}
	}
	return b.String()
}

var markdownEscaper = strings.NewReplacer("_", `\_`, "*", `\*`, "`", "\\`", "[", `\[`)

func escape(s string) string {
	return markdownEscaper.Replace(s)
}
