// Package notify posts scoring results to a Slack incoming webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/merlin/internal/config"
	"github.com/sells-group/merlin/internal/model"
)

// DefaultTopN is used when notify.top_n is unset.
const DefaultTopN = 10

// Notifier sends leaderboards to Slack.
type Notifier struct {
	cfg     config.NotifyConfig
	client  *http.Client
	printer *message.Printer
}

// New creates a Notifier. An empty webhook URL yields a Notifier whose sends
// are skipped.
func New(cfg config.NotifyConfig) *Notifier {
	return &Notifier{
		cfg:     cfg,
		client:  &http.Client{Timeout: 10 * time.Second},
		printer: message.NewPrinter(language.English),
	}
}

// Enabled reports whether a webhook is configured.
func (n *Notifier) Enabled() bool {
	return n.cfg.SlackWebhookURL != ""
}

type slackMessage struct {
	Text     string `json:"text"`
	Username string `json:"username,omitempty"`
}

// SendLeaderboard posts the top records, which must already be ranked, as
// a code block.
func (n *Notifier) SendLeaderboard(ctx context.Context, records []model.ScoredCompanyRecord) error {
	if !n.Enabled() {
		zap.L().Warn("notify: slack webhook not configured; skipping leaderboard")
		return nil
	}
	if err := n.SendText(ctx, n.FormatLeaderboard(records)); err != nil {
		return err
	}
	zap.L().Info("notify: leaderboard sent", zap.Int("companies", min(len(records), n.topN())))
	return nil
}

// SendText posts a plain message.
func (n *Notifier) SendText(ctx context.Context, text string) error {
	if !n.Enabled() {
		zap.L().Warn("notify: slack webhook not configured; skipping message")
		return nil
	}

	payload, err := json.Marshal(slackMessage{Text: text, Username: n.cfg.Username})
	if err != nil {
		return eris.Wrap(err, "notify: marshal message")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.SlackWebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "notify: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "notify: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("notify: webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func (n *Notifier) topN() int {
	if n.cfg.TopN > 0 {
		return n.cfg.TopN
	}
	return DefaultTopN
}

// FormatLeaderboard renders the Slack message body.
func (n *Notifier) FormatLeaderboard(records []model.ScoredCompanyRecord) string {
	top := records
	if len(top) > n.topN() {
		top = top[:n.topN()]
	}

	var b strings.Builder
	_, _ = n.printer.Fprintf(&b, "*Company leaderboard* (top %d of %d)\n", len(top), len(records))
	b.WriteString("```")
	if len(top) == 0 {
		b.WriteString("no companies scored\n")
	}
	for i, r := range top {
		fmt.Fprintf(&b, "%2d. %-28s %6.2f  (team %6.2f, market %6.2f, funding %6.2f)  %s\n",
			i+1, r.Name, r.Scores.Total, r.Scores.Team, r.Scores.Market, r.Scores.Funding,
			n.fundingLabel(r))
	}
	b.WriteString("```")
	return b.String()
}

func (n *Notifier) fundingLabel(r model.ScoredCompanyRecord) string {
	stage := r.Stage
	if stage == "" {
		stage = "unknown stage"
	}
	if r.FundingTotal == nil {
		return stage
	}
	return fmt.Sprintf("%s, %s raised", stage, n.printer.Sprintf("$%d", *r.FundingTotal))
}
