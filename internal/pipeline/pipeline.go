package pipeline

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/urbeneye/leadsync/internal/config"
	"github.com/urbeneye/leadsync/internal/model"
	"github.com/urbeneye/leadsync/pkg/airtable"
	"github.com/urbeneye/leadsync/pkg/graph"
)

// Pipeline runs one discrete ingestion pass over the unread inbox.
type Pipeline struct {
	cfg      *config.Config
	graph    graph.Client
	airtable airtable.Client
}

// New wires a pipeline from its two external dependencies.
func New(cfg *config.Config, graphClient graph.Client, airtableClient airtable.Client) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		graph:    graphClient,
		airtable: airtableClient,
	}
}

// Run fetches the unread messages once and processes them strictly in
// order. Only the initial fetch can fail the run; per-message failures are
// counted and the run continues. Every fetched message is marked read
// exactly once, whatever its outcome, so no message is seen twice across
// runs. Overlapping runs can double-process a message; schedule runs
// serially.
func (p *Pipeline) Run(ctx context.Context) (model.RunStats, error) {
	var stats model.RunStats

	messages, err := p.graph.ListUnreadMessages(ctx, p.cfg.Leads.SenderFilter)
	if err != nil {
		return stats, eris.Wrap(err, "pipeline: list unread messages")
	}
	stats.Fetched = len(messages)
	zap.L().Info("pipeline: fetched unread messages", zap.Int("count", len(messages)))

	for _, msg := range messages {
		p.processMessage(ctx, model.RawMessage{
			ID:       msg.ID,
			Subject:  msg.Subject,
			BodyHTML: msg.BodyHTML,
			Sender:   msg.Sender,
		}, &stats)
	}

	zap.L().Info("pipeline: run complete",
		zap.Int("fetched", stats.Fetched),
		zap.Int("skipped", stats.Skipped),
		zap.Int("discarded", stats.Discarded),
		zap.Int("synced", stats.Synced),
		zap.Int("linked", stats.Linked),
		zap.Int("failed", stats.Failed))
	return stats, nil
}

// processMessage takes one message through extract, gate, sync and notify.
// The deferred markRead is the single place the read flag is set, which
// holds the exactly-once invariant across every branch.
func (p *Pipeline) processMessage(ctx context.Context, msg model.RawMessage, stats *model.RunStats) {
	defer p.markRead(ctx, msg.ID)

	if p.cfg.Leads.SubjectFilter != "" && !strings.Contains(msg.Subject, p.cfg.Leads.SubjectFilter) {
		stats.Skipped++
		zap.L().Info("pipeline: subject mismatch, skipping",
			zap.String("message_id", msg.ID),
			zap.String("subject", msg.Subject))
		return
	}

	lead := Extract(msg.Subject, msg.BodyHTML, p.cfg.Leads.ListingBaseURL)
	gate := Gate(lead)
	if !gate.Accepted {
		stats.Discarded++
		zap.L().Info("pipeline: lead not actionable, discarding",
			zap.String("message_id", msg.ID),
			zap.String("reason", gate.Reason))
		return
	}

	result, err := p.syncLead(ctx, lead)
	if err != nil {
		stats.Failed++
		zap.L().Error("pipeline: lead sync failed",
			zap.String("message_id", msg.ID),
			zap.Error(err))
		return
	}
	stats.Synced++
	if result.LinkedRecordID != "" {
		stats.Linked++
	}
	zap.L().Info("pipeline: lead synced",
		zap.String("message_id", msg.ID),
		zap.String("record_id", result.RecordID),
		zap.String("linked_id", result.LinkedRecordID),
		zap.String("gate", gate.Reason))

	// Notifications are best effort: the record already exists and the
	// message will still be marked read.
	if err := p.notifyInternal(ctx, lead, result); err != nil {
		zap.L().Warn("pipeline: internal notification failed",
			zap.String("message_id", msg.ID),
			zap.Error(err))
	}
	if lead.CustomerEmail != "" {
		if err := p.notifyCustomer(ctx, lead); err != nil {
			zap.L().Warn("pipeline: customer acknowledgement failed",
				zap.String("message_id", msg.ID),
				zap.Error(err))
		}
	}
}

func (p *Pipeline) markRead(ctx context.Context, messageID string) {
	if err := p.graph.MarkRead(ctx, messageID); err != nil {
		// The message stays unread and will reappear next run; creating a
		// duplicate record then is the accepted failure mode.
		zap.L().Error("pipeline: mark read failed",
			zap.String("message_id", messageID),
			zap.Error(err))
	}
}
