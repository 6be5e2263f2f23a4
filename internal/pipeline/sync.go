package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/urbeneye/leadsync/internal/model"
)

// syncLead persists one lead. Record creation is the hard step: its error
// propagates and the message stays unprocessed. The cross-link to the
// sales table is best effort on top of the created record; lookup or patch
// failures are logged and swallowed.
func (p *Pipeline) syncLead(ctx context.Context, lead model.Lead) (model.SyncResult, error) {
	recordID, err := p.airtable.CreateRecord(ctx, p.cfg.Airtable.LeadsTable, p.leadFields(lead))
	if err != nil {
		return model.SyncResult{}, eris.Wrap(err, "pipeline: create lead record")
	}
	result := model.SyncResult{RecordID: recordID}

	if lead.ListingReference == "" {
		return result, nil
	}
	result.LinkedRecordID = p.linkSalesRecord(ctx, recordID, lead.ListingReference)
	return result, nil
}

// leadFields maps the lead onto the configured column names. Empty fields
// are omitted so absent values never show up as empty cells upstream; only
// the message column is written unconditionally.
func (p *Pipeline) leadFields(lead model.Lead) map[string]any {
	cols := p.cfg.Airtable.Columns
	fields := map[string]any{
		cols.Message: lead.Message,
	}
	if lead.CustomerName != "" {
		fields[cols.Name] = lead.CustomerName
	}
	if lead.CustomerEmail != "" {
		fields[cols.Email] = lead.CustomerEmail
	}
	if lead.CustomerPhone != "" {
		fields[cols.Phone] = lead.CustomerPhone
	}
	if lead.ListingReference != "" {
		fields[cols.Reference] = lead.ListingReference
	}
	return fields
}

// linkSalesRecord looks up the sales record whose reference column matches
// the listing reference and links the lead record to it. Returns the linked
// record id, or "" when no match was found or any step failed.
func (p *Pipeline) linkSalesRecord(ctx context.Context, recordID, reference string) string {
	formula := fmt.Sprintf("({%s} = '%s')", p.cfg.Airtable.SalesRefColumn, escapeFormulaValue(reference))
	records, err := p.airtable.ListRecords(ctx, p.cfg.Airtable.SalesTable, formula)
	if err != nil {
		zap.L().Warn("pipeline: sales lookup failed",
			zap.String("reference", reference),
			zap.Error(err))
		return ""
	}
	if len(records) == 0 {
		zap.L().Info("pipeline: no sales record for reference",
			zap.String("reference", reference))
		return ""
	}

	// On multiple matches the first returned record wins.
	linkedID := records[0].ID
	fields := map[string]any{
		p.cfg.Airtable.Columns.Link: []string{linkedID},
	}
	if err := p.airtable.UpdateRecord(ctx, p.cfg.Airtable.LeadsTable, recordID, fields); err != nil {
		zap.L().Warn("pipeline: sales link failed",
			zap.String("record_id", recordID),
			zap.String("linked_id", linkedID),
			zap.Error(err))
		return ""
	}
	return linkedID
}

// escapeFormulaValue escapes single quotes so a reference cannot close the
// string literal inside the filterByFormula expression.
func escapeFormulaValue(v string) string {
	return strings.ReplaceAll(v, "'", `\'`)
}
