// Package model holds the value types shared across the lead pipeline.
package model

// RawMessage is one unread mailbox item as fetched from Microsoft Graph.
// It is immutable after fetch; the only terminal side effect is the
// provider-side read flag set by the pipeline.
type RawMessage struct {
	ID       string `json:"id"`
	Subject  string `json:"subject"`
	BodyHTML string `json:"body_html"`
	Sender   string `json:"sender"`
}

// Lead is the structured extraction result for one inbound inquiry email.
// Every field is always present; the empty string means "not found" and
// participates in Actionable exactly like a value would not.
type Lead struct {
	CustomerName     string `json:"customer_name,omitempty"`
	CustomerEmail    string `json:"customer_email,omitempty"`
	CustomerPhone    string `json:"customer_phone,omitempty"`
	ListingReference string `json:"listing_reference,omitempty"`
	ListingURL       string `json:"listing_url,omitempty"`
	ListingAddress   string `json:"listing_address,omitempty"`
	Message          string `json:"message"`
}

// Actionable reports whether the lead carries enough contact signal to be
// persisted: at least one of customer email or customer phone. This is the
// single authorization test for all downstream writes.
func (l Lead) Actionable() bool {
	return l.CustomerEmail != "" || l.CustomerPhone != ""
}

// FirstName returns the first whitespace-separated token of the customer
// name, used for the acknowledgement greeting. Empty when no name was
// extracted.
func (l Lead) FirstName() string {
	for i := 0; i < len(l.CustomerName); i++ {
		if l.CustomerName[i] == ' ' {
			return l.CustomerName[:i]
		}
	}
	return l.CustomerName
}

// SyncResult is the outcome of synchronizing one lead into Airtable.
// LinkedRecordID is empty unless a sales-pipeline record matched the
// listing reference and the link write succeeded.
type SyncResult struct {
	RecordID       string `json:"record_id"`
	LinkedRecordID string `json:"linked_record_id,omitempty"`
}

// RunStats summarizes one pipeline invocation.
type RunStats struct {
	Fetched   int `json:"fetched"`   // unread messages returned by the mailbox
	Skipped   int `json:"skipped"`   // subject pre-filter rejected, marked read
	Discarded int `json:"discarded"` // extracted but not actionable
	Synced    int `json:"synced"`    // primary records created
	Linked    int `json:"linked"`    // cross-links written
	Failed    int `json:"failed"`    // record creation failed, message marked read
}
