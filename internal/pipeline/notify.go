package pipeline

import (
	"context"
	"fmt"
	"html"

	"github.com/rotisserie/eris"

	"github.com/urbeneye/leadsync/internal/model"
)

const internalSubject = "Nuevo Lead de Idealista"

// notifyInternal mails the sales team a summary of the new lead with a
// direct link to the created record.
func (p *Pipeline) notifyInternal(ctx context.Context, lead model.Lead, result model.SyncResult) error {
	recordURL := fmt.Sprintf("https://airtable.com/%s/%s/%s",
		p.cfg.Airtable.BaseID, p.cfg.Airtable.LeadsTable, result.RecordID)

	body := fmt.Sprintf(`<p>Nuevo lead recibido de Idealista.</p>
<p><b>Nombre:</b> %s<br>
<b>Email:</b> %s<br>
<b>Teléfono:</b> %s<br>
<b>Referencia:</b> %s<br>
<b>Inmueble:</b> %s</p>
<p><a href="%s">Ver en Airtable</a></p>`,
		html.EscapeString(lead.CustomerName),
		html.EscapeString(lead.CustomerEmail),
		html.EscapeString(lead.CustomerPhone),
		html.EscapeString(lead.ListingReference),
		html.EscapeString(lead.ListingAddress),
		recordURL)

	if err := p.graph.SendMail(ctx, internalSubject, body, p.cfg.Leads.NotifyRecipients); err != nil {
		return eris.Wrap(err, "pipeline: send internal notification")
	}
	return nil
}

// notifyCustomer sends the acknowledgement mail to the lead's own address,
// naming the listing it refers to when the extraction found one. Callers
// only invoke it when the lead carries an email.
func (p *Pipeline) notifyCustomer(ctx context.Context, lead model.Lead) error {
	greeting := "Hola"
	if first := lead.FirstName(); first != "" {
		greeting = "Hola " + html.EscapeString(first)
	}

	listing := "el inmueble"
	switch {
	case lead.ListingURL != "" && lead.ListingAddress != "":
		listing = fmt.Sprintf(`<a href="%s">%s</a>`, lead.ListingURL, html.EscapeString(lead.ListingAddress))
	case lead.ListingURL != "":
		listing = fmt.Sprintf(`<a href="%s">el inmueble</a>`, lead.ListingURL)
	case lead.ListingAddress != "":
		listing = html.EscapeString(lead.ListingAddress)
	}

	body := fmt.Sprintf(`<p>%s,</p>
<p>Hemos recibido tu mensaje sobre %s y nos pondremos en contacto
contigo lo antes posible.</p>
<p>Gracias por tu interés.</p>`, greeting, listing)

	subject := "Hemos recibido tu mensaje"
	if err := p.graph.SendMail(ctx, subject, body, []string{lead.CustomerEmail}); err != nil {
		return eris.Wrap(err, "pipeline: send customer acknowledgement")
	}
	return nil
}
