package services

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	types "github.com/casaluz/incidents-backend/internal/domain"
	"github.com/casaluz/incidents-backend/internal/platform/apperr"
	"github.com/casaluz/incidents-backend/internal/platform/logger"
	"github.com/casaluz/incidents-backend/internal/platform/sendgrid"
)

// NotificationService dispatches the submission mail: one message per
// incident, addressed to the recipient recorded on it, with the rendered
// report as the single attachment.
type NotificationService interface {
	SendIncidentReport(ctx context.Context, incident *types.Incident, pdfBytes []byte) error
}

type notificationService struct {
	log     *logger.Logger
	mailer  sendgrid.Client
	timeout time.Duration
}

func NewNotificationService(log *logger.Logger, mailer sendgrid.Client, timeout time.Duration) NotificationService {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &notificationService{
		log:     log.With("service", "NotificationService"),
		mailer:  mailer,
		timeout: timeout,
	}
}

func (ns *notificationService) SendIncidentReport(ctx context.Context, incident *types.Incident, pdfBytes []byte) error {
	if ns == nil || ns.mailer == nil {
		return apperr.Dispatch("mail transport not configured", nil)
	}
	if incident == nil {
		return apperr.Dispatch("nil incident", nil)
	}
	recipient := strings.TrimSpace(incident.RecipientEmail)
	if recipient == "" {
		return apperr.Dispatch("incident has no recipient email", nil)
	}
	if len(pdfBytes) == 0 {
		return apperr.Dispatch("empty report attachment", nil)
	}

	sendCtx, cancel := context.WithTimeout(ctx, ns.timeout)
	defer cancel()

	result, err := ns.mailer.Send(sendCtx, sendgrid.SendEmailRequest{
		To:      []sendgrid.EmailAddress{{Email: recipient}},
		Subject: fmt.Sprintf("Incident Report %s - %s", incident.Code, incident.SupplierName),
		HTML:    reportBodyHTML(incident),
		Attachments: []sendgrid.Attachment{{
			Filename: incident.Code + ".pdf",
			MIMEType: "application/pdf",
			Content:  pdfBytes,
		}},
	})
	if err != nil {
		return apperr.Dispatch("send incident report mail", err)
	}

	ns.log.Info("Incident report dispatched",
		"code", incident.Code,
		"status", result.StatusCode,
		"message_id", result.MessageID,
	)
	return nil
}

func reportBodyHTML(incident *types.Incident) string {
	code := html.EscapeString(incident.Code)
	supplier := html.EscapeString(incident.SupplierName)
	return fmt.Sprintf(
		"<p>Please find attached incident report <strong>%s</strong> concerning the delivery received from <strong>%s</strong>.</p>"+
			"<p>The attached document details every affected reference and its evidence.</p>",
		code, supplier,
	)
}
