package mail

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/leadstream/amocrm-sheets-sync/internal/infra/queue"
)

func NewEmailSender(host string, port int, user, password, from, to string) *EmailSender {
	return &EmailSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		From:     from,
		To:       to,
	}
}

// NotifyWonLead mails a short summary of a deal that closed as won.
func (s *EmailSender) NotifyWonLead(payload queue.LeadSyncedPayload) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", s.To)
	m.SetHeader("Subject", fmt.Sprintf("Сделка №%s успешно закрыта", payload.LeadID))
	m.SetBody("text/plain", fmt.Sprintf(
		"Сделка №%s закрыта со статусом %q.\n\nКонтакт: %s\nОтветственный: %s\nБюджет: %.2f\nАккаунт: %s\n",
		payload.LeadID,
		payload.Status,
		payload.ContactName,
		payload.ResponsibleName,
		payload.Budget,
		payload.Subdomain,
	))

	d := gomail.NewDialer(s.Host, s.Port, s.User, s.Password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("send notification email: %w", err)
	}
	return nil
}
