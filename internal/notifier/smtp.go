package notifier

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/njbartlett/pfnext-backend/internal/models"
	"github.com/wneessen/go-mail"
)

// SMTPNotifier delivers temporary passwords over SMTP. Delivery failures
// are reported to the caller but never affect the stored recovery state.
type SMTPNotifier struct {
	host        string
	port        int
	username    string
	password    string
	fromName    string
	fromAddress string
}

func NewSMTPNotifier(host string, port int, username, password, fromName, fromAddress string) *SMTPNotifier {
	return &SMTPNotifier{
		host:        host,
		port:        port,
		username:    username,
		password:    password,
		fromName:    fromName,
		fromAddress: fromAddress,
	}
}

func (n *SMTPNotifier) SendTempPassword(ctx context.Context, person *models.Person, tempPassword string, expiry time.Time, resetURL string) error {
	resetLink := fmt.Sprintf("%s?email=%s&temp_pwd=%s",
		resetURL, url.QueryEscape(person.Email), url.QueryEscape(tempPassword))
	minutesLeft := int(time.Until(expiry).Round(time.Minute).Minutes())

	text := fmt.Sprintf(
		"You are receiving this email because a password reset was requested for your account.\n"+
			"To set your password, use the following temporary password on the password reset page:\n"+
			"\n"+
			"    %s\n"+
			"\n"+
			"Alternatively click the following link or copy it into your web browser's address bar:\n"+
			"\n"+
			"%s\n"+
			"\n"+
			"This password and link will expire in %d minutes.\n"+
			"\n"+
			"If you did not request a password reset, you can safely ignore and delete this email.",
		tempPassword, resetLink, minutesLeft)

	msg := mail.NewMsg()
	if err := msg.FromFormat(n.fromName, n.fromAddress); err != nil {
		return fmt.Errorf("build sender address: %w", err)
	}
	if err := msg.AddToFormat(person.Name, person.Email); err != nil {
		return fmt.Errorf("build recipient address: %w", err)
	}
	msg.Subject("Password Reset")
	msg.SetBodyString(mail.TypeTextPlain, text)

	client, err := mail.NewClient(n.host,
		mail.WithPort(n.port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(n.username),
		mail.WithPassword(n.password),
	)
	if err != nil {
		return fmt.Errorf("connect to SMTP server: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// LogNotifier is used when no SMTP host is configured, e.g. in local
// development. The temporary password is printed to stdout instead of
// being delivered.
type LogNotifier struct{}

func (LogNotifier) SendTempPassword(_ context.Context, person *models.Person, tempPassword string, expiry time.Time, _ string) error {
	fmt.Printf("temp password for %s: %s (expires %s)\n", person.Email, tempPassword, expiry.Format(time.RFC3339))
	return nil
}
