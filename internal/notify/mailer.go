package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/example/teetime-agent/internal/booking"
	"github.com/example/teetime-agent/internal/timing"
)

// Mailer sends plain-text outcome emails over SMTP.
type Mailer struct {
	host string
	port int
	auth smtp.Auth
	from string
	to   []string
	log  *zap.Logger
}

func NewMailer(host string, port int, user, pass, from string, to []string, log *zap.Logger) *Mailer {
	var auth smtp.Auth
	if user != "" {
		auth = smtp.PlainAuth("", user, pass, host)
	}
	return &Mailer{host: host, port: port, auth: auth, from: from, to: to, log: log}
}

func (m *Mailer) BookingConfirmed(ctx context.Context, req booking.Request, bookedTime timing.TimeOfDay, confirmation string) {
	subject := fmt.Sprintf("Tee time booked: %s %s", req.RequestedDate, bookedTime.Clock12())

	var sb strings.Builder
	fmt.Fprintf(&sb, "Your tee time is booked.\n\n")
	fmt.Fprintf(&sb, "Date:     %s\n", req.RequestedDate)
	fmt.Fprintf(&sb, "Time:     %s\n", bookedTime.Clock12())
	if bookedTime != req.RequestedTime {
		fmt.Fprintf(&sb, "          (requested %s, nearest available taken)\n", req.RequestedTime.Clock12())
	}
	fmt.Fprintf(&sb, "Players:  %d\n", req.Players)
	if confirmation != "" {
		fmt.Fprintf(&sb, "Details:  %s\n", confirmation)
	}

	m.send(subject, sb.String())
}

func (m *Mailer) BookingFailed(ctx context.Context, req booking.Request, reason string) {
	subject := fmt.Sprintf("Tee time NOT booked: %s %s", req.RequestedDate, req.RequestedTime.Clock12())

	var sb strings.Builder
	fmt.Fprintf(&sb, "The booking could not be completed.\n\n")
	fmt.Fprintf(&sb, "Date:     %s\n", req.RequestedDate)
	fmt.Fprintf(&sb, "Time:     %s\n", req.RequestedTime.Clock12())
	fmt.Fprintf(&sb, "Players:  %d\n", req.Players)
	fmt.Fprintf(&sb, "Reason:   %s\n", reason)

	m.send(subject, sb.String())
}

// send delivers best-effort; a mail outage must never fail a booking pass.
func (m *Mailer) send(subject, body string) {
	if m.host == "" || len(m.to) == 0 {
		return
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.from)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(m.to, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	if err := smtp.SendMail(addr, m.auth, m.from, m.to, []byte(msg.String())); err != nil {
		m.log.Warn("notification email failed", zap.String("subject", subject), zap.Error(err))
	}
}
