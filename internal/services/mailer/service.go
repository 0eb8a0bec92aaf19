// -----------------------------------------------------------------------
// Mailer Service - SMTP delivery of rendered report PDFs
// Credentials live in KeyValue storage under smtp_ keys; the TOML config
// only seeds them at startup, so runtime updates survive restarts.
// -----------------------------------------------------------------------

package mailer

import (
	"context"
	"crypto/rand"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/interfaces"
)

// DefaultReportFilename is used when the caller does not name the attachment.
const DefaultReportFilename = "Investment_Report.pdf"

const reportSubject = "[Folio] Your Investment Analysis Report"

const reportBodyHTML = `<html>
<body>
<h1>Investment Report Ready</h1>
<p>Attached is your latest AI-driven portfolio analysis report.</p>
<p>Best regards,<br>The Folio Team</p>
</body>
</html>`

const reportBodyText = "Your investment analysis report is attached as a PDF."

// Config holds SMTP configuration loaded from KeyValue storage.
type Config struct {
	Host     string `json:"smtp_host"`
	Port     int    `json:"smtp_port"`
	Username string `json:"smtp_username"`
	Password string `json:"smtp_password"`
	From     string `json:"smtp_from"`
	FromName string `json:"smtp_from_name"`
	UseTLS   bool   `json:"smtp_use_tls"`
}

// Attachment is one file carried on an outgoing message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Service sends report emails using the stored SMTP credentials.
type Service struct {
	kvStorage interfaces.KeyValueStorage
	logger    arbor.ILogger
}

func NewService(kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) *Service {
	return &Service{
		kvStorage: kvStorage,
		logger:    logger,
	}
}

// GetConfig retrieves SMTP configuration from KeyValue storage.
func (s *Service) GetConfig(ctx context.Context) (*Config, error) {
	config := &Config{
		Port:     587,
		UseTLS:   true,
		FromName: "Folio",
	}

	if host, err := s.kvStorage.Get(ctx, "smtp_host"); err == nil && host != "" {
		config.Host = host
	}

	if portStr, err := s.kvStorage.Get(ctx, "smtp_port"); err == nil && portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			config.Port = port
		}
	}

	if username, err := s.kvStorage.Get(ctx, "smtp_username"); err == nil {
		config.Username = username
	}

	if password, err := s.kvStorage.Get(ctx, "smtp_password"); err == nil {
		config.Password = password
	}

	if from, err := s.kvStorage.Get(ctx, "smtp_from"); err == nil && from != "" {
		config.From = from
	}

	if fromName, err := s.kvStorage.Get(ctx, "smtp_from_name"); err == nil && fromName != "" {
		config.FromName = fromName
	}

	if tlsStr, err := s.kvStorage.Get(ctx, "smtp_use_tls"); err == nil && tlsStr != "" {
		config.UseTLS = strings.ToLower(tlsStr) == "true" || tlsStr == "1"
	}

	return config, nil
}

// SetConfig saves SMTP configuration to KeyValue storage.
func (s *Service) SetConfig(ctx context.Context, config *Config) error {
	if err := s.kvStorage.Set(ctx, "smtp_host", config.Host, "SMTP server hostname"); err != nil {
		return fmt.Errorf("failed to set smtp_host: %w", err)
	}

	if err := s.kvStorage.Set(ctx, "smtp_port", strconv.Itoa(config.Port), "SMTP server port"); err != nil {
		return fmt.Errorf("failed to set smtp_port: %w", err)
	}

	if err := s.kvStorage.Set(ctx, "smtp_username", config.Username, "SMTP username (email address)"); err != nil {
		return fmt.Errorf("failed to set smtp_username: %w", err)
	}

	if err := s.kvStorage.Set(ctx, "smtp_password", config.Password, "SMTP password or app password"); err != nil {
		return fmt.Errorf("failed to set smtp_password: %w", err)
	}

	if err := s.kvStorage.Set(ctx, "smtp_from", config.From, "From email address"); err != nil {
		return fmt.Errorf("failed to set smtp_from: %w", err)
	}

	if err := s.kvStorage.Set(ctx, "smtp_from_name", config.FromName, "From display name"); err != nil {
		return fmt.Errorf("failed to set smtp_from_name: %w", err)
	}

	tlsStr := "false"
	if config.UseTLS {
		tlsStr = "true"
	}
	if err := s.kvStorage.Set(ctx, "smtp_use_tls", tlsStr, "Use TLS encryption"); err != nil {
		return fmt.Errorf("failed to set smtp_use_tls: %w", err)
	}

	s.logger.Info().
		Str("host", config.Host).
		Int("port", config.Port).
		Str("from", config.From).
		Msg("Mail configuration saved")

	return nil
}

// IsConfigured checks if SMTP is configured with minimum required settings.
// Report email delivery is gated on this so unconfigured installs fail
// fast instead of timing out on a dial.
func (s *Service) IsConfigured(ctx context.Context) bool {
	config, err := s.GetConfig(ctx)
	if err != nil {
		return false
	}

	return config.Host != "" && config.Username != "" && config.Password != "" && config.From != ""
}

// SendReportEmail delivers a rendered report PDF as an attachment.
func (s *Service) SendReportEmail(ctx context.Context, to string, pdfBytes []byte, filename string) error {
	if filename == "" {
		filename = DefaultReportFilename
	}

	attachment := Attachment{
		Filename:    filename,
		ContentType: "application/pdf",
		Content:     pdfBytes,
	}

	if err := s.SendEmailWithAttachments(ctx, to, reportSubject, reportBodyHTML, reportBodyText, []Attachment{attachment}); err != nil {
		s.logger.Error().Err(err).Str("to", to).Msg("Failed to send report email")
		return err
	}

	s.logger.Info().Str("to", to).Str("filename", filename).Msg("Report email sent")
	return nil
}

// SendEmail sends a plain text email.
func (s *Service) SendEmail(ctx context.Context, to, subject, body string) error {
	return s.SendHTMLEmail(ctx, to, subject, "", body)
}

// SendHTMLEmail sends an email with HTML and/or plain text body.
func (s *Service) SendHTMLEmail(ctx context.Context, to, subject, htmlBody, textBody string) error {
	config, err := s.loadSendConfig(ctx)
	if err != nil {
		return err
	}

	var msg strings.Builder
	writeHeaders(&msg, config, to, subject)

	if htmlBody != "" {
		// Multipart alternative with both representations. Base64 keeps
		// long HTML lines under the RFC 5322 998-char limit.
		boundary := generateBoundary()
		msg.WriteString("MIME-Version: 1.0\r\n")
		msg.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary))
		msg.WriteString("\r\n")

		writeAlternativeParts(&msg, boundary, htmlBody, textBody)
		msg.WriteString(fmt.Sprintf("--%s--\r\n", boundary))
	} else {
		msg.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
		msg.WriteString("\r\n")
		msg.WriteString(textBody)
	}

	return s.send(config, to, msg.String())
}

// SendEmailWithAttachments sends an email with HTML/text body and file
// attachments as a multipart/mixed message.
func (s *Service) SendEmailWithAttachments(ctx context.Context, to, subject, htmlBody, textBody string, attachments []Attachment) error {
	if len(attachments) == 0 {
		return s.SendHTMLEmail(ctx, to, subject, htmlBody, textBody)
	}

	config, err := s.loadSendConfig(ctx)
	if err != nil {
		return err
	}

	mixedBoundary := generateBoundary()
	altBoundary := generateBoundary()

	var msg strings.Builder
	writeHeaders(&msg, config, to, subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString(fmt.Sprintf("Content-Type: multipart/mixed; boundary=\"%s\"\r\n", mixedBoundary))
	msg.WriteString("\r\n")

	// Body part (multipart/alternative for HTML + text)
	msg.WriteString(fmt.Sprintf("--%s\r\n", mixedBoundary))
	msg.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=\"%s\"\r\n", altBoundary))
	msg.WriteString("\r\n")
	writeAlternativeParts(&msg, altBoundary, htmlBody, textBody)
	msg.WriteString(fmt.Sprintf("--%s--\r\n", altBoundary))

	for _, att := range attachments {
		msg.WriteString(fmt.Sprintf("--%s\r\n", mixedBoundary))
		contentType := att.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		msg.WriteString(fmt.Sprintf("Content-Type: %s; name=\"%s\"\r\n", contentType, att.Filename))
		msg.WriteString("Content-Transfer-Encoding: base64\r\n")
		msg.WriteString(fmt.Sprintf("Content-Disposition: attachment; filename=\"%s\"\r\n", att.Filename))
		msg.WriteString("\r\n")
		msg.WriteString(encodeBase64WithLineBreaks(string(att.Content)))
		msg.WriteString("\r\n")
	}

	msg.WriteString(fmt.Sprintf("--%s--\r\n", mixedBoundary))

	return s.send(config, to, msg.String())
}

// SendTestEmail sends a test email to verify configuration.
func (s *Service) SendTestEmail(ctx context.Context, to string) error {
	subject := "Folio Test Email"
	body := "This is a test email from Folio to verify your SMTP configuration is working correctly."

	if err := s.SendEmail(ctx, to, subject, body); err != nil {
		s.logger.Error().Err(err).Str("to", to).Msg("Failed to send test email")
		return err
	}

	s.logger.Info().Str("to", to).Msg("Test email sent successfully")
	return nil
}

// loadSendConfig fetches the stored config and validates it is usable.
func (s *Service) loadSendConfig(ctx context.Context) (*Config, error) {
	config, err := s.GetConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get mail config: %w", err)
	}

	if config.Host == "" {
		return nil, fmt.Errorf("SMTP host not configured")
	}

	if config.Username == "" || config.Password == "" {
		return nil, fmt.Errorf("SMTP credentials not configured")
	}

	if config.From == "" {
		return nil, fmt.Errorf("from email not configured")
	}

	return config, nil
}

func (s *Service) send(config *Config, to, msg string) error {
	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	auth := smtp.PlainAuth("", config.Username, config.Password, config.Host)

	if config.UseTLS {
		return s.sendWithTLS(addr, auth, config.From, to, msg)
	}

	return smtp.SendMail(addr, auth, config.From, []string{to}, []byte(msg))
}

// sendWithTLS sends over an implicit TLS connection, falling back to a
// STARTTLS upgrade when the direct dial fails.
func (s *Service) sendWithTLS(addr string, auth smtp.Auth, from, to, msg string) error {
	host := strings.Split(addr, ":")[0]

	conn, err := tls.Dial("tcp", addr, &tls.Config{
		ServerName: host,
	})
	if err != nil {
		return s.sendWithSTARTTLS(addr, auth, from, to, msg)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	return transmit(client, auth, from, to, msg)
}

// sendWithSTARTTLS sends over plain SMTP upgraded with STARTTLS.
func (s *Service) sendWithSTARTTLS(addr string, auth smtp.Auth, from, to, msg string) error {
	host := strings.Split(addr, ":")[0]

	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Close()

	tlsConfig := &tls.Config{
		ServerName: host,
	}
	if err := client.StartTLS(tlsConfig); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}

	return transmit(client, auth, from, to, msg)
}

// transmit runs the SMTP envelope exchange on an established client.
func transmit(client *smtp.Client, auth smtp.Auth, from, to, msg string) error {
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("failed to set mail from: %w", err)
	}

	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set mail recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to start data: %w", err)
	}

	if _, err := w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	return client.Quit()
}

func writeHeaders(msg *strings.Builder, config *Config, to, subject string) {
	msg.WriteString(fmt.Sprintf("From: %s <%s>\r\n", config.FromName, config.From))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
}

func writeAlternativeParts(msg *strings.Builder, boundary, htmlBody, textBody string) {
	if textBody != "" {
		msg.WriteString(fmt.Sprintf("--%s\r\n", boundary))
		msg.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
		msg.WriteString("Content-Transfer-Encoding: base64\r\n")
		msg.WriteString("\r\n")
		msg.WriteString(encodeBase64WithLineBreaks(textBody))
		msg.WriteString("\r\n")
	}

	if htmlBody != "" {
		msg.WriteString(fmt.Sprintf("--%s\r\n", boundary))
		msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
		msg.WriteString("Content-Transfer-Encoding: base64\r\n")
		msg.WriteString("\r\n")
		msg.WriteString(encodeBase64WithLineBreaks(htmlBody))
		msg.WriteString("\r\n")
	}
}

// generateBoundary creates a unique MIME boundary string.
func generateBoundary() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "folio_boundary_fallback"
	}
	return fmt.Sprintf("folio_%x", b)
}

// encodeBase64WithLineBreaks encodes content as base64 with 76-char line
// breaks per RFC 2045 so large attachments survive all mail servers.
func encodeBase64WithLineBreaks(content string) string {
	encoded := base64.StdEncoding.EncodeToString([]byte(content))

	var result strings.Builder
	const lineLen = 76

	for i := 0; i < len(encoded); i += lineLen {
		end := i + lineLen
		if end > len(encoded) {
			end = len(encoded)
		}
		result.WriteString(encoded[i:end])
		if end < len(encoded) {
			result.WriteString("\r\n")
		}
	}

	return result.String()
}
