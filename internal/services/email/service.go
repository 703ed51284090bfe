// Caminho: internal/services/email/service.go
// Resumo: Serviço SMTP com suporte a SSL/TLS e STARTTLS, renderização de templates HTML
// embutidos e envio com To/Cc/Bcc.

package emailsvc

import (
	"bytes"
	"context"
	"crypto/tls"
	"embed"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"strings"
	"time"
)

//go:embed templates/*.html
var templatesFS embed.FS

// EncryptionMode define o tipo de criptografia para SMTP.
type EncryptionMode string

const (
	EncNone     EncryptionMode = "NONE"
	EncStartTLS EncryptionMode = "STARTTLS"
	EncSSLTLS   EncryptionMode = "SSL/TLS"
)

// Service contém as configurações para envio de e-mails.
type Service struct {
	Host     string
	Port     int
	Username string
	Password string
	FromAddr string
	FromName string
	Enc      EncryptionMode
}

// New cria um novo serviço de e-mail. Modo desconhecido vira STARTTLS.
func New(host string, port int, user, pass, fromAddr, fromName, enc string) *Service {
	mode := EncryptionMode(strings.ToUpper(strings.TrimSpace(enc)))
	if mode != EncNone && mode != EncStartTLS && mode != EncSSLTLS {
		mode = EncStartTLS
	}
	return &Service{
		Host:     host,
		Port:     port,
		Username: user,
		Password: pass,
		FromAddr: fromAddr,
		FromName: fromName,
		Enc:      mode,
	}
}

// Params encapsula os dados de envio.
type Params struct {
	To      []string
	Cc      []string
	Bcc     []string
	Subject string
	// TemplateName é um arquivo de templates/ embutido no binário.
	TemplateName string
	Data         any
}

// Send envia um e-mail com base no template informado.
func (s *Service) Send(ctx context.Context, p Params) error {
	if len(p.To) == 0 {
		return fmt.Errorf("email: destinatário ausente")
	}
	htmlBody, err := Render(p.TemplateName, p.Data)
	if err != nil {
		return fmt.Errorf("email: render template: %w", err)
	}
	msg := buildMIMEMessage(s.FromName, s.FromAddr, p.To, p.Cc, p.Subject, htmlBody)
	recipients := make([]string, 0, len(p.To)+len(p.Cc)+len(p.Bcc))
	recipients = append(recipients, p.To...)
	recipients = append(recipients, p.Cc...)
	recipients = append(recipients, p.Bcc...)

	d := net.Dialer{Timeout: 15 * time.Second}
	if deadline, ok := ctx.Deadline(); ok {
		d.Timeout = time.Until(deadline)
		if d.Timeout <= 0 {
			d.Timeout = 10 * time.Second
		}
	}

	address := net.JoinHostPort(s.Host, fmt.Sprint(s.Port))
	auth := smtp.PlainAuth("", s.Username, s.Password, s.Host)

	switch s.Enc {
	case EncSSLTLS:
		conn, err := tls.DialWithDialer(&d, "tcp", address, &tls.Config{ServerName: s.Host})
		if err != nil {
			return fmt.Errorf("email: tls dial: %w", err)
		}
		c, err := smtp.NewClient(conn, s.Host)
		if err != nil {
			_ = conn.Close()
			return fmt.Errorf("email: new client: %w", err)
		}
		return s.deliver(c, auth, recipients, msg)

	case EncStartTLS:
		conn, err := d.DialContext(ctx, "tcp", address)
		if err != nil {
			return fmt.Errorf("email: dial: %w", err)
		}
		c, err := smtp.NewClient(conn, s.Host)
		if err != nil {
			_ = conn.Close()
			return fmt.Errorf("email: new client: %w", err)
		}
		if err := c.Hello("localhost"); err != nil {
			_ = c.Close()
			return fmt.Errorf("email: hello: %w", err)
		}
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(&tls.Config{ServerName: s.Host}); err != nil {
				_ = c.Close()
				return fmt.Errorf("email: starttls: %w", err)
			}
		}
		return s.deliver(c, auth, recipients, msg)

	case EncNone:
		// Sem TLS; apenas para relays locais confiáveis.
		if s.Username == "" {
			auth = nil
		}
		if err := smtp.SendMail(address, auth, s.FromAddr, recipients, msg); err != nil {
			return fmt.Errorf("email: sendmail: %w", err)
		}
		return nil
	}
	return fmt.Errorf("email: modo de criptografia inválido")
}

// deliver autentica, envia o envelope e fecha a sessão.
func (s *Service) deliver(c *smtp.Client, auth smtp.Auth, recipients []string, msg []byte) error {
	defer c.Close()
	if s.Username != "" {
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("email: auth: %w", err)
		}
	}
	if err := c.Mail(s.FromAddr); err != nil {
		return fmt.Errorf("email: MAIL FROM: %w", err)
	}
	for _, rcpt := range recipients {
		if err := c.Rcpt(strings.TrimSpace(rcpt)); err != nil {
			return fmt.Errorf("email: RCPT TO %s: %w", rcpt, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("email: DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return fmt.Errorf("email: write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("email: close data: %w", err)
	}
	return c.Quit()
}

// Render executa um template HTML embutido com os dados informados.
func Render(name string, data any) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("template: nome inválido")
	}
	t, err := template.New(name).Option("missingkey=zero").ParseFS(templatesFS, "templates/"+name)
	if err != nil {
		return "", fmt.Errorf("template: render failed for %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// buildMIMEMessage cria um e-mail simples em HTML (UTF-8). Cabeçalhos em ordem fixa.
func buildMIMEMessage(fromName, fromAddr string, to, cc []string, subject, htmlBody string) []byte {
	from := fromAddr
	if strings.TrimSpace(fromName) != "" {
		from = fmt.Sprintf("%s <%s>", encodeHeader(fromName), fromAddr)
	}
	var msg bytes.Buffer
	writeHeader := func(k, v string) {
		msg.WriteString(k + ": " + v + "\r\n")
	}
	writeHeader("From", from)
	writeHeader("To", strings.Join(to, ", "))
	if len(cc) > 0 {
		writeHeader("Cc", strings.Join(cc, ", "))
	}
	writeHeader("Subject", encodeHeader(subject))
	writeHeader("MIME-Version", "1.0")
	writeHeader("Content-Type", "text/html; charset=UTF-8")
	writeHeader("Content-Transfer-Encoding", "quoted-printable")
	msg.WriteString("\r\n")
	msg.Write(toQuotedPrintable(htmlBody))
	return msg.Bytes()
}

// encodeHeader aplica RFC 2047 (Q-encoding) quando há bytes fora do ASCII.
func encodeHeader(s string) string {
	ascii := true
	for _, r := range s {
		if r > 127 {
			ascii = false
			break
		}
	}
	if ascii {
		return s
	}
	var b bytes.Buffer
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == ' ':
			b.WriteByte('_')
		case c < 33 || c > 126 || c == '=' || c == '?' || c == '_':
			fmt.Fprintf(&b, "=%02X", c)
		default:
			b.WriteByte(c)
		}
	}
	return "=?UTF-8?Q?" + b.String() + "?="
}

// toQuotedPrintable converte o corpo para quoted-printable mínimo, linhas até 76.
func toQuotedPrintable(s string) []byte {
	var out bytes.Buffer
	lineLen := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\n' {
			out.WriteString("\r\n")
			lineLen = 0
			continue
		}
		part := string([]byte{c})
		if c == '=' || c < 32 || c > 126 {
			part = fmt.Sprintf("=%02X", c)
		}
		if lineLen+len(part) > 75 {
			out.WriteString("=\r\n")
			lineLen = 0
		}
		out.WriteString(part)
		lineLen += len(part)
	}
	return out.Bytes()
}
