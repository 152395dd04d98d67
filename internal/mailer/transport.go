package mailer

import (
    "crypto/tls"
    "fmt"
    "net"
    "net/smtp"
    "strings"
    "time"

    "github.com/google/uuid"

    "github.com/unclebandit/mailblast-backend/internal/model"
)

// Transport is the wire-level collaborator: establish a session, deliver one
// message. The engine only ever sees this interface.
type Transport interface {
    Initialize() error
    Send(to, subject, html string) (string, error)
}

// TransportFactory builds a transport for one server row. The factory is
// where the stored password gets decrypted, so credentials never travel
// through the engine.
type TransportFactory func(server *model.SMTPServer) (Transport, error)

const dialTimeout = 30 * time.Second

// SMTPTransport talks real SMTP. TLS mode follows the port, overriding the
// stored secure flag where the protocol leaves no choice:
//   465 -> implicit TLS, 587 -> STARTTLS, 25 -> plain.
type SMTPTransport struct {
    server   *model.SMTPServer
    password string
}

func NewSMTPTransport(server *model.SMTPServer, password string) *SMTPTransport {
    return &SMTPTransport{server: server, password: password}
}

// Initialize verifies the session can be established: dial, handshake,
// authenticate, quit. Sends dial a fresh connection, one message each, so
// there is no pooled state to keep alive here.
func (t *SMTPTransport) Initialize() error {
    client, err := t.connect()
    if err != nil {
        return classify(err)
    }
    defer client.Close()
    return client.Quit()
}

func (t *SMTPTransport) Send(to, subject, html string) (string, error) {
    client, err := t.connect()
    if err != nil {
        return "", classify(err)
    }
    defer client.Close()

    if err := client.Mail(t.server.FromEmail); err != nil {
        return "", classify(err)
    }
    if err := client.Rcpt(to); err != nil {
        return "", classify(err)
    }

    messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), t.server.Host)

    w, err := client.Data()
    if err != nil {
        return "", classify(err)
    }
    if _, err := w.Write(buildMessage(t.server, messageID, to, subject, html)); err != nil {
        w.Close()
        return "", classify(err)
    }
    if err := w.Close(); err != nil {
        return "", classify(err)
    }
    if err := client.Quit(); err != nil {
        return "", classify(err)
    }
    return messageID, nil
}

func (t *SMTPTransport) connect() (*smtp.Client, error) {
    addr := net.JoinHostPort(t.server.Host, fmt.Sprint(t.server.Port))

    conn, err := net.DialTimeout("tcp", addr, dialTimeout)
    if err != nil {
        return nil, err
    }
    conn.SetDeadline(time.Now().Add(dialTimeout))

    useTLS, useStartTLS := tlsMode(t.server)

    if useTLS {
        conn = tls.Client(conn, &tls.Config{ServerName: t.server.Host})
    }

    client, err := smtp.NewClient(conn, t.server.Host)
    if err != nil {
        conn.Close()
        return nil, err
    }

    if useStartTLS {
        if err := client.StartTLS(&tls.Config{ServerName: t.server.Host}); err != nil {
            client.Close()
            return nil, err
        }
    }

    if t.server.Username != "" {
        auth := smtp.PlainAuth("", t.server.Username, t.password, t.server.Host)
        if err := client.Auth(auth); err != nil {
            client.Close()
            return nil, err
        }
    }

    return client, nil
}

// tlsMode returns (implicit TLS, STARTTLS) for the server. The port wins
// over the stored flag on the well-known ports.
func tlsMode(server *model.SMTPServer) (bool, bool) {
    switch server.Port {
    case 465:
        return true, false
    case 587:
        return false, true
    case 25:
        return false, false
    default:
        return server.Secure, false
    }
}

func buildMessage(server *model.SMTPServer, messageID, to, subject, html string) []byte {
    fromName := server.FromName
    if fromName == "" {
        fromName = "Email Sender"
    }

    var b strings.Builder
    fmt.Fprintf(&b, "From: %q <%s>\r\n", fromName, server.FromEmail)
    fmt.Fprintf(&b, "To: %s\r\n", to)
    fmt.Fprintf(&b, "Subject: %s\r\n", subject)
    fmt.Fprintf(&b, "Message-ID: %s\r\n", messageID)
    fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
    b.WriteString("MIME-Version: 1.0\r\n")
    b.WriteString("Content-Type: text/html; charset=utf-8\r\n")
    b.WriteString("\r\n")
    b.WriteString(wrapHTML(html))
    b.WriteString("\r\n")
    return []byte(b.String())
}

// wrapHTML gives bare fragments and plain text a document shell so clients
// render them consistently.
func wrapHTML(html string) string {
    if strings.Contains(html, "<html") || strings.Contains(html, "<body") {
        return html
    }
    body := html
    if !strings.Contains(html, "<") || !strings.Contains(html, ">") {
        body = strings.ReplaceAll(html, "\n", "<br>")
    }
    return "<!DOCTYPE html>\n<html>\n<head><meta charset=\"utf-8\"></head>\n<body>\n" + body + "\n</body>\n</html>"
}
