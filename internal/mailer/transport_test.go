package mailer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/unclebandit/mailblast-backend/internal/model"
)

func TestTLSModeFollowsWellKnownPorts(t *testing.T) {
	cases := []struct {
		port        int
		secure      bool
		wantTLS     bool
		wantStart   bool
		description string
	}{
		{465, false, true, false, "465 is implicit TLS even when flagged insecure"},
		{587, true, false, true, "587 is STARTTLS even when flagged secure"},
		{25, true, false, false, "25 is plain"},
		{2525, true, true, false, "custom port follows the stored flag"},
		{2525, false, false, false, "custom port follows the stored flag"},
	}
	for _, tc := range cases {
		gotTLS, gotStart := tlsMode(&model.SMTPServer{Port: tc.port, Secure: tc.secure})
		assert.Equal(t, tc.wantTLS, gotTLS, tc.description)
		assert.Equal(t, tc.wantStart, gotStart, tc.description)
	}
}

func TestBuildMessageHeaders(t *testing.T) {
	server := &model.SMTPServer{
		FromEmail: "news@example.com",
		FromName:  "Example News",
	}

	msg := string(buildMessage(server, "<abc@example.com>", "reader@test", "Hi there", "<p>hi</p>"))

	assert.Contains(t, msg, "From: \"Example News\" <news@example.com>\r\n")
	assert.Contains(t, msg, "To: reader@test\r\n")
	assert.Contains(t, msg, "Subject: Hi there\r\n")
	assert.Contains(t, msg, "Message-ID: <abc@example.com>\r\n")
	assert.Contains(t, msg, "Content-Type: text/html; charset=utf-8\r\n")
	// Headers end before the body starts.
	assert.True(t, strings.Contains(msg, "\r\n\r\n<!DOCTYPE html>"))
}

func TestWrapHTML(t *testing.T) {
	full := "<html><body><p>done</p></body></html>"
	assert.Equal(t, full, wrapHTML(full))

	fragment := wrapHTML("<p>hi</p>")
	assert.Contains(t, fragment, "<!DOCTYPE html>")
	assert.Contains(t, fragment, "<body>\n<p>hi</p>\n</body>")

	plain := wrapHTML("line one\nline two")
	assert.Contains(t, plain, "line one<br>line two")
}
