package mailer

import (
    "errors"
    "fmt"
    "net"
    "net/textproto"
    "os"
    "syscall"
)

// ErrorKind tags the cause of a transport failure so callers can branch on
// it without matching substrings.
type ErrorKind int

const (
    KindProtocol ErrorKind = iota
    KindAuth
    KindTimeout
    KindConnectionRefused
    KindHostNotFound
)

func (k ErrorKind) String() string {
    switch k {
    case KindAuth:
        return "auth"
    case KindTimeout:
        return "timeout"
    case KindConnectionRefused:
        return "connection_refused"
    case KindHostNotFound:
        return "host_not_found"
    default:
        return "protocol"
    }
}

// SendError is the tagged transport error. Code carries the SMTP reply code
// when the server answered at all.
type SendError struct {
    Kind ErrorKind
    Code int
    Msg  string
}

func (e *SendError) Error() string {
    if e.Code != 0 {
        return fmt.Sprintf("smtp %s (%d): %s", e.Kind, e.Code, e.Msg)
    }
    return fmt.Sprintf("smtp %s: %s", e.Kind, e.Msg)
}

// smtp reply codes that mean the credentials were rejected
func isAuthCode(code int) bool {
    return code == 530 || code == 534 || code == 535
}

// classify wraps an error from the net/smtp stack into a SendError.
func classify(err error) *SendError {
    var se *SendError
    if errors.As(err, &se) {
        return se
    }

    var proto *textproto.Error
    if errors.As(err, &proto) {
        kind := KindProtocol
        if isAuthCode(proto.Code) {
            kind = KindAuth
        }
        return &SendError{Kind: kind, Code: proto.Code, Msg: proto.Msg}
    }

    var dns *net.DNSError
    if errors.As(err, &dns) {
        return &SendError{Kind: KindHostNotFound, Msg: dns.Error()}
    }

    var netErr net.Error
    if errors.As(err, &netErr) && netErr.Timeout() {
        return &SendError{Kind: KindTimeout, Msg: err.Error()}
    }
    if errors.Is(err, os.ErrDeadlineExceeded) {
        return &SendError{Kind: KindTimeout, Msg: err.Error()}
    }

    if errors.Is(err, syscall.ECONNREFUSED) {
        return &SendError{Kind: KindConnectionRefused, Msg: err.Error()}
    }

    return &SendError{Kind: KindProtocol, Msg: err.Error()}
}
