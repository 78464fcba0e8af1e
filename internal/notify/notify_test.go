package notify

import (
	"bufio"
	"context"
	"net"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeSmtp accepts every message without authentication and keeps the message data.
type fakeSmtp struct {
	listener net.Listener
	mu       sync.Mutex
	messages []string
}

func startFakeSmtp(t *testing.T) *fakeSmtp {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	server := &fakeSmtp{listener: listener}
	t.Cleanup(func() { listener.Close() })
	go server.serve()
	return server
}

func (s *fakeSmtp) port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

func (s *fakeSmtp) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *fakeSmtp) handle(conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)
	reply := func(line string) {
		conn.Write([]byte(line + "\r\n"))
	}
	reply("220 localhost fake smtp")

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		command := strings.ToUpper(strings.TrimSpace(line))
		switch {
		case strings.HasPrefix(command, "EHLO"), strings.HasPrefix(command, "HELO"):
			reply("250 localhost")
		case strings.HasPrefix(command, "DATA"):
			reply("354 end data with <CR><LF>.<CR><LF>")
			var data strings.Builder
			for {
				dataLine, err := reader.ReadString('\n')
				if err != nil {
					return
				}
				if dataLine == ".\r\n" {
					break
				}
				data.WriteString(dataLine)
			}
			s.mu.Lock()
			s.messages = append(s.messages, data.String())
			s.mu.Unlock()
			reply("250 queued")
		case strings.HasPrefix(command, "QUIT"):
			reply("221 bye")
			return
		default:
			reply("250 ok")
		}
	}
}

func TestMailerFallsBackWithoutAuth(t *testing.T) {
	server := startFakeSmtp(t)
	notifier := New(SmtpConfig{
		Server:       "127.0.0.1",
		Port:         server.port(),
		EmailAddress: "alerts@example.org",
		Password:     "secret",
		Recipients:   []string{"ops@example.org"},
	})
	_, ok := notifier.(Mailer)
	require.True(t, ok)

	err := notifier.NotifyFatal(context.Background(), Alert{
		CaseID:   "AB12CD3456EF7890",
		Cutoff:   "05-03-2025",
		Reason:   "exhausted attempts after 9999 tries",
		Attempts: 9999,
	})
	require.NoError(t, err)

	server.mu.Lock()
	defer server.mu.Unlock()
	require.Len(t, server.messages, 1)
	require.Contains(t, server.messages[0], "Acquisition of AB12CD3456EF7890 failed")
	require.Contains(t, server.messages[0], "Reason: exhausted attempts after 9999 tries")
}

func TestNewWithoutRecipients(t *testing.T) {
	_, ok := New(SmtpConfig{Server: "127.0.0.1"}).(Nop)
	require.True(t, ok)
}
