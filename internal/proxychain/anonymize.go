package proxychain

import (
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/elazarl/goproxy"
	"golang.org/x/net/proxy"
)

// Server is a local, unauthenticated HTTP proxy that forwards everything through an
// authenticated upstream proxy. Browsers cannot be handed proxy credentials on the
// command line, so they are pointed at a Server instead.
type Server struct {
	listener net.Listener
	server   *http.Server

	closeOnce sync.Once
	closeErr  error
}

// Anonymize starts a Server on 127.0.0.1 for the given upstream endpoint.
func Anonymize(upstream string) (*Server, error) {
	return AnonymizeWithTLS(upstream, nil)
}

// AnonymizeWithTLS is Anonymize with the tls config used to reach an https
// upstream. A nil config verifies the upstream against the system roots.
func AnonymizeWithTLS(upstream string, tlsConfig *tls.Config) (*Server, error) {
	u, err := ParseEndpoint(upstream)
	if err != nil {
		return nil, err
	}

	forwarder := goproxy.NewProxyHttpServer()
	forwarder.Logger = slog.NewLogLogger(slog.Default().Handler(), slog.LevelDebug)
	forwarder.Tr = &http.Transport{
		Proxy:             http.ProxyURL(u),
		DisableKeepAlives: true,
	}
	if u.Scheme == "https" {
		if tlsConfig == nil {
			tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		tlsConfig = tlsConfig.Clone()
		if tlsConfig.ServerName == "" {
			tlsConfig.ServerName = u.Hostname()
		}
		// used both for the CONNECT leg and for plain requests sent to the upstream
		forwarder.Tr.TLSClientConfig = tlsConfig
	}

	dial, err := upstreamDialer(forwarder, u)
	if err != nil {
		return nil, err
	}
	forwarder.ConnectDial = dial

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("listen for local proxy: %w", err)
	}

	s := &Server{listener: listener}
	s.server = &http.Server{
		Handler:           forwarder,
		ReadHeaderTimeout: 30 * time.Second,
	}
	go s.server.Serve(listener)
	return s, nil
}

// URL is the address browsers should use as their proxy server.
func (s *Server) URL() string {
	return "http://" + s.listener.Addr().String()
}

// Close stops the server, it is safe to call more than once.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.server.Close()
		if errors.Is(s.closeErr, http.ErrServerClosed) {
			s.closeErr = nil
		}
	})
	return s.closeErr
}

func upstreamDialer(forwarder *goproxy.ProxyHttpServer, u *url.URL) (func(network, addr string) (net.Conn, error), error) {
	switch u.Scheme {
	case "socks5", "socks5h":
		var auth *proxy.Auth
		if u.User != nil {
			password, _ := u.User.Password()
			auth = &proxy.Auth{User: u.User.Username(), Password: password}
		}
		dialer, err := proxy.SOCKS5("tcp", u.Host, auth, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("create socks5 dialer: %w", err)
		}
		return dialer.Dial, nil
	case "http", "https":
		authorization := ProxyAuthorization(u)
		// the endpoint carries no credentials, they travel in the CONNECT header
		bare := url.URL{Scheme: u.Scheme, Host: u.Host}
		dial := forwarder.NewConnectDialToProxyWithHandler(bare.String(), func(req *http.Request) {
			if authorization != "" {
				req.Header.Set("Proxy-Authorization", authorization)
			}
		})
		if dial == nil {
			return nil, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
		}
		return dial, nil
	}
	return nil, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
}

// ProxyAuthorization renders the Proxy-Authorization header value for the
// endpoint's credentials, or "" when it has none.
func ProxyAuthorization(u *url.URL) string {
	if u.User == nil {
		return ""
	}
	password, _ := u.User.Password()
	credentials := u.User.Username() + ":" + password
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(credentials))
}
