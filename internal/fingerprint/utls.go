package fingerprint

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	utls "github.com/refraction-networking/utls"
)

// Profile names the TLS ClientHello the fetcher presents to guideline sites.
type Profile string

const (
	ProfileChrome  Profile = "chrome"
	ProfileFirefox Profile = "firefox"
	ProfileSafari  Profile = "safari"
	ProfileGo      Profile = "go"     // standard go TLS
	ProfileRandom  Profile = "random" // randomized uTLS profile
)

// Profiles lists every supported profile.
func Profiles() []Profile {
	return []Profile{ProfileChrome, ProfileFirefox, ProfileSafari, ProfileGo, ProfileRandom}
}

// ParseProfile resolves a case-insensitive profile name. An empty name means
// ProfileChrome.
func ParseProfile(name string) (Profile, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ProfileChrome, nil
	}
	for _, p := range Profiles() {
		if string(p) == name {
			return p, nil
		}
	}
	return "", fmt.Errorf("fingerprint: unknown profile %q", name)
}

// Transport returns an http.RoundTripper presenting the given TLS fingerprint.
// ProfileGo yields a plain clone of http.DefaultTransport. The browser
// profiles dial with uTLS; their ALPN offer is pinned to http/1.1 because
// http.Transport cannot speak HTTP/2 over a custom DialTLSContext.
// proxyFunc is optional. If provided, it configures the underlying transport's Proxy.
func Transport(p Profile, proxyFunc func(*http.Request) (*url.URL, error)) (http.RoundTripper, error) {
	tr, err := newTransport(p, proxyFunc, nil)
	if err != nil {
		return nil, err
	}
	return tr, nil
}

func newTransport(p Profile, proxyFunc func(*http.Request) (*url.URL, error), base *utls.Config) (*http.Transport, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxyFunc != nil {
		transport.Proxy = proxyFunc
	}

	if p == ProfileGo {
		return transport, nil
	}

	var clientHelloID utls.ClientHelloID
	switch p {
	case ProfileChrome:
		clientHelloID = utls.HelloChrome_Auto
	case ProfileFirefox:
		clientHelloID = utls.HelloFirefox_Auto
	case ProfileSafari:
		clientHelloID = utls.HelloIOS_Auto
	case ProfileRandom:
		clientHelloID = utls.HelloRandomizedNoALPN
	default:
		return nil, fmt.Errorf("fingerprint: unknown profile %q", p)
	}

	if p != ProfileRandom {
		if _, err := http11Spec(clientHelloID); err != nil {
			return nil, fmt.Errorf("fingerprint: %s spec: %w", p, err)
		}
	}

	dial := transport.DialContext
	transport.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		tcpConn, err := dial(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}

		cfg := &utls.Config{ServerName: host}
		if base != nil {
			cfg = base.Clone()
			cfg.ServerName = host
		}

		var uConn *utls.UConn
		if p == ProfileRandom {
			uConn = utls.UClient(tcpConn, cfg, clientHelloID)
		} else {
			// Presets carry per-connection state, so each dial gets its own spec.
			spec, err := http11Spec(clientHelloID)
			if err != nil {
				_ = tcpConn.Close()
				return nil, err
			}
			uConn = utls.UClient(tcpConn, cfg, utls.HelloCustom)
			if err := uConn.ApplyPreset(&spec); err != nil {
				_ = tcpConn.Close()
				return nil, fmt.Errorf("fingerprint: apply %s preset: %w", p, err)
			}
		}

		if err := uConn.HandshakeContext(ctx); err != nil {
			_ = tcpConn.Close()
			return nil, fmt.Errorf("fingerprint: utls handshake failed: %w", err)
		}

		return uConn, nil
	}

	return transport, nil
}

// http11Spec returns the parroted ClientHello for id with its ALPN offer
// restricted to http/1.1.
func http11Spec(id utls.ClientHelloID) (utls.ClientHelloSpec, error) {
	spec, err := utls.UTLSIdToSpec(id)
	if err != nil {
		return utls.ClientHelloSpec{}, err
	}
	for _, ext := range spec.Extensions {
		if alpn, ok := ext.(*utls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
		}
	}
	return spec, nil
}
