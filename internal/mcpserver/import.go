package mcpserver

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"golang.org/x/time/rate"
)

const (
	maxImportSize = 50 << 20 // 50 MB
	maxRedirects  = 5
)

type importResult struct {
	Path     string `json:"path"`
	Tagged   bool   `json:"tagged"`
	Checksum string `json:"checksum"`
}

func (s *Server) importDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawURL, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var data []byte
	if strings.HasPrefix(rawURL, "data:") {
		data, err = decodeDataURI(rawURL)
	} else {
		data, err = s.fetch(ctx, rawURL)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(data) > maxImportSize {
		return mcp.NewToolResultError(fmt.Sprintf("file too large: %d bytes (max %d)", len(data), maxImportSize)), nil
	}

	filename := req.GetString("filename", "")
	if filename == "" {
		filename = filenameFromURL(rawURL)
	}

	doc, err := s.svc.ImportDocument(ctx, filename, data)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(importResult{Path: doc.Path, Tagged: doc.Tagged, Checksum: doc.Checksum})
}

// decodeDataURI decodes a data:application/pdf;base64,<payload> URI.
// Trailing padding is optional.
func decodeDataURI(uri string) ([]byte, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, errors.New("data URI: no payload")
	}
	params := strings.Split(header, ";")
	if !strings.EqualFold(params[0], "application/pdf") {
		return nil, fmt.Errorf("data URI: media type %q is not application/pdf", params[0])
	}
	if !slices.ContainsFunc(params[1:], func(p string) bool { return strings.EqualFold(p, "base64") }) {
		return nil, errors.New("data URI: payload must be base64")
	}
	data, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
	if err != nil {
		return nil, fmt.Errorf("data URI: %w", err)
	}
	return data, nil
}

// downloader fetches remote PDFs for import_document. Requests are rate
// limited, size capped, and every connection is checked against the
// resolved address, so redirects and DNS answers cannot reach internal
// hosts either.
type downloader struct {
	client  *http.Client
	limiter *rate.Limiter
	maxSize int64
}

func newDownloader() *downloader {
	dialer := &net.Dialer{Timeout: 10 * time.Second, Control: guardDial}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext
	return &downloader{
		client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return checkURL(req.URL)
			},
		},
		// One download per second, bursts of three.
		limiter: rate.NewLimiter(rate.Every(time.Second), 3),
		maxSize: maxImportSize,
	}
}

// Fetch downloads rawURL and returns the body.
func (d *downloader) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if err := checkURL(u); err != nil {
		return nil, err
	}
	if err := d.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("download throttled: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("Accept", "application/pdf")
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", u.Redacted(), err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s: HTTP %d", u.Redacted(), resp.StatusCode)
	}
	if resp.ContentLength > d.maxSize {
		return nil, fmt.Errorf("download %s: %d bytes exceeds %d", u.Redacted(), resp.ContentLength, d.maxSize)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, d.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", u.Redacted(), err)
	}
	if int64(len(data)) > d.maxSize {
		return nil, fmt.Errorf("download %s: body exceeds %d bytes", u.Redacted(), d.maxSize)
	}
	return data, nil
}

// checkURL accepts http(s) URLs whose host is not obviously internal.
// Host names are checked again by guardDial once they resolve.
func checkURL(u *url.URL) error {
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q (only http/https)", u.Scheme)
	}
	host := strings.ToLower(strings.TrimSuffix(u.Hostname(), "."))
	switch {
	case host == "":
		return errors.New("URL has no host")
	case host == "localhost", strings.HasSuffix(host, ".localhost"), host == "metadata.google.internal":
		return fmt.Errorf("blocked host %s", host)
	}
	if ip := net.ParseIP(host); ip != nil && blockedIP(ip) {
		return fmt.Errorf("blocked address %s", ip)
	}
	return nil
}

// guardDial runs after name resolution and before connecting.
func guardDial(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil || blockedIP(ip) {
		return fmt.Errorf("blocked address %s", host)
	}
	return nil
}

// blockedIP covers loopback, private, link-local (including the cloud
// metadata address 169.254.169.254) and unspecified addresses.
func blockedIP(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsInterfaceLocalMulticast()
}

// filenameFromURL takes the last path segment of a URL, falling back to a
// random name for data URIs and bare hosts.
func filenameFromURL(rawURL string) string {
	if !strings.HasPrefix(rawURL, "data:") {
		if parsed, err := url.Parse(rawURL); err == nil {
			base := path.Base(parsed.Path)
			if base != "" && base != "." && base != "/" {
				return base
			}
		}
	}
	return uuid.NewString() + ".pdf"
}
