// Package vsphere is the adapter between vCenter's managed-object graph and
// the flat records the rest of the tool works with. All optional-attribute
// probing happens here; downstream packages only see resolved values.
package vsphere

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/vmware/govmomi/session/cache"
	"github.com/vmware/govmomi/vim25"
	"github.com/vmware/govmomi/vim25/soap"
)

// ClientConfig holds the connection parameters for one vCenter endpoint.
type ClientConfig struct {
	Host     string // FQDN or IP, scheme and /sdk suffix optional
	User     string
	Password string
	Insecure bool // skip TLS certificate verification
}

// Client wraps an authenticated vim25 session.
type Client struct {
	vim     *vim25.Client
	session *cache.Session
}

// Connect logs in to vCenter and returns a client. The session is cached on
// disk by govmomi so repeated runs against the same endpoint reuse it.
func Connect(ctx context.Context, cfg ClientConfig) (*Client, error) {
	host := cfg.Host
	if !strings.HasPrefix(host, "https://") && !strings.HasPrefix(host, "http://") {
		host = "https://" + host
	}
	if !strings.HasSuffix(host, "/sdk") {
		host += "/sdk"
	}

	u, err := soap.ParseURL(host)
	if err != nil {
		return nil, fmt.Errorf("vsphere: parse endpoint %q: %w", cfg.Host, err)
	}
	u.User = url.UserPassword(cfg.User, cfg.Password)

	s := &cache.Session{
		URL:      u,
		Insecure: cfg.Insecure,
		Reauth:   true,
	}
	c := new(vim25.Client)
	if err := s.Login(ctx, c, nil); err != nil {
		return nil, fmt.Errorf("vsphere: login to %s: %w", u.Host, err)
	}

	return &Client{vim: c, session: s}, nil
}

// Vim returns the underlying vim25 client.
func (c *Client) Vim() *vim25.Client { return c.vim }

// Logout ends the session.
func (c *Client) Logout(ctx context.Context) error {
	return c.session.Logout(ctx, c.vim)
}
