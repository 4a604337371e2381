package fe3

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mjishnu/StoreListings/internal/httpx"
)

const defaultEndpoint = "https://fe3.delivery.mp.microsoft.com/ClientWebService/client.asmx"

// Client drives the three-stage sync protocol. It holds no session
// state; the cookie lives with the caller for the span of one
// resolution.
type Client struct {
	http     *httpx.Client
	endpoint string
	now      func() time.Time
}

// Option configures a Client at construction time.
type Option func(*Client)

// WithEndpoint overrides the protocol endpoint (tests).
func WithEndpoint(u string) Option {
	return func(c *Client) { c.endpoint = strings.TrimRight(u, "/") }
}

// New creates a protocol client over the shared HTTP client.
func New(hc *httpx.Client, opts ...Option) *Client {
	c := &Client{http: hc, endpoint: defaultEndpoint, now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c
}

// GetCookie acquires the session credential every later stage needs.
func (c *Client) GetCookie(ctx context.Context) (Cookie, error) {
	var body strings.Builder
	if err := getCookieBodyTmpl.Execute(&body, struct{ Now string }{
		Now: c.now().UTC().Format(wsTimeFormat),
	}); err != nil {
		return Cookie{}, fmt.Errorf("get cookie: %w", err)
	}
	resp, err := c.post(ctx, actionGetCookie, body.String())
	if err != nil {
		return Cookie{}, fmt.Errorf("get cookie: %w", err)
	}
	cookie, err := parseGetCookie(resp)
	if err != nil {
		return Cookie{}, fmt.Errorf("get cookie: %w", err)
	}
	logrus.Debug("fe3: session cookie acquired")
	return cookie, nil
}

// SyncUpdates requests the updates applicable to one category for the
// given OS descriptor. The returned cookie is the refreshed credential
// when the service sent one, otherwise the one passed in.
func (c *Client) SyncUpdates(ctx context.Context, cookie Cookie, categoryID string, osd OSDescriptor) ([]Update, Cookie, error) {
	var body strings.Builder
	err := syncUpdatesBodyTmpl.Execute(&body, struct {
		Cookie                    Cookie
		CategoryID                string
		Language                  string
		DeviceAttributes          string
		InstalledNonLeafUpdateIDs []int
	}{
		Cookie:                    cookie,
		CategoryID:                categoryID,
		Language:                  osd.Language,
		DeviceAttributes:          deviceAttributes(osd),
		InstalledNonLeafUpdateIDs: installedNonLeafUpdateIDs,
	})
	if err != nil {
		return nil, cookie, fmt.Errorf("sync category %s: %w", categoryID, err)
	}
	resp, err := c.post(ctx, actionSyncUpdates, body.String())
	if err != nil {
		return nil, cookie, fmt.Errorf("sync category %s: %w", categoryID, err)
	}
	updates, refreshed, err := parseSyncUpdates(resp)
	if err != nil {
		return nil, cookie, fmt.Errorf("sync category %s: %w", categoryID, err)
	}
	if refreshed != nil && refreshed.EncryptedData != "" {
		cookie = *refreshed
	}
	logrus.Debugf("fe3: category %s returned %d update(s)", categoryID, len(updates))
	return updates, cookie, nil
}

// DownloadInfo resolves one update's concrete download locations from
// its identity triple.
func (c *Client) DownloadInfo(ctx context.Context, cookie Cookie, u Update, osd OSDescriptor) (*PackageDownloadInfo, error) {
	var body strings.Builder
	err := extendedInfoBodyTmpl.Execute(&body, struct {
		Cookie           Cookie
		UpdateID         string
		RevisionNumber   int
		DeviceAttributes string
	}{
		Cookie:           cookie,
		UpdateID:         u.UpdateID,
		RevisionNumber:   u.RevisionNumber,
		DeviceAttributes: deviceAttributes(osd),
	})
	if err != nil {
		return nil, fmt.Errorf("download info for %s r%d: %w", u.UpdateID, u.RevisionNumber, err)
	}
	resp, err := c.post(ctx, actionExtendedInfo, body.String())
	if err != nil {
		return nil, fmt.Errorf("download info for %s r%d: %w", u.UpdateID, u.RevisionNumber, err)
	}
	info, err := parseExtendedInfo(resp, u)
	if err != nil {
		return nil, fmt.Errorf("download info for %s r%d: %w", u.UpdateID, u.RevisionNumber, err)
	}
	return info, nil
}

func (c *Client) post(ctx context.Context, action, body string) ([]byte, error) {
	envelope, err := buildEnvelope(action, c.endpoint, body, c.now())
	if err != nil {
		return nil, err
	}
	return c.http.PostXML(ctx, c.endpoint, envelope)
}
