package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"time"

	"github.com/portalcraft/pagesapi/pkg/robusthttp"
	"github.com/portalcraft/pagesapi/portal/client"
	"github.com/portalcraft/pagesapi/portal/syntax"
	"github.com/portalcraft/pagesapi/portal/webapi"

	"github.com/PuerkitoBio/purell"
	"github.com/adrg/xdg"
	"github.com/urfave/cli/v2"
)

const (
	sessionStatePath = "ppctl/session.json"
	defaultTimeout   = 30 * time.Second
)

var ErrNoSession = errors.New("no portal host configured (use --host, PORTAL_HOST, or 'ppctl login')")

// Persisted portal session. The cookie is whatever the browser sends to the portal, typically including ".AspNet.ApplicationCookie".
type PortalSession struct {
	Host   string `json:"host"`
	Cookie string `json:"cookie"`
}

func persistSession(sess *PortalSession) error {

	fPath, err := xdg.StateFile(sessionStatePath)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(fPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	sessBytes, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return err
	}
	_, err = f.Write(sessBytes)
	return err
}

// Returns nil (and no error) if there is no persisted session.
func loadSession() (*PortalSession, error) {
	fPath, err := xdg.SearchStateFile(sessionStatePath)
	if err != nil {
		return nil, nil
	}

	fBytes, err := os.ReadFile(fPath)
	if err != nil {
		return nil, err
	}

	var sess PortalSession
	if err := json.Unmarshal(fBytes, &sess); err != nil {
		return nil, fmt.Errorf("parsing session file %s: %w", fPath, err)
	}
	return &sess, nil
}

func wipeSession() error {
	fPath, err := xdg.SearchStateFile(sessionStatePath)
	if err != nil {
		return nil
	}
	err = os.Remove(fPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Cleans up a portal host URL given by the user, so saved sessions match regardless of case, default port or trailing slash.
func normalizeHost(raw string) (string, error) {
	clean, err := purell.NormalizeURLString(raw, purell.FlagsSafe|purell.FlagRemoveTrailingSlash|purell.FlagRemoveFragment)
	if err != nil {
		return "", fmt.Errorf("invalid portal host %q: %w", raw, err)
	}
	u, err := url.Parse(clean)
	if err != nil {
		return "", fmt.Errorf("invalid portal host %q: %w", raw, err)
	}
	if (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return "", fmt.Errorf("portal host must be an http(s) URL: %q", raw)
	}
	if u.RawQuery != "" {
		return "", fmt.Errorf("portal host must not have a query: %q", raw)
	}
	return clean, nil
}

// Resolves host and cookie: flags and env vars win, then the persisted session.
func sessionFromContext(cctx *cli.Context) (*PortalSession, error) {
	sess := PortalSession{
		Cookie: cctx.String("cookie"),
	}
	if raw := cctx.String("host"); raw != "" {
		host, err := normalizeHost(raw)
		if err != nil {
			return nil, err
		}
		sess.Host = host
	}
	if sess.Host != "" && sess.Cookie != "" {
		return &sess, nil
	}

	saved, err := loadSession()
	if err != nil {
		return nil, err
	}
	if saved != nil && (sess.Host == "" || sess.Host == saved.Host) {
		sess.Host = saved.Host
		if sess.Cookie == "" {
			sess.Cookie = saved.Cookie
		}
	}
	if sess.Host == "" {
		return nil, ErrNoSession
	}
	return &sess, nil
}

func newAPIClient(cctx *cli.Context, sess *PortalSession) *client.APIClient {
	httpClient := robusthttp.NewClient(
		robusthttp.WithMaxRetries(cctx.Int("retries")),
		robusthttp.WithTimeout(cctx.Duration("timeout")),
	)
	return client.NewPortalClient(httpClient, sess.Host, sess.Cookie)
}

func loadPortalClient(cctx *cli.Context) (*webapi.Client, error) {
	sess, err := sessionFromContext(cctx)
	if err != nil {
		return nil, err
	}
	lang, err := syntax.ParseLanguage(cctx.String("lang"))
	if err != nil {
		return nil, err
	}
	c := webapi.NewClient(newAPIClient(cctx, sess))
	c.Language = lang
	return c, nil
}

var cmdLogin = &cli.Command{
	Name:   "login",
	Usage:  "check the portal session given with --host and --cookie, and save it for later commands",
	Action: runLogin,
}

func runLogin(cctx *cli.Context) error {
	ctx := cctx.Context

	if cctx.String("host") == "" || cctx.String("cookie") == "" {
		return fmt.Errorf("login requires both --host and --cookie")
	}
	host, err := normalizeHost(cctx.String("host"))
	if err != nil {
		return err
	}
	sess := PortalSession{
		Host:   host,
		Cookie: cctx.String("cookie"),
	}

	// fetching a token confirms the host is a reachable portal which accepts the cookie
	api := newAPIClient(cctx, &sess)
	if _, err := api.Tokens.Token(ctx); err != nil {
		return fmt.Errorf("checking portal session: %w", err)
	}

	if err := persistSession(&sess); err != nil {
		return err
	}
	fmt.Printf("saved session for %s\n", sess.Host)
	return nil
}

var cmdLogout = &cli.Command{
	Name:  "logout",
	Usage: "forget the saved portal session",
	Action: func(cctx *cli.Context) error {
		return wipeSession()
	},
}
