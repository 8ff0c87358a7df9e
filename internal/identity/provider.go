package identity

import (
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Provider keeps the identifier in a cookie jar, scoped to the backend URL.
// The first call generates and stores a fresh UUID; later calls return it
// for as long as the cookie lives.
type Provider struct {
	mu    sync.Mutex
	jar   http.CookieJar
	u     *url.URL
	newID func() string
	now   func() time.Time
}

func NewProvider(jar http.CookieJar, baseURL string) (*Provider, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("base url %q has no host", baseURL)
	}
	// the cookie is site-wide
	site := &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}
	return &Provider{
		jar:   jar,
		u:     site,
		newID: uuid.NewString,
		now:   time.Now,
	}, nil
}

func (p *Provider) UserID() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, c := range p.jar.Cookies(p.u) {
		if c.Name == CookieName && c.Value != "" {
			return c.Value
		}
	}

	id := p.newID()
	p.jar.SetCookies(p.u, []*http.Cookie{{
		Name:    CookieName,
		Value:   id,
		Path:    "/",
		Expires: p.now().Add(CookieMaxAge),
	}})
	return id
}
