package identity

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// FileJar is a net/http/cookiejar.Jar whose contents survive between runs in
// a YAML file, so a terminal client keeps its identity the way a browser
// profile does. Matching and expiry are left to the wrapped jar; the file
// only holds what that jar still returns.
type FileJar struct {
	mu     sync.Mutex
	path   string
	jar    *cookiejar.Jar
	saved  []storedCookie
	logger *slog.Logger
	now    func() time.Time
}

type storedCookie struct {
	Site    string    `yaml:"site"`
	Name    string    `yaml:"name"`
	Value   string    `yaml:"value"`
	Path    string    `yaml:"path"`
	Expires time.Time `yaml:"expires,omitempty"`
}

type jarFile struct {
	Cookies []storedCookie `yaml:"cookies"`
}

// OpenFileJar loads the jar at path, or starts an empty one when the file
// does not exist yet. Cookies that expired while the client was not running
// are not restored.
func OpenFileJar(path string, logger *slog.Logger) (*FileJar, error) {
	if logger == nil {
		logger = slog.Default()
	}
	inner, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	j := &FileJar{path: path, jar: inner, logger: logger, now: time.Now}

	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return j, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cookie jar: %w", err)
	}
	var f jarFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("decode cookie jar %s: %w", path, err)
	}
	for _, c := range f.Cookies {
		u, err := url.Parse(c.Site)
		if err != nil || u.Host == "" {
			logger.Warn("cookie_jar_entry_skipped", slog.String("site", c.Site))
			continue
		}
		j.jar.SetCookies(u, []*http.Cookie{{
			Name:    c.Name,
			Value:   c.Value,
			Path:    c.Path,
			Expires: c.Expires,
		}})
		j.saved = append(j.saved, c)
	}
	j.saved = j.live()
	return j, nil
}

// Cookies implements http.CookieJar.
func (j *FileJar) Cookies(u *url.URL) []*http.Cookie {
	return j.jar.Cookies(u)
}

// SetCookies implements http.CookieJar and rewrites the file.
func (j *FileJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.jar.SetCookies(u, cookies)

	site := (&url.URL{Scheme: u.Scheme, Host: u.Host}).String()
	now := j.now()
	for _, hc := range cookies {
		sc := storedCookie{Site: site, Name: hc.Name, Path: hc.Path, Expires: hc.Expires}
		if sc.Path == "" || sc.Path[0] != '/' {
			sc.Path = defaultPath(u.Path)
		}
		if hc.MaxAge > 0 {
			sc.Expires = now.Add(time.Duration(hc.MaxAge) * time.Second)
		}
		j.saved = upsert(j.saved, sc)
	}
	j.saved = j.live()

	if err := j.save(); err != nil {
		j.logger.Warn("cookie_jar_save_failed",
			slog.String("path", j.path),
			slog.String("error", err.Error()),
		)
	}
}

// live keeps the recorded cookies the wrapped jar still returns, with the
// value it returns them with.
func (j *FileJar) live() []storedCookie {
	out := make([]storedCookie, 0, len(j.saved))
	for _, sc := range j.saved {
		u, err := url.Parse(sc.Site)
		if err != nil {
			continue
		}
		u.Path = sc.Path
		for _, c := range j.jar.Cookies(u) {
			if c.Name == sc.Name {
				sc.Value = c.Value
				out = append(out, sc)
				break
			}
		}
	}
	return out
}

// defaultPath is the RFC 6265 default-path of a request path, the same rule
// the wrapped jar applies to a cookie without a Path.
func defaultPath(p string) string {
	if p == "" || p[0] != '/' {
		return "/"
	}
	i := strings.LastIndex(p, "/")
	if i == 0 {
		return "/"
	}
	return p[:i]
}

func upsert(list []storedCookie, sc storedCookie) []storedCookie {
	for i, c := range list {
		if c.Site == sc.Site && c.Name == sc.Name && c.Path == sc.Path {
			list[i] = sc
			return list
		}
	}
	return append(list, sc)
}

func (j *FileJar) save() error {
	b, err := yaml.Marshal(jarFile{Cookies: j.saved})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(j.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(j.path, b, 0o600)
}
