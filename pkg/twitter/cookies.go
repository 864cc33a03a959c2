package twitter

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/iconidentify/xdl/internal/domain"
)

// Session cookie names needed to fetch media on behalf of a logged-in user.
const (
	CookieAuthToken = "auth_token" // Session authentication token
	CookieCT0       = "ct0"        // CSRF token
)

// RequiredCookies lists the cookies LoadCookies insists on.
var RequiredCookies = []string{CookieAuthToken, CookieCT0}

// netscapeFields is the minimum field count of a cookie-jar line:
// domain, subdomains, path, secure, expiry, name, value.
const netscapeFields = 7

// CookieSet maps required cookie names to their values.
// It is read-only once loaded and safe for concurrent reads.
type CookieSet map[string]string

// AuthToken returns the auth_token value.
func (c CookieSet) AuthToken() string {
	return c[CookieAuthToken]
}

// CT0 returns the ct0 value.
func (c CookieSet) CT0() string {
	return c[CookieCT0]
}

// WriteNetscape writes the set as a cookie-jar file scoped to both post domains.
func (c CookieSet) WriteNetscape(w io.Writer) error {
	if _, err := io.WriteString(w, "# Netscape HTTP Cookie File\n"); err != nil {
		return err
	}
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, host := range []string{".x.com", ".twitter.com"} {
		for _, name := range names {
			if _, err := fmt.Fprintf(w, "%s\tTRUE\t/\tTRUE\t0\t%s\t%s\n", host, name, c[name]); err != nil {
				return err
			}
		}
	}
	return nil
}

// Missing returns the required cookie names absent from the set.
func (c CookieSet) Missing() []string {
	var missing []string
	for _, name := range RequiredCookies {
		if _, ok := c[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// LoadCookies reads the required session cookies from a file in either
// cookie-jar (tab separated) or name=value form.
func LoadCookies(path string) (CookieSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCookieFileRead, err)
	}
	defer f.Close()

	return ParseCookies(f)
}

// ParseCookies parses cookie lines from r. Blank lines and lines starting
// with "#" or "//" are skipped, cookies other than RequiredCookies are
// dropped, and later lines overwrite earlier ones.
func ParseCookies(r io.Reader) (CookieSet, error) {
	cookies := make(CookieSet, len(RequiredCookies))

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}

		if strings.Contains(line, "\t") {
			fields := strings.Split(line, "\t")
			if len(fields) >= netscapeFields && isRequired(fields[5]) {
				cookies[fields[5]] = fields[6]
			}
			continue
		}

		name, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if isRequired(name) {
			cookies[name] = strings.TrimSpace(value)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCookieFileRead, err)
	}

	if missing := cookies.Missing(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrMissingCookie, strings.Join(missing, ", "))
	}

	return cookies, nil
}

func isRequired(name string) bool {
	for _, r := range RequiredCookies {
		if name == r {
			return true
		}
	}
	return false
}
