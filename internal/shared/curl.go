// Utilities for importing a browser session from a "Copy as cURL" command.
package shared

import (
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strings"
)

var (
	curlHeaderRegex = regexp.MustCompile(`-H\s+'([^']+)'|-H\s+"([^"]+)"`)
	curlCookieRegex = regexp.MustCompile(`(?:-b|--cookie)\s+'([^']+)'|(?:-b|--cookie)\s+"([^"]+)"`)
	curlURLRegex    = regexp.MustCompile(`curl\s+(?:-[^\s]+\s+)*'?"?(https?://[^'"\s]+)`)
)

// CurlSession holds the request URL, headers and cookies parsed from a cURL command.
type CurlSession struct {
	URL     string
	Headers map[string]string
	Cookie  string
}

// ParseCurlFile reads a .sh file containing a cURL command and extracts the session.
func ParseCurlFile(filepath string) (*CurlSession, error) {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read curl file: %w", err)
	}

	return ParseCurlCommand(string(content))
}

// ParseCurlCommand parses a cURL command string and extracts URL, headers and cookie.
//
// A -b/--cookie flag takes precedence over a Cookie header.
func ParseCurlCommand(curlCmd string) (*CurlSession, error) {
	curlCmd = strings.ReplaceAll(curlCmd, "\\\n", " ")
	curlCmd = strings.ReplaceAll(curlCmd, "\\", "")

	session := &CurlSession{Headers: make(map[string]string)}

	if m := curlURLRegex.FindStringSubmatch(curlCmd); len(m) > 1 {
		session.URL = m[1]
	}

	var headerCookie string
	for _, match := range curlHeaderRegex.FindAllStringSubmatch(curlCmd, -1) {
		line := match[1]
		if line == "" {
			line = match[2]
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if strings.EqualFold(key, "cookie") {
			if headerCookie == "" {
				headerCookie = value
			}
			continue
		}
		session.Headers[key] = value
	}

	if m := curlCookieRegex.FindStringSubmatch(curlCmd); len(m) > 1 {
		session.Cookie = m[1]
		if session.Cookie == "" {
			session.Cookie = m[2]
		}
	}
	if session.Cookie == "" {
		session.Cookie = headerCookie
	}

	if session.Cookie == "" {
		return nil, fmt.Errorf("%w: no cookies found in curl command", ErrInvalidInput)
	}

	return session, nil
}

// Cookies splits the cookie string into [http.Cookie] values.
//
// Malformed pairs are skipped.
func (c *CurlSession) Cookies() []*http.Cookie {
	cookies, err := http.ParseCookie(c.Cookie)
	if err == nil {
		return cookies
	}

	var out []*http.Cookie
	for _, part := range strings.Split(c.Cookie, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || name == "" {
			continue
		}
		out = append(out, &http.Cookie{Name: name, Value: value})
	}
	return out
}
