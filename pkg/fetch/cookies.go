package fetch

import (
	"bufio"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const httpOnlyPrefix = "#HttpOnly_"

// LoadCookieJar reads a Netscape cookies.txt file into a cookie jar and
// returns how many cookies it accepted.
func LoadCookieJar(path string) (http.CookieJar, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer file.Close()

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, 0, err
	}

	byHost := make(map[string][]*http.Cookie)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		httpOnly := false
		if strings.HasPrefix(line, httpOnlyPrefix) {
			httpOnly = true
			line = strings.TrimPrefix(line, httpOnlyPrefix)
		}
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < 7 {
			return nil, 0, fmt.Errorf("%s:%d: expected 7 tab separated fields, got %d", path, lineNo, len(fields))
		}

		domain := fields[0]
		cookie := &http.Cookie{
			Name:     fields[5],
			Value:    fields[6],
			Path:     fields[2],
			Secure:   strings.EqualFold(fields[3], "TRUE"),
			HttpOnly: httpOnly,
		}
		if strings.EqualFold(fields[1], "TRUE") {
			cookie.Domain = domain
		}
		if expires, err := strconv.ParseInt(fields[4], 10, 64); err == nil && expires > 0 {
			cookie.Expires = time.Unix(expires, 0)
		}

		host := strings.TrimPrefix(domain, ".")
		byHost[host] = append(byHost[host], cookie)
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, err
	}

	count := 0
	for host, cookies := range byHost {
		jar.SetCookies(&url.URL{Scheme: "https", Host: host, Path: "/"}, cookies)
		count += len(cookies)
	}
	return jar, count, nil
}
