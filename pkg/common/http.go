package common

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"
)

// HTTPClient returns a default http client with a cookie jar attached. The
// energiek API delivers its anti-forgery token as a cookie, so every client
// talking to it needs a jar.
func HTTPClient(timeout time.Duration) *http.Client {
	jar, err := cookiejar.New(nil)
	if err != nil {
		// cookiejar.New only fails on invalid options and we pass none
		panic(fmt.Errorf("failed to create cookie jar: %w", err))
	}

	return &http.Client{
		Jar:     jar,
		Timeout: timeout,
	}
}
