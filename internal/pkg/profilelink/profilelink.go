// Package profilelink renders links to forum member profiles.
package profilelink

import (
	"fmt"
	"html"
	"net/url"
	"strconv"
	"strings"
)

// ProfilePath is the forum's member profile route.
const ProfilePath = "member.php?action=profile&uid="

// Renderer builds profile anchors under a forum base URL.
type Renderer struct {
	base string
}

// New validates baseURL. An empty base yields site-relative links.
func New(baseURL string) (*Renderer, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return &Renderer{}, nil
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse profile base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("profile base url must be http or https, got %q", baseURL)
	}
	return &Renderer{base: strings.TrimRight(baseURL, "/") + "/"}, nil
}

// URL returns the profile address of userID.
func (r *Renderer) URL(userID int64) string {
	return r.base + ProfilePath + strconv.FormatInt(userID, 10)
}

// ProfileLink wraps an already escaped username in a link to the profile.
// Guests (userID <= 0) get the bare name.
func (r *Renderer) ProfileLink(escapedUsername string, userID int64) string {
	if userID <= 0 {
		return escapedUsername
	}
	return `<a href="` + html.EscapeString(r.URL(userID)) + `">` + escapedUsername + `</a>`
}
