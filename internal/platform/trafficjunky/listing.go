package trafficjunky

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// The media library shows 12 creatives per listing page. Paging is bounded
// so a broken next link can never loop forever.
const maxListingPages = 50

const mediaLibraryPath = "/media-library"

// listingEntry is one creative tile scraped from a listing page. The tile
// markup is:
//
//	<div class="creativeContainer" data-id="1032530511">
//	  ... <label class="creativeName">EN_..._ID-F40623FA.mp4</label> ...
//	</div>
type listingEntry struct {
	ID          string
	DisplayName string
}

// listingPage holds one parsed listing page and the link to the next one.
type listingPage struct {
	Entries []listingEntry
	NextURL string // empty on the last page
}

func parseHTML(r io.Reader) (*html.Node, error) {
	return html.Parse(r)
}

// parseListing extracts the creative tiles and pagination link from one
// listing page.
func parseListing(r io.Reader) (*listingPage, error) {
	doc, err := parseHTML(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing page: %w", err)
	}

	page := &listingPage{}
	walk(doc, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		switch n.Data {
		case "div":
			if hasClass(n, "creativeContainer") {
				if id := attr(n, "data-id"); id != "" {
					page.Entries = append(page.Entries, listingEntry{
						ID:          strings.TrimSpace(id),
						DisplayName: creativeName(n),
					})
				}
			}
		case "a":
			if attr(n, "rel") == "next" && page.NextURL == "" {
				page.NextURL = attr(n, "href")
			}
		}
	})
	return page, nil
}

// creativeName finds the display name label inside a creative tile.
func creativeName(tile *html.Node) string {
	var name string
	walk(tile, func(n *html.Node) {
		if name != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "label" && hasClass(n, "creativeName") {
			name = strings.TrimSpace(textContent(n))
		}
	})
	return name
}

// findFormToken returns the value of the hidden CSRF token input, empty if
// the page carries none.
func findFormToken(doc *html.Node) string {
	var token string
	walk(doc, func(n *html.Node) {
		if token != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "input" && attr(n, "name") == "_token" {
			token = attr(n, "value")
		}
	})
	return token
}

// findUploadForm locates the upload form's action URL within a page.
func findUploadForm(doc *html.Node) string {
	var action string
	walk(doc, func(n *html.Node) {
		if action != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "form" && hasClass(n, "dropzone") {
			action = attr(n, "action")
		}
	})
	return action
}

// pageContainsText reports whether any text node contains the given marker.
func pageContainsText(doc *html.Node, marker string) bool {
	found := false
	walk(doc, func(n *html.Node) {
		if found {
			return
		}
		if n.Type == html.TextNode && strings.Contains(n.Data, marker) {
			found = true
		}
	})
	return found
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		walk(child, fn)
	}
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	})
	return sb.String()
}
