package markup

import (
	"fmt"
	"regexp"
	"strings"
)

var reLinkBlock = regexp.MustCompile("`\\[(.*?)]")

// ErrMalformedLink is returned internally for a link block with more than
// two embedded back-ticks; ExtractLinks skips such blocks rather than
// surfacing the error to the caller, matching the page-format contract that
// a single malformed link never aborts extraction of the rest of the page.
var ErrMalformedLink = fmt.Errorf("markup: malformed link block")

// ExtractLinks finds every `[ ... ] block in page and classifies it as
// internal (same node, gets the page's own address prefixed) or external
// (leads to another node). A block with two embedded back-ticks is always
// reported as external, in the ":/path`params" (or ":/path") form it parses
// to. Both slices are deduplicated; malformed blocks are skipped without
// aborting the rest of the page.
func ExtractLinks(address, page string) (internal, external []string) {
	matches := reLinkBlock.FindAllStringSubmatch(page, -1)

	internalSet := make(map[string]struct{}, len(matches))
	externalSet := make(map[string]struct{}, len(matches))

	for _, m := range matches {
		link, err := parseLinkBlock(m[1])
		if err != nil {
			continue
		}
		if !strings.Contains(link, ":") {
			continue
		}
		if isExternal(link) || strings.Count(m[1], "`") == 2 {
			externalSet[link] = struct{}{}
		} else {
			internalSet[address+link] = struct{}{}
		}
	}

	internal = make([]string, 0, len(internalSet))
	for l := range internalSet {
		internal = append(internal, l)
	}
	external = make([]string, 0, len(externalSet))
	for l := range externalSet {
		external = append(external, l)
	}
	return internal, external
}

// parseLinkBlock interprets the contents of a `[ ... ] block. The number of
// embedded back-ticks selects the shape:
//
//	0 back-ticks: ":/path" or "addr:/path"                    -> the block itself
//	1 back-tick:  "label`addr:/path"                          -> the part after the back-tick
//	2 back-ticks: "label`:/path`params"                       -> ":/path`params" unless params start with "*"
//	>2:           malformed, caller skips it
func parseLinkBlock(link string) (string, error) {
	seps := strings.Count(link, "`")
	switch seps {
	case 0:
		return link, nil
	case 1:
		parts := strings.SplitN(link, "`", 2)
		return parts[1], nil
	case 2:
		parts := strings.Split(link, "`")
		url, params := parts[1], parts[2]
		if strings.HasPrefix(params, "*") {
			return url, nil
		}
		return url + "`" + params, nil
	default:
		return "", ErrMalformedLink
	}
}

// isExternal reports whether link leads to a page on another node: internal
// links are written relative to the current node and start with ":".
func isExternal(link string) bool {
	return !strings.HasPrefix(link, ":")
}

// AddressOf returns the node address portion of a URL of the form
// "<address>:<path>".
func AddressOf(url string) string {
	addr, _, _ := strings.Cut(url, ":")
	return addr
}

// IsValidAddress reports whether addr is a well-formed 32-hex-character
// node address.
func IsValidAddress(addr string) bool {
	if len(addr) != 32 {
		return false
	}
	for _, r := range addr {
		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')) {
			return false
		}
	}
	return true
}
