package content

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultURLAttributes are the attributes whose values are treated as URLs.
var DefaultURLAttributes = []string{"href", "src", "data", "xlink:href", "action", "formaction", "poster"}

// DefaultBlockedPrefixes are URL prefixes that make an attribute executable
// or let it load content from an attacker-chosen host.
var DefaultBlockedPrefixes = []string{"javascript:", "vbscript:", "data:text/html", "//", "/\\", "\\\\"}

// Report counts what a Sanitize call removed.
type Report struct {
	Scripts       int `json:"scripts"`
	EventHandlers int `json:"eventHandlers"`
	URLs          int `json:"urls"`
	Srcdoc        int `json:"srcdoc"`
	Animations    int `json:"animations"`
	RawText       int `json:"rawText"`
}

// Total returns the number of removals.
func (r Report) Total() int {
	return r.Scripts + r.EventHandlers + r.URLs + r.Srcdoc + r.Animations + r.RawText
}

// Add accumulates another report.
func (r *Report) Add(o Report) {
	r.Scripts += o.Scripts
	r.EventHandlers += o.EventHandlers
	r.URLs += o.URLs
	r.Srcdoc += o.Srcdoc
	r.Animations += o.Animations
	r.RawText += o.RawText
}

// Sanitizer removes executable constructs from vendor markup. It never
// escapes or rewrites: dangerous elements and attributes are dropped and
// everything else is kept.
//
// A Sanitizer is immutable after construction and safe for concurrent use.
type Sanitizer struct {
	urlAttrs map[string]bool
	blocked  []string
}

// SanitizerOption configures a Sanitizer.
type SanitizerOption func(*Sanitizer)

// WithURLAttributes adds attribute names to the URL-bearing set.
func WithURLAttributes(names ...string) SanitizerOption {
	return func(s *Sanitizer) {
		for _, n := range names {
			s.urlAttrs[strings.ToLower(n)] = true
		}
	}
}

// WithBlockedPrefixes adds URL prefixes (compared lowercase) that cause a
// URL-bearing attribute to be removed.
func WithBlockedPrefixes(prefixes ...string) SanitizerOption {
	return func(s *Sanitizer) {
		for _, p := range prefixes {
			s.blocked = append(s.blocked, strings.ToLower(p))
		}
	}
}

// NewSanitizer creates a sanitizer with the default rules plus any options.
func NewSanitizer(opts ...SanitizerOption) *Sanitizer {
	s := &Sanitizer{urlAttrs: make(map[string]bool)}
	for _, n := range DefaultURLAttributes {
		s.urlAttrs[n] = true
	}
	s.blocked = append(s.blocked, DefaultBlockedPrefixes...)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sanitize parses markup as a body fragment, removes dangerous constructs
// and renders the result. Markup the HTML parser cannot make sense of is
// repaired the way a browser would, so there is no error path.
func (s *Sanitizer) Sanitize(markup string) (string, Report) {
	var report Report
	context := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(markup), context)
	if err != nil {
		// The parser only fails on reader errors, which a strings.Reader never returns.
		return "", report
	}

	var sb strings.Builder
	for _, n := range nodes {
		if s.dropElement(n, &report) {
			continue
		}
		s.clean(n, &report)
		if err := html.Render(&sb, n); err != nil {
			continue
		}
	}
	return sb.String(), report
}

// rawTextElements hold their content as one unparsed text node that
// html.Render writes back unescaped. A consumer parsing the output with
// scripting disabled would see that text as markup, so none of it survives.
var rawTextElements = map[string]bool{
	"noscript":  true,
	"noembed":   true,
	"noframes":  true,
	"xmp":       true,
	"plaintext": true,
}

// clean strips attributes of n and removes dangerous descendants in place.
func (s *Sanitizer) clean(n *html.Node, report *Report) {
	if n.Type == html.ElementNode {
		n.Attr = s.cleanAttrs(n.Attr, report)
		if strings.EqualFold(n.Data, "iframe") && n.Namespace == "" {
			// The iframe itself is allowed; its fallback text is not.
			for n.FirstChild != nil {
				report.RawText++
				n.RemoveChild(n.FirstChild)
			}
			return
		}
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if s.dropElement(c, report) {
			n.RemoveChild(c)
		} else {
			s.clean(c, report)
		}
		c = next
	}
}

// dropElement reports whether n must be removed with its whole subtree.
func (s *Sanitizer) dropElement(n *html.Node, report *Report) bool {
	if n.Type != html.ElementNode {
		return false
	}
	name := strings.ToLower(n.Data)
	if rawTextElements[name] {
		report.RawText++
		return true
	}
	switch name {
	case "script":
		report.Scripts++
		return true
	case "animate", "set":
		for _, a := range n.Attr {
			if !strings.EqualFold(a.Key, "attributeName") {
				continue
			}
			target := strings.ToLower(strings.TrimSpace(a.Val))
			if target == "href" || target == "xlink:href" || strings.HasPrefix(target, "on") {
				report.Animations++
				return true
			}
		}
	}
	return false
}

func (s *Sanitizer) cleanAttrs(attrs []html.Attribute, report *Report) []html.Attribute {
	kept := attrs[:0]
	for _, a := range attrs {
		name := strings.ToLower(a.Key)
		if a.Namespace != "" {
			name = strings.ToLower(a.Namespace) + ":" + name
		}
		local := name
		if i := strings.LastIndexByte(name, ':'); i >= 0 {
			local = name[i+1:]
		}

		switch {
		case strings.HasPrefix(local, "on"):
			report.EventHandlers++
			continue
		case local == "srcdoc":
			report.Srcdoc++
			continue
		case (s.urlAttrs[name] || s.urlAttrs[local]) && s.blockedURL(a.Val):
			report.URLs++
			continue
		}
		kept = append(kept, a)
	}
	return kept
}

// blockedURL reports whether a URL starts with a blocked prefix once
// whitespace and control characters are removed.
func (s *Sanitizer) blockedURL(raw string) bool {
	normalized := strings.ToLower(strings.Map(func(r rune) rune {
		if r <= ' ' || r == 0x7f {
			return -1
		}
		return r
	}, raw))
	for _, p := range s.blocked {
		if strings.HasPrefix(normalized, p) {
			return true
		}
	}
	return false
}
