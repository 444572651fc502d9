package control

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"

	"github.com/lespaceman/athena-browser-sub000/internal/surface"
)

const (
	maxHeadings    = 10
	maxElements    = 50
	defaultMatches = 20
	excerptRunes   = 300
	maxTreeDepth   = 3
	maxNodeName    = 50
	maxLabelRunes  = 30
)

// PageSummary extracts a structured digest of the active page: title,
// description, headings, link and form counts, and a text excerpt.
func (h *Handlers) PageSummary(req *Request) *Response {
	s, errResp := h.acquire()
	if errResp != nil {
		return errResp
	}
	doc, errResp := h.activeDocument(s)
	if errResp != nil {
		return errResp
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	description, _ := doc.Find(`meta[name="description"]`).Attr("content")

	headings := make([]string, 0, maxHeadings)
	doc.Find("h1, h2, h3").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			headings = append(headings, text)
		}
		return len(headings) < maxHeadings
	})

	excerpt := collapseWhitespace(doc.Find("body").Text())
	if runes := []rune(excerpt); len(runes) > excerptRunes {
		excerpt = string(runes[:excerptRunes])
	}

	return JSON(200, map[string]any{
		"title":       title,
		"description": strings.TrimSpace(description),
		"headings":    headings,
		"linkCount":   doc.Find("a[href]").Length(),
		"formCount":   doc.Find("form").Length(),
		"excerpt":     excerpt,
	})
}

// interactiveElement is one link, button, or input found on the page.
type interactiveElement struct {
	Kind     string `json:"kind"`
	Label    string `json:"label"`
	Selector string `json:"selector"`
	Href     string `json:"href,omitempty"`
	Name     string `json:"name,omitempty"`
	Type     string `json:"type,omitempty"`
}

// InteractiveElements lists the elements an agent can act on.
func (h *Handlers) InteractiveElements(req *Request) *Response {
	s, errResp := h.acquire()
	if errResp != nil {
		return errResp
	}
	doc, errResp := h.activeDocument(s)
	if errResp != nil {
		return errResp
	}

	elements := make([]interactiveElement, 0, maxElements)
	add := func(e interactiveElement) bool {
		elements = append(elements, e)
		return len(elements) < maxElements
	}

	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		return add(interactiveElement{
			Kind:     "link",
			Label:    collapseWhitespace(sel.Text()),
			Selector: cssPath(sel),
			Href:     href,
		})
	})
	if len(elements) < maxElements {
		doc.Find(`button, input[type="submit"], input[type="button"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			label := collapseWhitespace(sel.Text())
			if label == "" {
				label, _ = sel.Attr("value")
			}
			return add(interactiveElement{
				Kind:     "button",
				Label:    label,
				Selector: cssPath(sel),
			})
		})
	}
	if len(elements) < maxElements {
		doc.Find("input, select, textarea").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			typ, _ := sel.Attr("type")
			if typ == "submit" || typ == "button" {
				return true
			}
			name, _ := sel.Attr("name")
			placeholder, _ := sel.Attr("placeholder")
			return add(interactiveElement{
				Kind:     "input",
				Label:    placeholder,
				Selector: cssPath(sel),
				Name:     name,
				Type:     typ,
			})
		})
	}

	return JSON(200, map[string]any{"elements": elements, "count": len(elements)})
}

// QueryContent runs a CSS selector or XPath query against the active page.
func (h *Handlers) QueryContent(req *Request) *Response {
	s, errResp := h.acquire()
	if errResp != nil {
		return errResp
	}

	var body struct {
		Query string `json:"query"`
		Mode  string `json:"mode"`
		Limit int    `json:"limit"`
	}
	if err := req.Bind(&body); err != nil {
		return Error(400, err.Error())
	}
	if body.Query == "" {
		return Error(400, "query is required")
	}
	if body.Limit <= 0 {
		body.Limit = defaultMatches
	}

	html, err := s.PageHTML()
	if err != nil {
		return Error(500, err.Error())
	}

	type match struct {
		Text string `json:"text"`
		HTML string `json:"html"`
	}
	matches := make([]match, 0, body.Limit)

	switch body.Mode {
	case "", "selector":
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			return Error(500, "failed to parse page")
		}
		doc.Find(body.Query).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			outer, _ := goquery.OuterHtml(sel)
			matches = append(matches, match{
				Text: collapseWhitespace(sel.Text()),
				HTML: outer,
			})
			return len(matches) < body.Limit
		})
	case "xpath":
		doc, err := htmlquery.Parse(strings.NewReader(html))
		if err != nil {
			return Error(500, "failed to parse page")
		}
		nodes, err := htmlquery.QueryAll(doc, body.Query)
		if err != nil {
			return Error(400, "invalid xpath expression")
		}
		for _, node := range nodes {
			if len(matches) >= body.Limit {
				break
			}
			matches = append(matches, match{
				Text: collapseWhitespace(htmlquery.InnerText(node)),
				HTML: htmlquery.OutputHTML(node, true),
			})
		}
	default:
		return Error(400, `mode must be "selector" or "xpath"`)
	}

	return JSON(200, map[string]any{"matches": matches, "count": len(matches)})
}

// a11yNode is one entry in the accessibility tree. Role falls back to the
// tag name when the element carries no explicit role attribute.
type a11yNode struct {
	Role     string      `json:"role"`
	Tag      string      `json:"tag"`
	Name     string      `json:"name,omitempty"`
	ID       string      `json:"id,omitempty"`
	Href     string      `json:"href,omitempty"`
	Type     string      `json:"type,omitempty"`
	Value    string      `json:"value,omitempty"`
	Disabled bool        `json:"disabled,omitempty"`
	Hidden   bool        `json:"hidden,omitempty"`
	Children []*a11yNode `json:"children,omitempty"`
}

// skippedTags never appear in the accessibility tree.
var skippedTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "meta": true, "link": true,
}

// containerTags are the only elements whose children get walked; content
// under anything else is summarized by the node's name instead.
var containerTags = map[string]bool{
	"body": true, "main": true, "nav": true, "header": true, "footer": true,
	"section": true, "article": true, "aside": true, "form": true,
	"div": true, "ul": true, "ol": true,
}

// AccessibilityTree returns a pruned semantic tree of the active page,
// capped at a few levels deep so the payload stays digestible.
func (h *Handlers) AccessibilityTree(req *Request) *Response {
	s, errResp := h.acquire()
	if errResp != nil {
		return errResp
	}
	doc, errResp := h.activeDocument(s)
	if errResp != nil {
		return errResp
	}

	var tree *a11yNode
	if body := doc.Find("body").First(); body.Length() > 0 {
		tree = buildA11yNode(body, 0)
	}
	return JSON(200, map[string]any{"tree": tree})
}

func buildA11yNode(sel *goquery.Selection, depth int) *a11yNode {
	node := sel.Get(0)
	if node == nil {
		return nil
	}
	tag := node.Data
	if skippedTags[tag] {
		return nil
	}

	n := &a11yNode{Role: tag, Tag: tag}
	if role, ok := sel.Attr("role"); ok && role != "" {
		n.Role = role
	}
	n.Name = accessibleName(sel)
	n.ID, _ = sel.Attr("id")
	n.Href, _ = sel.Attr("href")
	n.Type, _ = sel.Attr("type")
	n.Value, _ = sel.Attr("value")
	_, n.Disabled = sel.Attr("disabled")
	n.Hidden = sel.AttrOr("aria-hidden", "") == "true"

	walk := containerTags[tag] || n.Role == "navigation" || n.Role == "main"
	if walk && depth < maxTreeDepth {
		sel.Children().Each(func(_ int, child *goquery.Selection) {
			if c := buildA11yNode(child, depth+1); c != nil {
				n.Children = append(n.Children, c)
			}
		})
	}
	return n
}

// accessibleName derives a node's label: aria-label wins, otherwise the
// element's own text when it has no element children.
func accessibleName(sel *goquery.Selection) string {
	if label, ok := sel.Attr("aria-label"); ok && label != "" {
		return label
	}
	if sel.Children().Length() > 0 {
		return ""
	}
	name := collapseWhitespace(sel.Text())
	if runes := []rune(name); len(runes) > maxNodeName {
		name = string(runes[:maxNodeName])
	}
	return name
}

// annotatedElement pairs an actionable element with the screenshot it was
// captured alongside. Index follows document order; the headless surface
// has no layout engine, so no geometry is reported.
type annotatedElement struct {
	Index    int    `json:"index"`
	Tag      string `json:"tag"`
	Text     string `json:"text"`
	Type     string `json:"type,omitempty"`
	Selector string `json:"selector"`
}

// AnnotatedScreenshot captures the page and enumerates its actionable
// elements so an agent can match what it sees to what it can act on.
func (h *Handlers) AnnotatedScreenshot(req *Request) *Response {
	s, errResp := h.acquire()
	if errResp != nil {
		return errResp
	}
	data, err := s.Screenshot()
	if err != nil {
		return Error(500, err.Error())
	}
	doc, errResp := h.activeDocument(s)
	if errResp != nil {
		return errResp
	}

	elements := make([]annotatedElement, 0, maxElements)
	doc.Find(`a, button, input, select, textarea, [role="button"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		typ, _ := sel.Attr("type")
		elements = append(elements, annotatedElement{
			Index:    len(elements),
			Tag:      sel.Get(0).Data,
			Text:     elementLabel(sel),
			Type:     typ,
			Selector: cssPath(sel),
		})
		return len(elements) < maxElements
	})

	return JSON(200, map[string]any{
		"format":   "png",
		"data":     data,
		"elements": elements,
		"count":    len(elements),
	})
}

// elementLabel picks the best short text for an element: visible text
// first, then aria-label, title, placeholder, value.
func elementLabel(sel *goquery.Selection) string {
	text := collapseWhitespace(sel.Text())
	for _, attr := range []string{"aria-label", "title", "placeholder", "value"} {
		if text != "" {
			break
		}
		text = sel.AttrOr(attr, "")
	}
	if runes := []rune(text); len(runes) > maxLabelRunes {
		text = string(runes[:maxLabelRunes])
	}
	return text
}

// activeDocument parses the active tab's HTML into a goquery document.
func (h *Handlers) activeDocument(s surface.Surface) (*goquery.Document, *Response) {
	html, err := s.PageHTML()
	if err != nil {
		return nil, Error(500, err.Error())
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, Error(500, "failed to parse page")
	}
	return doc, nil
}

// cssPath builds a short selector for an element: tag plus id or classes.
func cssPath(sel *goquery.Selection) string {
	node := sel.Get(0)
	if node == nil {
		return ""
	}
	path := node.Data
	if id, ok := sel.Attr("id"); ok && id != "" {
		return path + "#" + id
	}
	if class, ok := sel.Attr("class"); ok && class != "" {
		path += "." + strings.Join(strings.Fields(class), ".")
	}
	return path
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
