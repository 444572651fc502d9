package control

import (
	"encoding/base64"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lespaceman/athena-browser-sub000/internal/infrastructure/logging"
	"github.com/lespaceman/athena-browser-sub000/internal/surface"
	"github.com/lespaceman/athena-browser-sub000/internal/surface/headless"
)

const samplePage = `<html>
<head>
  <title>Sample Shop</title>
  <meta name="description" content="A tiny shop.">
</head>
<body>
  <h1>Welcome</h1>
  <h2>Deals</h2>
  <p>Everything is on sale today.</p>
  <a href="/cart" id="cart-link">View cart</a>
  <a href="/about">About us</a>
  <form action="/search">
    <input type="text" name="q" placeholder="Search products">
    <input type="submit" value="Go">
  </form>
  <button class="buy primary">Buy now</button>
</body>
</html>`

func newTestHandlers(t *testing.T) (*Handlers, *headless.Surface) {
	t.Helper()
	hs := headless.New(headless.DefaultConfig())
	handle := surface.NewHandle()
	handle.Attach(hs)
	return NewHandlers(handle, logging.NewNop()), hs
}

func withSamplePage(t *testing.T) (*Handlers, *headless.Surface) {
	t.Helper()
	h, hs := newTestHandlers(t)
	idx, err := hs.CreateTab("https://shop.test/")
	require.NoError(t, err)
	require.NoError(t, hs.SetPageHTML(idx, samplePage))
	return h, hs
}

func post(path, body string) *Request {
	return &Request{Method: "POST", Path: path, Body: []byte(body)}
}

func get(path string) *Request {
	return &Request{Method: "GET", Path: path}
}

func decode(t *testing.T, resp *Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, sonic.Unmarshal(resp.Body, &out))
	return out
}

func TestOpenURLCreatesFirstTab(t *testing.T) {
	h, hs := newTestHandlers(t)

	resp := h.OpenURL(post("/internal/open_url", `{"url":"https://example.com"}`))
	require.Equal(t, 200, resp.Status)
	assert.Equal(t, 1, hs.TabCount())

	resp = h.OpenURL(post("/internal/open_url", `{"url":"https://example.org"}`))
	require.Equal(t, 200, resp.Status)
	assert.Equal(t, 1, hs.TabCount(), "existing tab navigated, not duplicated")

	url, err := hs.CurrentURL()
	require.NoError(t, err)
	assert.Equal(t, "https://example.org", url)
}

func TestOpenURLValidation(t *testing.T) {
	h, _ := newTestHandlers(t)

	resp := h.OpenURL(post("/internal/open_url", `{}`))
	assert.Equal(t, 400, resp.Status)

	resp = h.OpenURL(post("/internal/open_url", `{not json`))
	assert.Equal(t, 400, resp.Status)
}

func TestGetURL(t *testing.T) {
	h, hs := withSamplePage(t)
	_, err := hs.CreateTab("https://second.test/")
	require.NoError(t, err)

	resp := h.GetURL(get("/internal/get_url"))
	require.Equal(t, 200, resp.Status)
	out := decode(t, resp)
	assert.Equal(t, "https://second.test/", out["url"])

	resp = h.GetURL(post("/internal/get_url", `{"tabIndex":0}`))
	require.Equal(t, 200, resp.Status)
	out = decode(t, resp)
	assert.Equal(t, "https://shop.test/", out["url"])

	resp = h.GetURL(post("/internal/get_url", `{"tabIndex":9}`))
	assert.Equal(t, 400, resp.Status)
}

func TestHistoryDirection(t *testing.T) {
	h, hs := newTestHandlers(t)
	_, err := hs.CreateTab("https://a.test")
	require.NoError(t, err)
	require.NoError(t, hs.LoadURL("https://b.test"))

	resp := h.History(post("/internal/history", `{"direction":"back"}`))
	require.Equal(t, 200, resp.Status)
	url, _ := hs.CurrentURL()
	assert.Equal(t, "https://a.test", url)

	resp = h.History(post("/internal/history", `{"direction":"forward"}`))
	require.Equal(t, 200, resp.Status)
	url, _ = hs.CurrentURL()
	assert.Equal(t, "https://b.test", url)

	resp = h.History(post("/internal/history", `{"direction":"sideways"}`))
	assert.Equal(t, 400, resp.Status)
}

func TestTabHandlers(t *testing.T) {
	h, hs := newTestHandlers(t)

	resp := h.TabCreate(post("/internal/tab/create", `{"url":"https://a.test"}`))
	require.Equal(t, 200, resp.Status)
	assert.Equal(t, float64(0), decode(t, resp)["tabIndex"])

	resp = h.TabCreate(post("/internal/tab/create", `{"url":"https://b.test"}`))
	require.Equal(t, 200, resp.Status)

	resp = h.TabCount(get("/internal/tab_count"))
	assert.Equal(t, float64(2), decode(t, resp)["count"])

	resp = h.TabSwitch(post("/internal/tab/switch", `{"tabIndex":0}`))
	require.Equal(t, 200, resp.Status)
	assert.Equal(t, 0, hs.ActiveTabIndex())

	resp = h.TabInfo(get("/internal/tab_info"))
	out := decode(t, resp)
	assert.Equal(t, float64(0), out["activeTab"])
	assert.Len(t, out["tabs"], 2)

	resp = h.TabClose(post("/internal/tab/close", `{"tabIndex":1}`))
	require.Equal(t, 200, resp.Status)
	assert.Equal(t, 1, hs.TabCount())

	resp = h.TabClose(post("/internal/tab/close", `{}`))
	assert.Equal(t, 400, resp.Status, "tabIndex required")

	resp = h.TabSwitch(post("/internal/tab/switch", `{"tabIndex":7}`))
	assert.Equal(t, 400, resp.Status)
}

func TestExecuteJS(t *testing.T) {
	h, _ := withSamplePage(t)

	resp := h.ExecuteJS(post("/internal/execute_js", `{"code":"6*7"}`))
	require.Equal(t, 200, resp.Status)
	assert.Equal(t, float64(42), decode(t, resp)["result"])

	resp = h.ExecuteJS(post("/internal/execute_js", `{}`))
	assert.Equal(t, 400, resp.Status)

	resp = h.ExecuteJS(post("/internal/execute_js", `{"code":"syntax error here("}`))
	assert.Equal(t, 500, resp.Status)
}

func TestScreenshot(t *testing.T) {
	h, _ := withSamplePage(t)

	resp := h.Screenshot(get("/internal/screenshot"))
	require.Equal(t, 200, resp.Status)
	out := decode(t, resp)
	assert.Equal(t, "png", out["format"])
	_, err := base64.StdEncoding.DecodeString(out["data"].(string))
	assert.NoError(t, err)
}

func TestGetHTML(t *testing.T) {
	h, _ := withSamplePage(t)

	resp := h.GetHTML(get("/internal/get_html"))
	require.Equal(t, 200, resp.Status)
	assert.Contains(t, decode(t, resp)["html"], "Sample Shop")
}

func TestPageSummary(t *testing.T) {
	h, _ := withSamplePage(t)

	resp := h.PageSummary(get("/internal/get_page_summary"))
	require.Equal(t, 200, resp.Status)
	out := decode(t, resp)

	assert.Equal(t, "Sample Shop", out["title"])
	assert.Equal(t, "A tiny shop.", out["description"])
	assert.Equal(t, float64(2), out["linkCount"])
	assert.Equal(t, float64(1), out["formCount"])
	headings := out["headings"].([]any)
	assert.Equal(t, []any{"Welcome", "Deals"}, headings)
	assert.Contains(t, out["excerpt"], "Everything is on sale")
}

func TestInteractiveElements(t *testing.T) {
	h, _ := withSamplePage(t)

	resp := h.InteractiveElements(get("/internal/get_interactive_elements"))
	require.Equal(t, 200, resp.Status)
	out := decode(t, resp)

	elements := out["elements"].([]any)
	kinds := map[string]int{}
	selectors := make([]string, 0, len(elements))
	for _, e := range elements {
		el := e.(map[string]any)
		kinds[el["kind"].(string)]++
		selectors = append(selectors, el["selector"].(string))
	}
	assert.Equal(t, 2, kinds["link"])
	assert.Equal(t, 2, kinds["button"], "button element plus submit input")
	assert.Equal(t, 1, kinds["input"])
	assert.Contains(t, selectors, "a#cart-link")
	assert.Contains(t, selectors, "button.buy.primary")
}

func TestQueryContent(t *testing.T) {
	h, _ := withSamplePage(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"selector", `{"query":"a","mode":"selector"}`, 2},
		{"selector default mode", `{"query":"h1"}`, 1},
		{"selector with limit", `{"query":"a","limit":1}`, 1},
		{"xpath", `{"query":"//a[@href]","mode":"xpath"}`, 2},
		{"xpath attribute", `{"query":"//input[@name='q']","mode":"xpath"}`, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := h.QueryContent(post("/internal/query_content", tt.body))
			require.Equal(t, 200, resp.Status)
			assert.Equal(t, float64(tt.want), decode(t, resp)["count"])
		})
	}

	resp := h.QueryContent(post("/internal/query_content", `{"query":"a","mode":"regex"}`))
	assert.Equal(t, 400, resp.Status)

	resp = h.QueryContent(post("/internal/query_content", `{}`))
	assert.Equal(t, 400, resp.Status)
}

func TestAccessibilityTree(t *testing.T) {
	h, _ := withSamplePage(t)

	resp := h.AccessibilityTree(get("/internal/get_accessibility_tree"))
	require.Equal(t, 200, resp.Status)
	tree := decode(t, resp)["tree"].(map[string]any)

	assert.Equal(t, "body", tree["tag"])
	children := tree["children"].([]any)
	require.Len(t, children, 7)

	var link, form map[string]any
	for _, c := range children {
		node := c.(map[string]any)
		switch node["id"] {
		case "cart-link":
			link = node
		}
		if node["tag"] == "form" {
			form = node
		}
	}
	require.NotNil(t, link)
	assert.Equal(t, "a", link["role"])
	assert.Equal(t, "/cart", link["href"])
	assert.Equal(t, "View cart", link["name"])
	assert.Nil(t, link["children"], "links are leaves")

	require.NotNil(t, form, "forms are containers")
	inputs := form["children"].([]any)
	require.Len(t, inputs, 2)
	assert.Equal(t, "text", inputs[0].(map[string]any)["type"])
}

func TestAccessibilityTreeDepthCap(t *testing.T) {
	h, hs := newTestHandlers(t)
	idx, err := hs.CreateTab("https://deep.test/")
	require.NoError(t, err)
	require.NoError(t, hs.SetPageHTML(idx,
		`<html><body><div><div><div><div><p>buried</p></div></div></div></div></body></html>`))

	resp := h.AccessibilityTree(get("/internal/get_accessibility_tree"))
	require.Equal(t, 200, resp.Status)

	depth := 0
	node := decode(t, resp)["tree"].(map[string]any)
	for node["children"] != nil {
		node = node["children"].([]any)[0].(map[string]any)
		depth++
	}
	assert.Equal(t, 3, depth)
	assert.Equal(t, "div", node["tag"], "walk stops before the buried paragraph")
}

func TestAnnotatedScreenshot(t *testing.T) {
	h, _ := withSamplePage(t)

	resp := h.AnnotatedScreenshot(get("/internal/get_annotated_screenshot"))
	require.Equal(t, 200, resp.Status)
	out := decode(t, resp)

	assert.Equal(t, "png", out["format"])
	_, err := base64.StdEncoding.DecodeString(out["data"].(string))
	require.NoError(t, err)

	elements := out["elements"].([]any)
	require.Equal(t, float64(len(elements)), out["count"])
	require.Len(t, elements, 5, "two links, two inputs, one button")

	first := elements[0].(map[string]any)
	assert.Equal(t, float64(0), first["index"])
	assert.Equal(t, "a", first["tag"])
	assert.Equal(t, "View cart", first["text"])

	texts := map[string]string{}
	for _, e := range elements {
		el := e.(map[string]any)
		key := el["selector"].(string)
		if typ, ok := el["type"].(string); ok {
			key += "[" + typ + "]"
		}
		texts[key] = el["text"].(string)
	}
	assert.Equal(t, "Search products", texts["input[text]"], "placeholder used when no text")
	assert.Equal(t, "Go", texts["input[submit]"], "value used when no text")
	assert.Equal(t, "Buy now", texts["button.buy.primary"])
}

func TestSurfaceUnavailable(t *testing.T) {
	handle := surface.NewHandle()
	h := NewHandlers(handle, logging.NewNop())

	for name, call := range map[string]func() *Response{
		"tab_count":  func() *Response { return h.TabCount(get("/internal/tab_count")) },
		"open_url":   func() *Response { return h.OpenURL(post("/internal/open_url", `{"url":"x"}`)) },
		"get_html":   func() *Response { return h.GetHTML(get("/internal/get_html")) },
		"screenshot": func() *Response { return h.Screenshot(get("/internal/screenshot")) },
	} {
		resp := call()
		assert.Equal(t, 503, resp.Status, name)
		assert.Contains(t, string(resp.Body), "shutting down", name)
	}
}

func TestRegisterAllRoutes(t *testing.T) {
	h, _ := newTestHandlers(t)
	routes := NewRouteTable()
	h.RegisterAll(routes)
	assert.Equal(t, 25, routes.Len())

	_, ok := routes.Lookup("POST", "/internal/open_url")
	assert.True(t, ok)
	_, ok = routes.Lookup("DELETE", "/internal/open_url")
	assert.False(t, ok)
}

func TestRouteTableDuplicatePanics(t *testing.T) {
	routes := NewRouteTable()
	handler := func(req *Request) *Response { return JSON(200, nil) }
	routes.Register("GET", "/x", handler)
	assert.Panics(t, func() {
		routes.Register("GET", "/x", handler)
	})
}
