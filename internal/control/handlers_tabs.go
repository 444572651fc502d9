package control

// TabCount reports the number of open tabs.
func (h *Handlers) TabCount(req *Request) *Response {
	s, errResp := h.acquire()
	if errResp != nil {
		return errResp
	}
	return JSON(200, map[string]any{"count": s.TabCount()})
}

// TabInfo lists every tab with the active index.
func (h *Handlers) TabInfo(req *Request) *Response {
	s, errResp := h.acquire()
	if errResp != nil {
		return errResp
	}
	return JSON(200, map[string]any{
		"activeTab": s.ActiveTabIndex(),
		"tabs":      s.Tabs(),
	})
}

// TabCreate opens a new tab, optionally loading a URL.
func (h *Handlers) TabCreate(req *Request) *Response {
	s, errResp := h.acquire()
	if errResp != nil {
		return errResp
	}

	var body struct {
		URL string `json:"url"`
	}
	if err := req.Bind(&body); err != nil {
		return Error(400, err.Error())
	}

	index, err := s.CreateTab(body.URL)
	if err != nil {
		return Error(500, err.Error())
	}
	return JSON(200, map[string]any{"success": true, "tabIndex": index})
}

// TabClose closes the tab at tabIndex.
func (h *Handlers) TabClose(req *Request) *Response {
	s, errResp := h.acquire()
	if errResp != nil {
		return errResp
	}

	var body struct {
		TabIndex *int `json:"tabIndex"`
	}
	if err := req.Bind(&body); err != nil {
		return Error(400, err.Error())
	}
	if body.TabIndex == nil {
		return Error(400, "tabIndex is required")
	}
	if err := s.CloseTab(*body.TabIndex); err != nil {
		return Error(400, "invalid tabIndex")
	}
	return JSON(200, map[string]any{"success": true})
}

// TabSwitch activates the tab at tabIndex.
func (h *Handlers) TabSwitch(req *Request) *Response {
	s, errResp := h.acquire()
	if errResp != nil {
		return errResp
	}

	var body struct {
		TabIndex *int `json:"tabIndex"`
	}
	if err := req.Bind(&body); err != nil {
		return Error(400, err.Error())
	}
	if body.TabIndex == nil {
		return Error(400, "tabIndex is required")
	}
	if err := s.SwitchToTab(*body.TabIndex); err != nil {
		return Error(400, "invalid tabIndex")
	}
	return JSON(200, map[string]any{"success": true, "tabIndex": *body.TabIndex})
}
