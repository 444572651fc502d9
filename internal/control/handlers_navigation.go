package control

// OpenURL loads a URL, creating the first tab when none exists.
func (h *Handlers) OpenURL(req *Request) *Response {
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
	if body.URL == "" {
		return Error(400, "url is required")
	}

	if s.TabCount() == 0 {
		if _, err := s.CreateTab(body.URL); err != nil {
			return Error(500, err.Error())
		}
	} else if err := s.LoadURL(body.URL); err != nil {
		return Error(500, err.Error())
	}
	return JSON(200, map[string]any{"success": true, "url": body.URL})
}

// GetURL reports the URL of the active tab, or of tabIndex when given.
func (h *Handlers) GetURL(req *Request) *Response {
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

	if body.TabIndex != nil {
		tabs := s.Tabs()
		i := *body.TabIndex
		if i < 0 || i >= len(tabs) {
			return Error(400, "invalid tabIndex")
		}
		return JSON(200, map[string]any{"url": tabs[i].URL, "tabIndex": i})
	}

	url, err := s.CurrentURL()
	if err != nil {
		return Error(500, err.Error())
	}
	return JSON(200, map[string]any{"url": url, "tabIndex": s.ActiveTabIndex()})
}

// Navigate loads a URL in the active tab, or in tabIndex when given (which
// also activates it).
func (h *Handlers) Navigate(req *Request) *Response {
	s, errResp := h.acquire()
	if errResp != nil {
		return errResp
	}

	var body struct {
		URL      string `json:"url"`
		TabIndex *int   `json:"tabIndex"`
	}
	if err := req.Bind(&body); err != nil {
		return Error(400, err.Error())
	}
	if body.URL == "" {
		return Error(400, "url is required")
	}

	if body.TabIndex != nil {
		if err := s.SwitchToTab(*body.TabIndex); err != nil {
			return Error(400, "invalid tabIndex")
		}
	}
	if err := s.LoadURL(body.URL); err != nil {
		return Error(500, err.Error())
	}
	return JSON(200, map[string]any{"success": true})
}

// History moves back or forward in the active tab's history.
func (h *Handlers) History(req *Request) *Response {
	s, errResp := h.acquire()
	if errResp != nil {
		return errResp
	}

	var body struct {
		Direction string `json:"direction"`
	}
	if err := req.Bind(&body); err != nil {
		return Error(400, err.Error())
	}

	var err error
	switch body.Direction {
	case "back":
		err = s.GoBack()
	case "forward":
		err = s.GoForward()
	default:
		return Error(400, `direction must be "back" or "forward"`)
	}
	if err != nil {
		return Error(500, err.Error())
	}
	return JSON(200, map[string]any{"success": true})
}

// Reload reloads the active tab.
func (h *Handlers) Reload(req *Request) *Response {
	s, errResp := h.acquire()
	if errResp != nil {
		return errResp
	}
	if err := s.Reload(); err != nil {
		return Error(500, err.Error())
	}
	return JSON(200, map[string]any{"success": true})
}
