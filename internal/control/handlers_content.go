package control

import "encoding/json"

// GetHTML returns the active tab's full page HTML.
func (h *Handlers) GetHTML(req *Request) *Response {
	s, errResp := h.acquire()
	if errResp != nil {
		return errResp
	}
	html, err := s.PageHTML()
	if err != nil {
		return Error(500, err.Error())
	}
	return JSON(200, map[string]any{"html": html})
}

// ExecuteJS evaluates a script in the active tab and returns its result as
// JSON.
func (h *Handlers) ExecuteJS(req *Request) *Response {
	s, errResp := h.acquire()
	if errResp != nil {
		return errResp
	}

	var body struct {
		Code string `json:"code"`
	}
	if err := req.Bind(&body); err != nil {
		return Error(400, err.Error())
	}
	if body.Code == "" {
		return Error(400, "code is required")
	}

	result, err := s.ExecuteScript(body.Code)
	if err != nil {
		return Error(500, err.Error())
	}
	if !json.Valid([]byte(result)) {
		// Surfaces that hand back plain strings get them wrapped.
		return JSON(200, map[string]any{"result": result})
	}
	return JSON(200, map[string]any{"result": json.RawMessage(result)})
}

// Screenshot captures the active tab as a base64 PNG.
func (h *Handlers) Screenshot(req *Request) *Response {
	s, errResp := h.acquire()
	if errResp != nil {
		return errResp
	}
	data, err := s.Screenshot()
	if err != nil {
		return Error(500, err.Error())
	}
	return JSON(200, map[string]any{"format": "png", "data": data})
}
