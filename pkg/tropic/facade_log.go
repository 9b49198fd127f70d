package tropic

// GetLog retrieves the device's diagnostic/alarm log, an unauthenticated
// L2 command available regardless of session state.
func (h *Handle) GetLog() ([]byte, error) {
	if err := h.requireReady("get_log"); err != nil {
		return nil, err
	}
	if err := h.l1.l2Send(l2ReqGetLog, nil, h.timeout); err != nil {
		return nil, err
	}
	resp, err := h.l1.l2Receive(h.timeout)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
