package monitor

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/veesix-networks/eoax/pkg/events"
)

func (c *Component) handlePairs(w http.ResponseWriter, r *http.Request) {
	c.writeShow(w, r, PairsResponse{
		Namespace: c.bridge.Namespace(),
		Pairs:     c.bridge.Pairs(),
	})
}

func (c *Component) handleDrops(w http.ResponseWriter, r *http.Request) {
	c.writeShow(w, r, DropsResponse{
		Drops: c.bridge.Drops().Snapshot(),
		Mux:   c.mux.Stats(),
	})
}

func (c *Component) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	list := c.history.List(r.URL.Query().Get("topic"), limit)
	if list == nil {
		list = []events.Event{}
	}
	c.writeShow(w, r, EventsResponse{
		Bus:    c.bus.Stats(),
		Events: list,
	})
}

func (c *Component) handleInterfaces(w http.ResponseWriter, r *http.Request) {
	out := []InterfaceInfo{}
	if c.interfaces != nil {
		paired := make(map[int]string)
		for _, p := range c.bridge.Pairs() {
			paired[p.RadioIndex] = p.Virtual
			paired[p.VirtualIndex] = p.Radio
		}
		for _, iface := range c.interfaces() {
			info := InterfaceInfo{
				Index:     iface.Index,
				Name:      iface.Name,
				Type:      iface.Type.String(),
				AdminUp:   iface.AdminUp,
				MTU:       iface.MTU,
				Namespace: iface.Namespace,
				Paired:    paired[iface.Index],
			}
			if len(iface.MAC) > 0 {
				info.MAC = iface.MAC.String()
			}
			out = append(out, info)
		}
	}
	c.writeShow(w, r, out)
}

func (c *Component) handleStatus(w http.ResponseWriter, r *http.Request) {
	c.writeShow(w, r, c.GetStatus())
}

func (c *Component) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	c.writeJSON(w, buildOpenAPISpec())
}

func (c *Component) writeShow(w http.ResponseWriter, r *http.Request, data any) {
	w.Header().Set("Content-Type", "application/json")
	c.writeJSON(w, ShowResponse{Path: r.URL.Path, Data: data})
}

func (c *Component) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	c.writeJSON(w, ErrorResponse{Error: message})
}

func (c *Component) writeJSON(w http.ResponseWriter, v any) {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		c.Logger.Debug("Failed to write response", "error", err)
	}
}
