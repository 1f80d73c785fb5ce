package admin

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"
)

// modelEntry is one normalized entry in the probed model list.
type modelEntry struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// probeModels issues GET <provider.endpoint origin>/v1/models with a 10s
// timeout and normalizes whatever shape the upstream returns into
// {object:"list", data:[...]}.
func (s *Surface) probeModels(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	p, ok := s.store.GetProvider(name)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown provider")
		return
	}

	endpoint, err := url.Parse(p.Endpoint)
	if err != nil {
		writeError(w, http.StatusBadGateway, "invalid provider endpoint: "+err.Error())
		return
	}
	probeURL := (&url.URL{Scheme: endpoint.Scheme, Host: endpoint.Host, Path: "/v1/models"}).String()

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, probeURL, nil)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	req.Header.Set("Authorization", "Bearer "+p.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		writeError(w, http.StatusBadGateway, "model probe failed: "+err.Error())
		return
	}
	defer resp.Body.Close()

	var raw struct {
		Data []json.RawMessage `json:"data"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&raw)

	entries := make([]modelEntry, 0, len(raw.Data))
	for _, item := range raw.Data {
		var partial struct {
			ID      string `json:"id"`
			Created int64  `json:"created"`
			OwnedBy string `json:"owned_by"`
		}
		if err := json.Unmarshal(item, &partial); err != nil {
			continue
		}
		if partial.Created == 0 {
			partial.Created = time.Now().Unix()
		}
		if partial.OwnedBy == "" {
			partial.OwnedBy = "gateway"
		}
		entries = append(entries, modelEntry{ID: partial.ID, Object: "model", Created: partial.Created, OwnedBy: partial.OwnedBy})
	}

	writeJSON(w, http.StatusOK, map[string]any{"object": "list", "data": entries})
}
