package admin

import (
	"net/http"

	"github.com/procsl/llm-gateway/pkg/model"
)

func (s *Surface) listProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.ListProviders())
}

// upsertProvider is PUT-on-POST: a provider whose name already exists is
// replaced wholesale.
func (s *Surface) upsertProvider(w http.ResponseWriter, r *http.Request) {
	p, err := decodeJSON[model.Provider](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid provider: "+err.Error())
		return
	}
	if p.Name == "" {
		writeError(w, http.StatusBadRequest, "provider name is required")
		return
	}
	if err := s.store.UpsertProvider(p); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Surface) deleteProvider(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := s.store.DeleteProvider(name); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
