package admin

import (
	"net/http"

	"github.com/procsl/llm-gateway/pkg/model"
)

func (s *Surface) listKeys(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.ListKeys())
}

// upsertKey generates an id when the caller supplies none, and synthesizes
// a "sk-<9 random chars>" token when the caller supplies no token.
func (s *Surface) upsertKey(w http.ResponseWriter, r *http.Request) {
	k, err := decodeJSON[model.AccessKey](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid key: "+err.Error())
		return
	}
	saved, err := s.store.UpsertKey(k)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Surface) deleteKey(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.DeleteKey(id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
