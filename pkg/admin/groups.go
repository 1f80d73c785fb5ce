package admin

import (
	"net/http"

	"github.com/procsl/llm-gateway/pkg/model"
)

func (s *Surface) listGroups(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.ListGroups())
}

// upsertGroup rejects a group with no name; a missing protocol or an empty
// provider list is accepted since the forwarding engine tolerates both
// (protocol mismatch surfaces per request, an empty provider list simply
// exhausts the candidate loop immediately).
func (s *Surface) upsertGroup(w http.ResponseWriter, r *http.Request) {
	g, err := decodeJSON[model.Group](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid group: "+err.Error())
		return
	}
	if g.Name == "" {
		writeError(w, http.StatusBadRequest, "group name is required")
		return
	}
	if err := s.store.UpsertGroup(g); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Surface) deleteGroup(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := s.store.DeleteGroup(name); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
