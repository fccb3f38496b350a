package api

import (
	"encoding/json"
	"net/http"

	"taskdeck/internal/task"
	"taskdeck/internal/template"
)

// templateRequest 中的 tasks 若不是数组则视为没有条目。
type templateRequest struct {
	Label *string         `json:"label"`
	Tasks json.RawMessage `json:"tasks"`
}

func (req templateRequest) items() ([]task.Draft, error) {
	if len(req.Tasks) == 0 || req.Tasks[0] != '[' {
		return nil, nil
	}
	var items []task.Draft
	if err := json.Unmarshal(req.Tasks, &items); err != nil {
		return nil, errBadRequestBody
	}
	return items, nil
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Templates.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []*template.Template{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	detail, err := s.svc.Templates.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleSaveTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	items, err := req.items()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := s.svc.Templates.Save(r.Context(), req.Label, items)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, idResponse{ID: id})
}

func (s *Server) handleReplaceTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req templateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	items, err := req.items()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.svc.Templates.ReplaceItems(r.Context(), id, items); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "テンプレートを保存しました")
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.svc.Templates.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "テンプレートを削除しました")
}

func (s *Server) handleApplyTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.svc.Templates.Apply(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "テンプレートを適用しました")
}
