package api

import (
	"net/http"
	"strings"

	xerrors "taskdeck/internal/errors"
	"taskdeck/internal/task"
)

type reorderRequest struct {
	Order []task.Position `json:"order"`
}

type successResponse struct {
	Success bool `json:"success"`
}

// listOptionsFromQuery 解析 order 与 completed 查询参数。
func listOptionsFromQuery(r *http.Request) ([]task.ListOption, error) {
	query := r.URL.Query()
	var opts []task.ListOption

	switch strings.ToLower(query.Get("order")) {
	case "", "id":
	case "manual":
		opts = append(opts, task.WithSortOrder(task.SortByManual))
	default:
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "order パラメータが正しくありません",
			xerrors.WithMetadata("order", query.Get("order")))
	}

	if raw := query.Get("completed"); raw != "" {
		switch strings.ToLower(raw) {
		case "1", "true":
			opts = append(opts, task.WithCompleted(true))
		case "0", "false":
			opts = append(opts, task.WithCompleted(false))
		default:
			return nil, xerrors.New(xerrors.CodeInvalidArgument, "completed パラメータが正しくありません",
				xerrors.WithMetadata("completed", raw))
		}
	}
	return opts, nil
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptionsFromQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	tasks, err := s.svc.Tasks.List(r.Context(), opts...)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if tasks == nil {
		tasks = []*task.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleTaskStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Tasks.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	item, err := s.svc.Tasks.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var draft task.Draft
	if err := decodeJSON(r, &draft); err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := s.svc.Tasks.Create(r.Context(), draft)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, idResponse{ID: id})
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var patch task.Patch
	if err := decodeJSON(r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.svc.Tasks.Update(r.Context(), id, patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "更新しました")
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.svc.Tasks.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "削除しました")
}

// handleReorderTasks 要求请求体包含 order 数组，空数组视为成功。
func (s *Server) handleReorderTasks(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.svc.Tasks.Reorder(r.Context(), req.Order); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}
