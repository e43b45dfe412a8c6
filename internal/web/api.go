package web

import (
	"errors"
	"io"
	"net/http"

	"evcount/internal/events"
	"evcount/internal/holidays"
	"evcount/internal/ics"
	appLog "evcount/internal/log"
	"evcount/internal/model"
	"evcount/internal/notify"
	"evcount/internal/reminder"
	"evcount/internal/view"
)

type listResponse struct {
	Filter view.Filter    `json:"filter"`
	Sort   view.SortOrder `json:"sort"`
	Events []view.Item    `json:"events"`
}

// GET /api/events?filter=upcoming&sort=name-asc
// Without sort, the persisted preference applies.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, err := view.ParseFilter(q.Get("filter"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	order := s.Sort.Get()
	if v := q.Get("sort"); v != "" {
		if order, err = view.ParseSortOrder(v); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	items := view.Project(s.Events.List(), filter, order, s.Now(), s.Phrases)
	writeJSON(w, http.StatusOK, listResponse{Filter: filter, Sort: order, Events: items})
}

type eventRequest struct {
	Name     string         `json:"name"`
	Date     model.Date     `json:"date"`
	Time     string         `json:"time"`
	Category string         `json:"category"`
	Icon     model.Icon     `json:"icon"`
	Reminder model.Reminder `json:"reminder"`
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := s.Events.Add(model.Event{
		Name:     req.Name,
		Date:     req.Date,
		Time:     req.Time,
		Category: req.Category,
		Icon:     req.Icon,
		Reminder: req.Reminder,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if req.Reminder.Active() {
		s.requestPermission()
	}
	ev, _ := s.Events.Get(id)
	writeJSON(w, http.StatusCreated, ev)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.Events.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, events.ErrNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

type patchRequest struct {
	Name     *string         `json:"name"`
	Date     *model.Date     `json:"date"`
	Time     *string         `json:"time"`
	Category *string         `json:"category"`
	Icon     *model.Icon     `json:"icon"`
	Reminder *model.Reminder `json:"reminder"`
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req patchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	err := s.Events.Update(id, events.Patch{
		Name:     req.Name,
		Date:     req.Date,
		Time:     req.Time,
		Category: req.Category,
		Icon:     req.Icon,
		Reminder: req.Reminder,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if req.Reminder != nil && req.Reminder.Active() {
		s.requestPermission()
	}
	ev, _ := s.Events.Get(id)
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := s.Events.Delete(r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// requestPermission is the form-level permission prompt: it only acts while
// the permission is still default.
func (s *Server) requestPermission() {
	if s.Gate == nil {
		return
	}
	before := s.Gate.Permission()
	if after := s.Gate.RequestIfDefault(); after != before && s.OnPermissionChange != nil {
		s.OnPermissionChange()
	}
}

type categoriesResponse struct {
	Categories []string `json:"categories"`
	Added      *bool    `json:"added,omitempty"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, categoriesResponse{Categories: s.Events.Categories()})
}

// POST /api/categories {"name": "Work"}. A blank or duplicate name is not an
// error; the response reports added=false.
func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	added, err := s.Events.AddCategory(req.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	writeJSON(w, status, categoriesResponse{Categories: s.Events.Categories(), Added: &added})
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.Events.DeleteCategory(r.PathValue("name")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type sortBody struct {
	Sort view.SortOrder `json:"sort"`
}

func (s *Server) handleGetSort(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, sortBody{Sort: s.Sort.Get()})
}

func (s *Server) handlePutSort(w http.ResponseWriter, r *http.Request) {
	var req sortBody
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.Sort.Set(req.Sort); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, req)
}

type permissionBody struct {
	Permission notify.Permission `json:"permission"`
}

func (s *Server) handleGetPermission(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, permissionBody{Permission: s.Gate.Permission()})
}

func (s *Server) handlePutPermission(w http.ResponseWriter, r *http.Request) {
	var req permissionBody
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := notify.ParsePermission(string(req.Permission)); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.Gate.Set(req.Permission); err != nil {
		writeDomainError(w, err)
		return
	}
	appLog.Info("notification permission set", "permission", req.Permission)
	if s.OnPermissionChange != nil {
		s.OnPermissionChange()
	}
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) handleReminders(w http.ResponseWriter, _ *http.Request) {
	armed := []reminder.Armed{}
	if s.Reminders != nil {
		armed = append(armed, s.Reminders.Armed()...)
	}
	writeJSON(w, http.StatusOK, map[string][]reminder.Armed{"reminders": armed})
}

func (s *Server) handleExportJSON(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="events.json"`)
	if err := events.Export(w, s.Events.List()); err != nil {
		appLog.Error("export failed", err)
	}
}

func (s *Server) handleExportICS(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="events.ics"`)
	err := ics.Export(w, s.Events.List(), ics.ExportOptions{
		Hour:    s.Config.ReminderHour,
		Now:     s.Now(),
		Phrases: s.Phrases,
	})
	if err != nil {
		appLog.Error("ics export failed", err)
	}
}

type stagedResponse struct {
	Token  string        `json:"token"`
	Count  int           `json:"count"`
	Events []model.Event `json:"events"`
}

// POST /api/import stages the uploaded JSON array. Nothing changes until
// the token is confirmed.
func (s *Server) handleStageImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	st, err := s.Events.StageImport(data)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stagedResponse{Token: st.Token, Count: len(st.Events), Events: st.Events})
}

func (s *Server) handleConfirmImport(w http.ResponseWriter, r *http.Request) {
	n, err := s.Events.ConfirmImport(r.PathValue("token"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"imported": n})
}

func (s *Server) handleDiscardImport(w http.ResponseWriter, r *http.Request) {
	if err := s.Events.DiscardImport(r.PathValue("token")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/holidays {"from": 2025, "to": 2026}; an empty body means this
// year and next.
func (s *Server) handleHolidays(w http.ResponseWriter, r *http.Request) {
	year := s.Now().Year()
	req := struct {
		From int `json:"from"`
		To   int `json:"to"`
	}{From: year, To: year + 1}
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	gen, err := holidays.Generate(req.From, req.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	added, err := s.Events.Merge(gen)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"added": added})
}
