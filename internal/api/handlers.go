package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"lessonbook/internal/database"
	"lessonbook/internal/models"
	"lessonbook/internal/service"
)

// handleSlots covers the collection: POST generates a recurring series,
// GET lists a provider's slots (all, or only open ones with ?open=true).
func (s *HTTPServer) handleSlots(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.generateSlots(w, r)
	case http.MethodGet:
		s.listSlots(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) generateSlots(w http.ResponseWriter, r *http.Request) {
	caller, err := s.callerAsUser(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var req models.SlotRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	// Providers create their own slots; nobody generates on another's behalf.
	req.ProviderID = caller.ID

	created, err := s.slots.GenerateSlots(r.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidSlot) || errors.Is(err, service.ErrInvalidRecurrence) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create slots")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]int{"created": created})
}

func (s *HTTPServer) listSlots(w http.ResponseWriter, r *http.Request) {
	providerID := strings.TrimSpace(r.URL.Query().Get("provider_id"))
	if providerID == "" {
		writeError(w, http.StatusBadRequest, "provider_id is required")
		return
	}

	var (
		slots interface{}
		err   error
	)
	if r.URL.Query().Get("open") == "true" {
		slots, err = s.slots.OpenSlots(r.Context(), providerID)
	} else {
		slots, err = s.slots.ProviderSlots(r.Context(), providerID)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list slots")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"slots": slots})
}

// handleSlot routes /api/v1/slots/{id}[/{action}] and /api/v1/slots/dedupe.
func (s *HTTPServer) handleSlot(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/slots/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")

	if len(parts) == 1 && parts[0] == "dedupe" {
		s.dedupeSlots(w, r)
		return
	}

	slotID := strings.TrimSpace(parts[0])
	if slotID == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch {
	case len(parts) == 2 && parts[1] == "book" && r.Method == http.MethodPost:
		s.bookSlot(w, r, slotID)
	case len(parts) == 2 && parts[1] == "cancel" && r.Method == http.MethodPost:
		s.cancelSlot(w, r, slotID)
	case len(parts) == 1 && r.Method == http.MethodDelete:
		s.removeSlot(w, r, slotID)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *HTTPServer) bookSlot(w http.ResponseWriter, r *http.Request, slotID string) {
	caller, err := s.callerAsUser(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	if err := s.bookings.Book(r.Context(), slotID, caller.ID); err != nil {
		switch {
		case errors.Is(err, database.ErrSlotNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, database.ErrSlotTaken):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, database.ErrSlotExpired):
			writeError(w, http.StatusGone, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to book slot")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "booked"})
}

func (s *HTTPServer) cancelSlot(w http.ResponseWriter, r *http.Request, slotID string) {
	caller, err := s.callerAsUser(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	if err := s.bookings.Cancel(r.Context(), slotID, caller.ID); err != nil {
		switch {
		case errors.Is(err, database.ErrSlotNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, database.ErrNotOwner):
			writeError(w, http.StatusForbidden, err.Error())
		case errors.Is(err, database.ErrSlotNotBooked):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to cancel slot")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (s *HTTPServer) removeSlot(w http.ResponseWriter, r *http.Request, slotID string) {
	caller, err := s.callerAsUser(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	if err := s.bookings.Remove(r.Context(), slotID, caller.ID); err != nil {
		switch {
		case errors.Is(err, database.ErrSlotNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, database.ErrNotOwner):
			writeError(w, http.StatusForbidden, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to remove slot")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (s *HTTPServer) dedupeSlots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	caller, err := s.callerAsUser(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	removed, err := s.slots.RemoveDuplicates(r.Context(), caller.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to remove duplicates")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

func (s *HTTPServer) handleTeachers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	cards, err := s.users.Teachers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list teachers")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"teachers": cards})
}

// handleRoster adds or removes a teacher. Both the caller's asserted admin
// flag and the shared secret must check out; the service refuses otherwise.
func (s *HTTPServer) handleRoster(w http.ResponseWriter, r *http.Request) {
	teacherID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/teachers/"), "/")
	if teacherID == "" || strings.Contains(teacherID, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	caller, err := s.callerAsUser(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	secret := strings.TrimSpace(r.Header.Get(adminSecretHeader))

	var ok bool
	switch r.Method {
	case http.MethodPost:
		ok = s.users.AddTeacher(r.Context(), caller, secret, teacherID)
	case http.MethodDelete:
		ok = s.users.RemoveTeacher(r.Context(), caller, secret, teacherID)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if !ok {
		writeError(w, http.StatusForbidden, "permission denied")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleUser(w http.ResponseWriter, r *http.Request) {
	userID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/users/"), "/")
	if userID == "" || strings.Contains(userID, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		user, err := s.users.GetUser(r.Context(), userID)
		if err != nil {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeJSON(w, http.StatusOK, user)
	case http.MethodPut:
		caller, err := s.callerAsUser(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		if caller.ID != userID && !caller.IsAdmin {
			writeError(w, http.StatusForbidden, "permission denied")
			return
		}

		var user models.User
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&user); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		user.ID = userID

		// Profile edits never change privileged flags. Teacher status goes
		// through the roster gate, admin status through the identity service.
		if existing, err := s.users.GetUser(r.Context(), userID); err == nil {
			user.IsTeacher = existing.IsTeacher
			user.IsAdmin = existing.IsAdmin
		} else {
			user.IsTeacher = false
			user.IsAdmin = false
		}

		if err := s.users.SaveUser(r.Context(), &user); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to save user")
			return
		}
		writeJSON(w, http.StatusOK, user)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}
