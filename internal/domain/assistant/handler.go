package assistant

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"calendar-assistant/internal/domain/events"
	"calendar-assistant/internal/ports/parser"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Post("/events/schedule", scheduleHandler(svc))
	r.Delete("/events/{eventID}", cancelHandler(svc))
	r.Post("/sync", syncHandler(svc))
	r.Get("/status", statusHandler(svc))
}

// scheduleRequest es el cuerpo del pedido en lenguaje natural.
type scheduleRequest struct {
	Prompt   string `json:"prompt"`
	Timezone string `json:"timezone"` // opcional, IANA (ej: America/Lima)
}

type scheduledEvent struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Location   string    `json:"location,omitempty"`
	ExternalID string    `json:"external_id,omitempty"`
}

type scheduleResponse struct {
	Scheduled bool             `json:"scheduled"`
	Message   string           `json:"message"`
	Event     *scheduledEvent  `json:"event,omitempty"`
	Conflicts []scheduledEvent `json:"conflicts,omitempty"`
	Timezone  string           `json:"timezone,omitempty"`
}

type syncResponse struct {
	Applied int `json:"applied"`
}

// scheduleHandler godoc
// @Summary Agendar desde lenguaje natural
// @Description Parsea el prompt, chequea conflictos contra los eventos existentes (con buffer configurable), crea el evento en el proveedor remoto y lo persiste localmente. Un conflicto responde 409 con la lista de eventos que chocan; no es un error del sistema.
// @Tags assistant
// @Accept json
// @Produce json
// @Param payload body scheduleRequest true "Prompt y timezone opcional"
// @Success 201 {object} scheduleResponse
// @Failure 400 {string} string "invalid json / prompt vacío"
// @Failure 409 {object} scheduleResponse "conflicto de agenda"
// @Failure 422 {string} string "no se pudo interpretar el pedido"
// @Failure 502 {string} string "falla del proveedor remoto"
// @Router /events/schedule [post]
func scheduleHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req scheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		res, err := svc.Schedule(r.Context(), req.Prompt, req.Timezone)
		switch {
		case errors.Is(err, ErrEmptyPrompt):
			http.Error(w, "prompt is required", http.StatusBadRequest)
			return
		case errors.Is(err, parser.ErrUnparseable):
			http.Error(w, "could not understand the request, try rephrasing", http.StatusUnprocessableEntity)
			return
		case errors.Is(err, ErrProvider):
			http.Error(w, "remote calendar provider failed", http.StatusBadGateway)
			return
		case err != nil:
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		if !res.Scheduled {
			out := scheduleResponse{
				Scheduled: false,
				Message:   "scheduling conflict detected",
				Conflicts: toScheduledEvents(res.Conflicts),
				Timezone:  res.Timezone,
			}
			writeJSON(w, http.StatusConflict, out)
			return
		}

		ev := toScheduledEvent(res.Event)
		writeJSON(w, http.StatusCreated, scheduleResponse{
			Scheduled: true,
			Message:   "event added successfully",
			Event:     &ev,
			Timezone:  res.Timezone,
		})
	}
}

// cancelHandler godoc
// @Summary Cancelar un evento
// @Description Marca el evento como borrado (soft delete) y, si tiene external id, intenta borrarlo también en el proveedor remoto (best-effort). Idempotente: cancelar un evento ya cancelado responde 204 igual.
// @Tags assistant
// @Param eventID path int true "ID del evento"
// @Success 204 {string} string ""
// @Failure 404 {string} string "event not found"
// @Router /events/{eventID} [delete]
func cancelHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "eventID"), 10, 64)
		if err != nil {
			http.Error(w, "event not found", http.StatusNotFound)
			return
		}

		if err := svc.Cancel(r.Context(), id); err != nil {
			if errors.Is(err, events.ErrNotFound) {
				http.Error(w, "event not found", http.StatusNotFound)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// syncHandler godoc
// @Summary Sincronizar con el proveedor remoto
// @Description Trae los eventos del proveedor para la ventana configurada y los reconcilia contra el store local (upsert por external id). Devuelve cuántos items se aplicaron.
// @Tags assistant
// @Produce json
// @Success 200 {object} syncResponse
// @Failure 502 {string} string "falla del proveedor remoto"
// @Failure 503 {string} string "sin proveedor configurado"
// @Router /sync [post]
func syncHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		applied, err := svc.Sync(r.Context(), false)
		switch {
		case errors.Is(err, ErrNoProvider):
			http.Error(w, "no remote provider configured", http.StatusServiceUnavailable)
			return
		case errors.Is(err, ErrProvider):
			http.Error(w, "remote calendar provider failed", http.StatusBadGateway)
			return
		case err != nil:
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, syncResponse{Applied: applied})
	}
}

// statusHandler godoc
// @Summary Estado de colaboradores
// @Description Informa el estado del store y qué parser/proveedor están configurados.
// @Tags assistant
// @Produce json
// @Success 200 {object} Status
// @Router /status [get]
func statusHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status(r.Context()))
	}
}

func toScheduledEvent(e events.Event) scheduledEvent {
	return scheduledEvent{
		ID:         e.ID,
		Title:      e.Title,
		Start:      e.Start,
		End:        e.End,
		Location:   e.Location,
		ExternalID: e.ExternalID,
	}
}

func toScheduledEvents(in []events.Event) []scheduledEvent {
	out := make([]scheduledEvent, 0, len(in))
	for _, e := range in {
		out = append(out, toScheduledEvent(e))
	}
	return out
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos
// para evitar crear paquetes/helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
