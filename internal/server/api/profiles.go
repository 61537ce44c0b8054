package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/vrmtrack/internal/retarget"
	"github.com/ayusman/vrmtrack/internal/rig"
	"github.com/ayusman/vrmtrack/internal/store"
)

const timeLayout = "2006-01-02T15:04:05Z07:00"

// EngineSetter receives the engine built from an activated profile.
type EngineSetter interface {
	SetEngine(e *retarget.Engine)
}

// EngineBuilder builds the retargeting engine for an activated profile.
type EngineBuilder func(p *store.Profile) *retarget.Engine

// ProfileHandler handles HTTP requests for tuning profiles.
type ProfileHandler struct {
	store  *store.Store
	engine EngineSetter
	build  EngineBuilder
}

// NewProfileHandler creates a new ProfileHandler. When engine is non-nil,
// activating a profile retunes the running tracker immediately with the
// engine from build. A nil build uses the profile's own overrides only.
func NewProfileHandler(s *store.Store, engine EngineSetter, build EngineBuilder) *ProfileHandler {
	if build == nil {
		build = func(p *store.Profile) *retarget.Engine {
			return retarget.New(retarget.WithOptions(p.Options()))
		}
	}
	return &ProfileHandler{store: s, engine: engine, build: build}
}

// ServeHTTP routes /api/profiles, /api/profiles/active,
// /api/profiles/{id} and /api/profiles/{id}/activate.
func (h *ProfileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/profiles")
	path = strings.Trim(path, "/")

	switch {
	case path == "":
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return

	case path == "active":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.active(w, r)
		return

	case strings.HasSuffix(path, "/activate"):
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.activate(w, r, strings.TrimSuffix(path, "/activate"))
		return
	}

	id := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type tuningPayload struct {
	Dampener float64 `json:"dampener"`
	Lerp     float64 `json:"lerp"`
}

type profileRequest struct {
	Name          string                   `json:"name"`
	GazeSmoothing *float64                 `json:"gaze_smoothing"`
	Bones         map[string]tuningPayload `json:"bones"`
}

type profileResponse struct {
	ID            string                   `json:"id"`
	Name          string                   `json:"name"`
	GazeSmoothing *float64                 `json:"gaze_smoothing,omitempty"`
	Bones         map[string]tuningPayload `json:"bones"`
	Active        bool                     `json:"active"`
	CreatedAt     string                   `json:"created_at"`
	UpdatedAt     string                   `json:"updated_at"`
}

type listProfilesResponse struct {
	Profiles []profileResponse `json:"profiles"`
}

func toResponse(p *store.Profile, active string) profileResponse {
	bones := make(map[string]tuningPayload, len(p.Bones))
	for name, t := range p.Bones {
		bones[string(name)] = tuningPayload{Dampener: t.Dampener, Lerp: t.Lerp}
	}
	return profileResponse{
		ID:            p.ID,
		Name:          p.Name,
		GazeSmoothing: p.GazeSmoothing,
		Bones:         bones,
		Active:        active != "" && active == p.Name,
		CreatedAt:     p.CreatedAt.Format(timeLayout),
		UpdatedAt:     p.UpdatedAt.Format(timeLayout),
	}
}

// apply copies the request onto p. Bones in the request replace p's bones
// wholesale; an omitted bones field keeps them.
func (req profileRequest) apply(p *store.Profile) error {
	if req.Name != "" {
		p.Name = req.Name
	}
	if req.GazeSmoothing != nil {
		p.GazeSmoothing = store.Float64(*req.GazeSmoothing)
	}
	if req.Bones != nil {
		bones := make(map[rig.BoneName]retarget.Tuning, len(req.Bones))
		for name, t := range req.Bones {
			bone, err := rig.ParseBoneName(name)
			if err != nil {
				return err
			}
			bones[bone] = retarget.Tuning{Dampener: t.Dampener, Lerp: t.Lerp}
		}
		p.Bones = bones
	}
	return nil
}

func (h *ProfileHandler) activeName() string {
	name, err := h.store.Settings().Get(store.KeyActiveProfile)
	if err != nil {
		return ""
	}
	return name
}

func (h *ProfileHandler) list(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.store.Profiles().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list profiles")
		return
	}

	active := h.activeName()
	response := listProfilesResponse{
		Profiles: make([]profileResponse, 0, len(profiles)),
	}
	for _, p := range profiles {
		response.Profiles = append(response.Profiles, toResponse(p, active))
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *ProfileHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	p, err := h.store.Profiles().GetByID(id)
	if err != nil {
		h.writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(p, h.activeName()))
}

func (h *ProfileHandler) active(w http.ResponseWriter, r *http.Request) {
	name := h.activeName()
	if name == "" {
		writeError(w, http.StatusNotFound, "No active profile")
		return
	}
	p, err := h.store.Profiles().GetByName(name)
	if err != nil {
		h.writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(p, name))
}

func (h *ProfileHandler) create(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}

	p := &store.Profile{}
	if err := req.apply(p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.Profiles().Create(p); err != nil {
		h.writeSaveError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toResponse(p, h.activeName()))
}

func (h *ProfileHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	p, err := h.store.Profiles().GetByID(id)
	if err != nil {
		h.writeLookupError(w, err)
		return
	}
	previousName := p.Name

	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := req.apply(p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.Profiles().Update(p); err != nil {
		h.writeSaveError(w, err)
		return
	}

	active := h.activeName()
	if active == previousName {
		if p.Name != previousName {
			if err := h.store.Settings().Set(store.KeyActiveProfile, p.Name); err != nil {
				writeError(w, http.StatusInternalServerError, "Failed to update active profile")
				return
			}
			active = p.Name
		}
		h.retune(p)
	}

	writeJSON(w, http.StatusOK, toResponse(p, active))
}

func (h *ProfileHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	p, err := h.store.Profiles().GetByID(id)
	if err != nil {
		h.writeLookupError(w, err)
		return
	}
	if err := h.store.Profiles().Delete(id); err != nil {
		h.writeLookupError(w, err)
		return
	}
	if h.activeName() == p.Name {
		h.store.Settings().Delete(store.KeyActiveProfile)
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ProfileHandler) activate(w http.ResponseWriter, r *http.Request, id string) {
	p, err := h.store.Profiles().GetByID(id)
	if err != nil {
		h.writeLookupError(w, err)
		return
	}
	if err := h.store.Settings().Set(store.KeyActiveProfile, p.Name); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to activate profile")
		return
	}
	h.retune(p)

	writeJSON(w, http.StatusOK, toResponse(p, p.Name))
}

func (h *ProfileHandler) retune(p *store.Profile) {
	if h.engine == nil {
		return
	}
	h.engine.SetEngine(h.build(p))
}

func (h *ProfileHandler) writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Profile not found")
		return
	}
	writeError(w, http.StatusInternalServerError, "Failed to get profile")
}

func (h *ProfileHandler) writeSaveError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrInvalidProfile):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrDuplicateName):
		writeError(w, http.StatusConflict, "Profile name already exists")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Profile not found")
	default:
		writeError(w, http.StatusInternalServerError, "Failed to save profile")
	}
}
