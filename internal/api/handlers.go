package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/linkdex/internal/noteservice"
)

const maxBodyBytes = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// notePath extracts the note path from the URL (everything after /api/notes/).
// Supports encoded slashes from OpenAPI clients (e.g. inbox%2Fpost.md).
func notePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// Matches handles GET /api/matches.
//
//	@Summary		Classify notes against a URL
//	@Tags			urls
//	@Produce		json
//	@Param			url	query		string	true	"Target URL"
//	@Success		200	{object}	noteservice.MatchesResult
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/matches [get]
func (h *Handler) Matches(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'url' is required"))
		return
	}
	res, err := h.svc.Matches(r.Context(), target)
	if err != nil {
		writeError(w, "matches", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// URLs handles GET /api/urls.
//
//	@Summary		Look up notes holding a URL verbatim or an equivalent URL
//	@Tags			urls
//	@Produce		json
//	@Param			url	query		string	true	"URL"
//	@Success		200	{object}	noteservice.URLLookup
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/urls [get]
func (h *Handler) URLs(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Lookup(r.Context(), r.URL.Query().Get("url"))
	if err != nil {
		writeError(w, "url lookup", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Domains handles GET /api/domains.
//
//	@Summary		List indexed domains
//	@Tags			urls
//	@Produce		json
//	@Success		200	{object}	DomainsResponse
//	@Security		BearerAuth
//	@Router			/domains [get]
func (h *Handler) Domains(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, DomainsResponse{Domains: h.svc.Domains(r.Context())})
}

// DomainNotes handles GET /api/domains/{domain}.
//
//	@Summary		List notes with a URL on a domain
//	@Tags			urls
//	@Produce		json
//	@Param			domain	path		string	true	"Domain"
//	@Success		200		{object}	NotesResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/domains/{domain} [get]
func (h *Handler) DomainNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.svc.ForDomain(r.Context(), chi.URLParam(r, "domain"))
	if err != nil {
		writeError(w, "domain notes", err)
		return
	}
	writeJSON(w, http.StatusOK, NotesResponse{Notes: notes})
}

// Recent handles GET /api/recent.
//
//	@Summary		Most recently modified notes with URLs
//	@Tags			urls
//	@Produce		json
//	@Param			limit	query		int	false	"Max notes"
//	@Success		200		{object}	NotesResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/recent [get]
func (h *Handler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorBody("limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, NotesResponse{Notes: h.svc.Recent(r.Context(), limit)})
}

// Explore handles GET /api/explorer/{dimension}.
//
//	@Summary		Group every note along one dimension
//	@Tags			explorer
//	@Produce		json
//	@Param			dimension	path		string	true	"Dimension"	Enums(tags, subreddits, channels, users, repos, domains)
//	@Param			allowlist	query		string	false	"Tag allowlist override"
//	@Success		200			{object}	ExplorerResponse
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/explorer/{dimension} [get]
func (h *Handler) Explore(w http.ResponseWriter, r *http.Request) {
	dim := chi.URLParam(r, "dimension")
	groups, err := h.svc.Explore(r.Context(), dim, r.URL.Query().Get("allowlist"))
	if err != nil {
		writeError(w, "explore", err)
		return
	}
	writeJSON(w, http.StatusOK, ExplorerResponse{Dimension: dim, Groups: groups})
}

// Stats handles GET /api/stats.
//
//	@Summary		Vault and index sizes
//	@Tags			urls
//	@Produce		json
//	@Success		200	{object}	noteservice.Stats
//	@Security		BearerAuth
//	@Router			/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Stats(r.Context()))
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a link note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateLinkNoteRequest	true	"Link note to create"
//	@Success		201		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req CreateLinkNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.URL == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("url is required"))
		return
	}
	note, err := h.svc.CreateLinkNote(r.Context(), req)
	if err != nil {
		writeError(w, "create note", err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// GetNote handles GET /api/notes/*.
//
//	@Summary		Get a single note by path
//	@Tags			notes
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Success		200		{object}	NoteDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	note, err := h.svc.GetNote(r.Context(), path)
	if err != nil {
		writeError(w, "get note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// UpdateNote handles PUT /api/notes/*.
//
//	@Summary		Update a note with optimistic concurrency
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			path		path	string				true	"Note path"
//	@Param			If-Match	header	string				false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body	UpdateNoteRequest	true	"Updated content"
//	@Success		200			{object}	NoteDetail
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path} [put]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	var req UpdateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}

	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	note, err := h.svc.UpdateNote(r.Context(), path, []byte(req.Content), ifMatch)
	if err != nil {
		writeError(w, "update note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /api/notes/*.
//
//	@Summary		Delete a note
//	@Tags			notes
//	@Param			path	path	string	true	"Note path"
//	@Success		204		"Note deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.svc.DeleteNote(r.Context(), path); err != nil {
		writeError(w, "delete note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MoveNote handles POST /api/notes/move.
//
//	@Summary		Rename a note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		MoveNoteRequest	true	"Source and target paths"
//	@Success		200		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/move [post]
func (h *Handler) MoveNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req MoveNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.From == "" || req.To == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("from and to are required"))
		return
	}
	note, err := h.svc.MoveNote(r.Context(), req.From, req.To)
	if err != nil {
		writeError(w, "move note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}
