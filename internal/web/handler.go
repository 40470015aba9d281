package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pulseritas/storefront/internal/auth"
	"github.com/pulseritas/storefront/internal/blob"
	"github.com/pulseritas/storefront/internal/catalog"
	"github.com/pulseritas/storefront/internal/catalog/storage"
	"github.com/pulseritas/storefront/internal/gallery"
	"github.com/pulseritas/storefront/internal/pagecache"
	apperrors "github.com/pulseritas/storefront/internal/platform/errors"
)

// sessionCookieName carries the admin session token for browser clients.
const sessionCookieName = "pulseritas_session"

// imageDirPrefix is where item images live inside the blob store.
const imageDirPrefix = "pulseras"

// maxLoginBodyBytes bounds the login request body.
const maxLoginBodyBytes = 4 << 10

// Handler serves the storefront routes.
type Handler struct {
	sessions    *auth.Sessions
	credentials *auth.Credentials
	items       storage.ItemStore
	blobs       blob.Store
	cache       *pagecache.Cache
	invalidator *gallery.Invalidator
	registry    *gallery.Registry
	clock       func() time.Time
	mux         *http.ServeMux
}

// NewHandler builds the storefront route handler.
func NewHandler(config Config) *Handler {
	h := &Handler{
		sessions:    config.Sessions,
		credentials: config.Credentials,
		items:       config.Items,
		blobs:       config.Blobs,
		cache:       config.Cache,
		invalidator: gallery.NewInvalidator(config.Cache),
		registry:    gallery.NewRegistry(),
		clock:       time.Now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc(http.MethodPost+" /api/login", h.handleLogin)
	mux.HandleFunc(http.MethodPost+" /api/gallery/views", h.handleCreateView)
	mux.HandleFunc(http.MethodPost+" /api/gallery/views/{id}/next", h.handleNextPage)
	mux.HandleFunc(http.MethodDelete+" /api/gallery/views/{id}", h.handleCloseView)
	mux.HandleFunc(http.MethodPost+" /api/items", h.requireAdmin(h.handleCreateItem))
	mux.HandleFunc(http.MethodPatch+" /api/items/{id}", h.requireAdmin(h.handleUpdateItem))
	mux.HandleFunc(http.MethodDelete+" /api/items/{id}", h.requireAdmin(h.handleDeleteItem))
	mux.HandleFunc(http.MethodGet+" /healthz", h.handleHealth)
	if config.ImagesDir != "" {
		fileServer := http.FileServer(http.Dir(config.ImagesDir))
		mux.Handle(http.MethodGet+" /images/", http.StripPrefix("/images/", fileServer))
	}
	h.mux = mux
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

type actorKey struct{}

// actorFrom returns the authenticated admin user ID set by requireAdmin.
func actorFrom(ctx context.Context) string {
	actor, _ := ctx.Value(actorKey{}).(string)
	return actor
}

// sessionToken extracts the session token from the Authorization header or
// the session cookie.
func sessionToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// requireAdmin verifies the session token and attaches the actor to the
// request context before running next.
func (h *Handler) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)
		if token == "" {
			h.writeError(w, apperrors.New(apperrors.CodeAuthSessionInvalid, "authentication required"))
			return
		}
		userID, err := h.sessions.Verify(token)
		if err != nil {
			h.writeError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), actorKey{}, userID)
		next(w, r.WithContext(ctx))
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxLoginBodyBytes)).Decode(&req); err != nil {
		h.writeError(w, apperrors.New(apperrors.CodeInvalidArgument, "malformed login request"))
		return
	}
	userID, err := h.credentials.Authenticate(req.Email, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	token, err := h.sessions.Mint(userID)
	if err != nil {
		h.writeError(w, fmt.Errorf("mint session: %w", err))
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	h.writeJSON(w, http.StatusOK, loginResponse{Token: token})
}

type createViewRequest struct {
	Admin bool `json:"admin"`
}

type createViewResponse struct {
	ViewID string `json:"view_id"`
}

func (h *Handler) handleCreateView(w http.ResponseWriter, r *http.Request) {
	var req createViewRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(io.LimitReader(r.Body, maxLoginBodyBytes)).Decode(&req); err != nil {
			h.writeError(w, apperrors.New(apperrors.CodeInvalidArgument, "malformed view request"))
			return
		}
	}

	// A session is optional here: authenticated users get their own cache
	// scope, anonymous visitors share the public one. The admin flag needs
	// a valid session.
	var actor string
	if token := sessionToken(r); token != "" {
		userID, err := h.sessions.Verify(token)
		if err != nil {
			h.writeError(w, err)
			return
		}
		actor = userID
	}
	if req.Admin && actor == "" {
		h.writeError(w, apperrors.New(apperrors.CodeAuthSessionInvalid, "admin views require a session"))
		return
	}

	// Opening a view doubles as the cache janitor: stale pages from any
	// scope are swept before the first load.
	h.cache.SweepExpired(r.Context())

	// The page size is never client-chosen: cached pages are shared across
	// views by (scope, index), so a view with a different size would write
	// short snapshots under keys every other view trusts.
	view, err := gallery.NewView(gallery.Config{
		Scope: pagecache.ScopeForUser(actor),
		Admin: req.Admin,
		Feed:  h.items,
		Cache: h.cache,
	})
	if err != nil {
		h.writeError(w, fmt.Errorf("create gallery view: %w", err))
		return
	}
	h.writeJSON(w, http.StatusCreated, createViewResponse{ViewID: h.registry.Add(view)})
}

func (h *Handler) handleNextPage(w http.ResponseWriter, r *http.Request) {
	view, ok := h.registry.Get(r.PathValue("id"))
	if !ok {
		h.writeError(w, apperrors.New(apperrors.CodeGalleryViewNotFound, "gallery view not found"))
		return
	}
	snapshot, err := view.LoadNextPage(r.Context())
	switch {
	case errors.Is(err, gallery.ErrNoMorePages):
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, gallery.ErrFetchInFlight):
		h.writeError(w, apperrors.New(apperrors.CodeGalleryFetchInFlight, "page fetch already in flight"))
	case err != nil:
		h.writeError(w, fmt.Errorf("load next page: %w", err))
	default:
		h.writeJSON(w, http.StatusOK, snapshot)
	}
}

func (h *Handler) handleCloseView(w http.ResponseWriter, r *http.Request) {
	h.registry.Remove(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r.Context())

	imageData, filename, err := h.readImageUpload(r, true)
	if err != nil {
		h.writeError(w, err)
		return
	}
	priceCents, err := catalog.ParsePrice(r.FormValue("price"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	imagePath := h.imagePath(filename)
	imageURL, err := h.blobs.Put(r.Context(), imagePath, imageData)
	if err != nil {
		h.writeError(w, fmt.Errorf("store item image: %w", err))
		return
	}

	now := h.clock().UTC()
	item := catalog.Item{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(r.FormValue("name")),
		Description: strings.TrimSpace(r.FormValue("description")),
		PriceCents:  priceCents,
		ImageURL:    imageURL,
		ImagePath:   imagePath,
		CreatedBy:   actor,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := item.Validate(); err != nil {
		h.deleteBlob(r.Context(), imagePath)
		h.writeError(w, err)
		return
	}
	if err := h.items.CreateItem(r.Context(), item); err != nil {
		h.deleteBlob(r.Context(), imagePath)
		h.writeError(w, fmt.Errorf("create item: %w", err))
		return
	}

	h.invalidator.OnItemMutated(r.Context(), actor)
	h.writeJSON(w, http.StatusCreated, item)
}

func (h *Handler) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r.Context())
	id := r.PathValue("id")

	current, err := h.items.GetItem(r.Context(), id)
	if err != nil {
		h.writeError(w, h.mapStorageError(err))
		return
	}

	imageData, filename, err := h.readImageUpload(r, false)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var update catalog.ItemUpdate
	if r.Form.Has("name") {
		name := strings.TrimSpace(r.FormValue("name"))
		update.Name = &name
	}
	if r.Form.Has("description") {
		description := strings.TrimSpace(r.FormValue("description"))
		update.Description = &description
	}
	if r.Form.Has("price") {
		priceCents, err := catalog.ParsePrice(r.FormValue("price"))
		if err != nil {
			h.writeError(w, err)
			return
		}
		update.PriceCents = &priceCents
	}

	var newImagePath string
	if imageData != nil {
		newImagePath = h.imagePath(filename)
		imageURL, err := h.blobs.Put(r.Context(), newImagePath, imageData)
		if err != nil {
			h.writeError(w, fmt.Errorf("store item image: %w", err))
			return
		}
		update.ImageURL = &imageURL
		update.ImagePath = &newImagePath
	}

	if update.Empty() {
		h.writeError(w, apperrors.New(apperrors.CodeInvalidArgument, "update changes nothing"))
		return
	}
	if err := update.Validate(); err != nil {
		if newImagePath != "" {
			h.deleteBlob(r.Context(), newImagePath)
		}
		h.writeError(w, err)
		return
	}

	updated, err := h.items.UpdateItem(r.Context(), id, update)
	if err != nil {
		if newImagePath != "" {
			h.deleteBlob(r.Context(), newImagePath)
		}
		h.writeError(w, h.mapStorageError(err))
		return
	}
	if newImagePath != "" && current.ImagePath != newImagePath {
		h.deleteBlob(r.Context(), current.ImagePath)
	}

	h.invalidator.OnItemMutated(r.Context(), actor)
	h.writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r.Context())
	id := r.PathValue("id")

	item, err := h.items.GetItem(r.Context(), id)
	if err != nil {
		h.writeError(w, h.mapStorageError(err))
		return
	}

	// The image goes first, best effort: a leftover blob is harmless, a
	// dangling catalog row pointing at a deleted image is not.
	h.deleteBlob(r.Context(), item.ImagePath)

	if err := h.items.DeleteItem(r.Context(), id); err != nil {
		h.writeError(w, h.mapStorageError(err))
		return
	}

	h.invalidator.OnItemMutated(r.Context(), actor)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readImageUpload parses the multipart form and returns the uploaded image
// bytes and filename. When required is false a missing image field returns
// nil data without error.
func (h *Handler) readImageUpload(r *http.Request, required bool) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, catalog.MaxImageBytes+maxLoginBodyBytes)
	if err := r.ParseMultipartForm(catalog.MaxImageBytes); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, "", catalog.ValidateImageSize(catalog.MaxImageBytes + 1)
		}
		return nil, "", apperrors.Wrap(apperrors.CodeInvalidArgument, "malformed multipart form", err)
	}

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		if required {
			return nil, "", apperrors.New(apperrors.CodeItemImageMissing, "item image is required")
		}
		return nil, "", nil
	}
	if err != nil {
		return nil, "", apperrors.Wrap(apperrors.CodeInvalidArgument, "malformed image upload", err)
	}
	defer file.Close()

	if err := catalog.ValidateImageSize(header.Size); err != nil {
		return nil, "", err
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("read image upload: %w", err)
	}
	return data, header.Filename, nil
}

// imagePath derives the blob object path for an uploaded image. The millis
// prefix keeps re-uploads of the same filename from colliding.
func (h *Handler) imagePath(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "image"
	}
	return fmt.Sprintf("%s/%d_%s", imageDirPrefix, h.clock().UnixMilli(), base)
}

// deleteBlob removes an image object, logging instead of failing.
func (h *Handler) deleteBlob(ctx context.Context, objectPath string) {
	if objectPath == "" {
		return
	}
	if err := h.blobs.Delete(ctx, objectPath); err != nil {
		log.Printf("delete image %s: %v", objectPath, err)
	}
}

// mapStorageError converts storage sentinels to coded errors.
func (h *Handler) mapStorageError(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return apperrors.Wrap(apperrors.CodeNotFound, "item not found", err)
	case errors.Is(err, storage.ErrAlreadyExists):
		return apperrors.Wrap(apperrors.CodeAlreadyExists, "item already exists", err)
	default:
		return err
	}
}

type errorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// writeError maps coded errors to their HTTP status; everything else is an
// internal error with the detail kept out of the response body.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		h.writeJSON(w, appErr.Code.HTTPStatus(), errorResponse{
			Error:   string(appErr.Code),
			Message: appErr.Message,
			Details: appErr.Metadata,
		})
		return
	}
	log.Printf("internal error: %v", err)
	h.writeJSON(w, http.StatusInternalServerError, errorResponse{
		Error:   string(apperrors.CodeInternal),
		Message: "internal error",
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("encode response: %v", err)
	}
}
