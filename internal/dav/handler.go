// Package dav serves the WebDAV and CalDAV protocol surface over the
// virtual file tree and the per-space calendar collections.
package dav

import (
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Feuerhamster/memoria/internal/access"
	"github.com/Feuerhamster/memoria/internal/blob"
	"github.com/Feuerhamster/memoria/internal/config"
	"github.com/Feuerhamster/memoria/internal/locks"
	"github.com/Feuerhamster/memoria/internal/store"
)

// maxDAVBodyBytes is the maximum body size for DAV requests. Preventing DOS attacks.
const maxDAVBodyBytes int64 = 10 * 1024 * 1024

// Mount prefixes for the two protocol surfaces.
const (
	webdavPrefix = "/webdav"
	caldavPrefix = "/caldav"
)

var errUnknownPolicyFolder = errors.New("unknown policy folder")

// zeroTime marks synthesized collections with no creation timestamp.
var zeroTime time.Time

// Handler serves WebDAV and CalDAV requests.
type Handler struct {
	cfg     *config.Config
	store   *store.Store
	checker *access.Checker
	blobs   blob.Store
	locks   *locks.Manager
	log     *logrus.Entry
}

func NewHandler(cfg *config.Config, st *store.Store, checker *access.Checker, blobs blob.Store, lockMgr *locks.Manager) *Handler {
	return &Handler{
		cfg:     cfg,
		store:   st,
		checker: checker,
		blobs:   blobs,
		locks:   lockMgr,
		log:     logrus.WithField("component", "dav"),
	}
}

// Options advertises the WebDAV class and verb set.
func (h *Handler) Options(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", "OPTIONS, HEAD, GET, PROPFIND, PUT, DELETE, LOCK, UNLOCK, MOVE, COPY")
	w.Header().Set("DAV", "1, 2")
	w.WriteHeader(http.StatusOK)
}

// CalOptions advertises the CalDAV capabilities.
func (h *Handler) CalOptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", "OPTIONS, GET, PUT, DELETE, PROPFIND, REPORT")
	w.Header().Set("DAV", "1, 2, calendar-access")
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) Head(w http.ResponseWriter, r *http.Request) {
	h.Get(w, r)
}

// Mkcol rejects collection creation; the folder tree is fixed by convention.
func (h *Handler) Mkcol(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "collections cannot be created", http.StatusForbidden)
}

func (h *Handler) internalError(w http.ResponseWriter, msg string, err error) {
	h.log.WithError(err).Error(msg)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}
