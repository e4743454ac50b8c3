package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"custodycore/internal/core"
	"custodycore/internal/export"
	"custodycore/pkg/domain"
)

// LifecycleHandler adapts the lifecycle service to HTTP.
type LifecycleHandler struct {
	svc      *core.Service
	exporter *export.Service
	logger   *zap.Logger
}

// NewLifecycleHandler constructs the HTTP handler adapter.
func NewLifecycleHandler(svc *core.Service, exporter *export.Service, logger *zap.Logger) *LifecycleHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LifecycleHandler{svc: svc, exporter: exporter, logger: logger}
}

// writeError maps domain errors onto HTTP statuses. Unrecognized errors are
// logged and reported as 500 without leaking internals.
func (h *LifecycleHandler) writeError(c *gin.Context, err error) {
	var (
		validation domain.ValidationError
		notFound   domain.NotFoundError
		duplicate  domain.DuplicateActiveEntryError
		conflict   domain.ConflictError
		refErr     domain.ReferentialIntegrityError
		transient  domain.TransientError
		partial    domain.PartialBatchError
		rules      domain.RuleViolationError
	)
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": validation.Error(), "field": validation.Field})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
	case errors.As(err, &duplicate):
		// Informational for the case-worker: the animal is already queued.
		c.JSON(http.StatusConflict, gin.H{
			"error":     duplicate.Error(),
			"animal_id": duplicate.AnimalID,
			"track":     string(duplicate.Track),
		})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"error": conflict.Error()})
	case errors.As(err, &refErr):
		c.JSON(http.StatusConflict, gin.H{"error": refErr.Error()})
	case errors.As(err, &rules):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": rules.Error(), "violations": rules.Result.Violations})
	case errors.As(err, &transient):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage temporarily unavailable, retry the request"})
	case errors.As(err, &partial):
		failures := make([]gin.H, 0, len(partial.Failed))
		for _, f := range partial.Failed {
			failures = append(failures, gin.H{"entry_id": f.EntryID, "error": f.Err.Error()})
		}
		c.JSON(http.StatusMultiStatus, gin.H{
			"error":     partial.Error(),
			"succeeded": partial.Succeeded,
			"failed":    failures,
		})
	default:
		h.logger.Error("unhandled service error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// --- Entry ledger ---

// CreateAnimal registers a new intake.
func (h *LifecycleHandler) CreateAnimal(c *gin.Context) {
	var animal domain.AnimalRecord
	if err := c.ShouldBindJSON(&animal); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	created, err := h.svc.CreateAnimal(c.Request.Context(), animal)
	if err != nil {
		h.writeError(c, err)
		return
	}
	// The response carries the recurrence so intake screens can flag repeat
	// apprehensions immediately.
	recurrence := h.svc.CheckRecurrence(c.Request.Context(), created.Chip, created.ID)
	c.JSON(http.StatusCreated, gin.H{"animal": created, "recurrence": recurrence})
}

// ListAnimals returns the entry ledger, newest intake first.
func (h *LifecycleHandler) ListAnimals(c *gin.Context) {
	if chip := c.Query("chip"); chip != "" {
		c.JSON(http.StatusOK, gin.H{"animals": h.svc.FindAnimalsByChip(c.Request.Context(), chip)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"animals": h.svc.ListAnimals(c.Request.Context())})
}

// GetAnimal fetches one entry-ledger record.
func (h *LifecycleHandler) GetAnimal(c *gin.Context) {
	animal, err := h.svc.GetAnimal(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, animal)
}

type updateAnimalRequest struct {
	ExpectedVersion *int64 `json:"expected_version"`

	Chip              *string `json:"chip"`
	Species           *string `json:"species"`
	Gender            *string `json:"gender"`
	CoatColor         *string `json:"coat_color"`
	BreedOrNote       *string `json:"breed_or_note"`
	OriginRegion      *string `json:"origin_region"`
	RequestingAgency  *string `json:"requesting_agency"`
	CaseNumber        *string `json:"case_number"`
	Observations      *string `json:"observations"`
	Classification    *string `json:"classification"`
	LocationReference *string `json:"location_reference"`
}

// UpdateAnimal applies a partial update; absent fields keep their values.
func (h *LifecycleHandler) UpdateAnimal(c *gin.Context) {
	var req updateAnimalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	updated, err := h.svc.UpdateAnimal(c.Request.Context(), c.Param("id"), req.ExpectedVersion, func(a *domain.AnimalRecord) error {
		setIf := func(dst *string, src *string) {
			if src != nil {
				*dst = *src
			}
		}
		setIf(&a.Chip, req.Chip)
		setIf(&a.Species, req.Species)
		setIf(&a.CoatColor, req.CoatColor)
		setIf(&a.BreedOrNote, req.BreedOrNote)
		setIf(&a.OriginRegion, req.OriginRegion)
		setIf(&a.RequestingAgency, req.RequestingAgency)
		setIf(&a.CaseNumber, req.CaseNumber)
		setIf(&a.Observations, req.Observations)
		if req.Gender != nil {
			a.Gender = domain.Gender(*req.Gender)
		}
		if req.Classification != nil {
			a.Classification = req.Classification
		}
		if req.LocationReference != nil {
			a.LocationReference = req.LocationReference
		}
		return nil
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteAnimal removes an entry-ledger record when nothing references it.
func (h *LifecycleHandler) DeleteAnimal(c *gin.Context) {
	if err := h.svc.DeleteAnimal(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CheckRecurrence reports prior apprehensions for a chip.
func (h *LifecycleHandler) CheckRecurrence(c *gin.Context) {
	chip := c.Query("chip")
	if chip == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "chip query parameter is required"})
		return
	}
	c.JSON(http.StatusOK, h.svc.CheckRecurrence(c.Request.Context(), chip, c.Query("exclude")))
}

// DaysInCustody reports the custody duration of one animal.
func (h *LifecycleHandler) DaysInCustody(c *gin.Context) {
	days, err := h.svc.DaysInCustody(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"animal_id": c.Param("id"), "days_in_custody": days})
}

// --- Photos ---

// UploadPhoto stores an identification photo from a multipart form.
func (h *LifecycleHandler) UploadPhoto(c *gin.Context) {
	file, err := c.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field 'photo' is required"})
		return
	}
	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
		return
	}
	defer func() { _ = src.Close() }()

	info, err := h.svc.AttachPhoto(c.Request.Context(), c.Param("id"), file.Filename, src, file.Header.Get("Content-Type"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, info)
}

// GetPhoto streams the stored photo.
func (h *LifecycleHandler) GetPhoto(c *gin.Context) {
	info, rc, err := h.svc.OpenPhoto(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer func() { _ = rc.Close() }()
	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, info.Size, contentType, rc, nil)
}

// GetPhotoURL returns a pre-signed URL when the blob backend supports it.
func (h *LifecycleHandler) GetPhotoURL(c *gin.Context) {
	url, err := h.svc.PhotoURL(c.Request.Context(), c.Param("id"), 15*time.Minute)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// --- Worklist tracks ---

// ListTrack returns the queue of one disposition track.
func (h *LifecycleHandler) ListTrack(c *gin.Context) {
	items, err := h.svc.ListTrack(c.Request.Context(), domain.Track(c.Param("track")))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// AddToTrack queues an animal on a track.
func (h *LifecycleHandler) AddToTrack(c *gin.Context) {
	var form core.WorklistForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	entry, err := h.svc.AddToTrack(c.Request.Context(), domain.Track(c.Param("track")), form)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// UpdateWorklistEntry mutates the status fields of a queued entry.
func (h *LifecycleHandler) UpdateWorklistEntry(c *gin.Context) {
	var update core.StatusUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	entry, err := h.svc.UpdateTrackStatus(c.Request.Context(), c.Param("id"), update)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// RemoveWorklistEntry withdraws an entry without recording an exit.
func (h *LifecycleHandler) RemoveWorklistEntry(c *gin.Context) {
	if err := h.svc.RemoveFromTrack(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Finalization ---

// FinalizeEntry closes out one worklist entry into the exit ledger.
func (h *LifecycleHandler) FinalizeEntry(c *gin.Context) {
	var form core.ExitForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	exit, err := h.svc.Finalize(c.Request.Context(), c.Param("id"), form)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, exit)
}

// FinalizeAnimal records an exit for an animal not queued on any track.
func (h *LifecycleHandler) FinalizeAnimal(c *gin.Context) {
	var form core.ExitForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	exit, err := h.svc.FinalizeAnimal(c.Request.Context(), c.Param("id"), form)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, exit)
}

type batchFinalizeRequest struct {
	EntryIDs []string      `json:"entry_ids"`
	Form     core.ExitForm `json:"form"`
}

// FinalizeBatch closes out several entries with a shared exit form.
func (h *LifecycleHandler) FinalizeBatch(c *gin.Context) {
	var req batchFinalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	exits, err := h.svc.FinalizeBatch(c.Request.Context(), req.EntryIDs, req.Form)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"exits": exits})
}

// ListExits returns the exit ledger, newest exit first.
func (h *LifecycleHandler) ListExits(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"exits": h.svc.ListExits(c.Request.Context())})
}

// PurgeExit removes an exit record as an administrative correction.
func (h *LifecycleHandler) PurgeExit(c *gin.Context) {
	if err := h.svc.PurgeExit(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ExportExits streams the exit ledger as an XLSX workbook.
func (h *LifecycleHandler) ExportExits(c *gin.Context) {
	if h.exporter == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "export not configured"})
		return
	}
	data, err := h.exporter.ExportExitsXLSX(c.Request.Context(), c.Query("from"), c.Query("to"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="exits.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// --- Aggregation ---

// Summary returns the dashboard aggregates.
func (h *LifecycleHandler) Summary(c *gin.Context) {
	summary, err := h.svc.Summary(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Occupancy returns the current yard occupancy status.
func (h *LifecycleHandler) Occupancy(c *gin.Context) {
	occ, err := h.svc.Occupancy(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, occ)
}
