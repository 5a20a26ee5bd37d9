package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tranzac/internal/export"
	"tranzac/internal/models"
	"tranzac/internal/pricing"
	"tranzac/internal/service"

	"github.com/julienschmidt/httprouter"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	status := "ok"
	code := http.StatusOK
	if err := s.repo.Ping(r.Context()); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{"status": status})
}

func (s *Server) handleRooms(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]any{"rooms": s.table.Rooms()})
}

func (s *Server) handleResources(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]any{"resources": s.table.ResourceOptions()})
}

func (s *Server) handleListRentalRequests(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	workflowStatus := strings.TrimSpace(r.URL.Query().Get("workflowStatus"))
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	rentals, err := s.cms.ListRentalRequests(r.Context(), workflowStatus, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rentalRequests": rentals})
}

func (s *Server) handleGetRentalRequest(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	rental, err := s.cms.GetRentalRequest(r.Context(), ps.ByName("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rental)
}

func (s *Server) handleGetSlots(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	slots, err := s.cms.GetBookingSlots(r.Context(), ps.ByName("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": slots})
}

type createEstimateRequest struct {
	RentalRequestID string `json:"rentalRequestId"`
	Label           string `json:"label"`
}

func (s *Server) handleCreateEstimate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body createEstimateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	est, err := s.estimates.CreateEstimate(r.Context(), body.RentalRequestID, body.Label, actor(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, est)
}

func (s *Server) handleListEstimates(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	limit := int64(50)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	estimates, err := s.repo.List(r.Context(), status, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"costEstimates": estimates})
}

func (s *Server) handleGetEstimate(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	est, err := s.estimates.GetEstimate(r.Context(), ps.ByName("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, est)
}

type createVersionRequest struct {
	Label string `json:"label"`
}

func (s *Server) handleCreateVersion(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body createVersionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	est, err := s.estimates.CreateVersion(r.Context(), ps.ByName("id"), body.Label, actor(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, est)
}

func (s *Server) handleGetVersion(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	version, ok := versionParam(w, ps)
	if !ok {
		return
	}

	v, err := s.estimates.GetVersion(r.Context(), ps.ByName("id"), version)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

type updateVersionRequest struct {
	Label         *string                   `json:"label"`
	CostEstimates []models.CostEstimateSlot `json:"costEstimates"`
}

// handleUpdateVersion replaces a version's slots, renames it, or both.
func (s *Server) handleUpdateVersion(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	version, ok := versionParam(w, ps)
	if !ok {
		return
	}

	var body updateVersionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.CostEstimates == nil && body.Label == nil {
		writeError(w, http.StatusBadRequest, "label or costEstimates is required")
		return
	}

	id := ps.ByName("id")
	var v *models.EstimateVersion
	var err error
	if body.CostEstimates != nil {
		v, err = s.estimates.ReplaceVersion(r.Context(), id, version, body.CostEstimates, actor(r.Context()))
		if err != nil {
			writeDomainError(w, err)
			return
		}
	}
	if body.Label != nil {
		v, err = s.estimates.UpdateVersionLabel(r.Context(), id, version, *body.Label, actor(r.Context()))
		if err != nil {
			writeDomainError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, v)
}

type previewRequest struct {
	RentalRequestID string               `json:"rentalRequestId"`
	Slots           []models.BookingSlot `json:"slots"`
}

type previewResponse struct {
	CostEstimates []models.CostEstimateSlot `json:"costEstimates"`
	TotalCost     float64                   `json:"totalCost"`
	Tax           float64                   `json:"tax"`
	TotalWithTax  float64                   `json:"totalWithTax"`
}

// handlePreview prices a set of slots without persisting anything. Slots
// come from the request body or, when absent, from the rental's CMS record.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body previewRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	slots := body.Slots
	if len(slots) == 0 {
		if body.RentalRequestID == "" {
			writeError(w, http.StatusBadRequest, "slots or rentalRequestId is required")
			return
		}
		fetched, err := s.cms.GetBookingSlots(r.Context(), body.RentalRequestID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		slots = fetched
	}

	priced, totals, err := pricing.Aggregate(s.calc, slots, s.taxRate)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, previewResponse{
		CostEstimates: priced,
		TotalCost:     totals.GrandTotal,
		Tax:           totals.Tax,
		TotalWithTax:  totals.TotalWithTax,
	})
}

type updateItemRequest struct {
	SlotID string  `json:"slotId"`
	ItemID string  `json:"itemId"`
	Cost   float64 `json:"cost"`
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	version, ok := versionParam(w, ps)
	if !ok {
		return
	}

	var body updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	v, err := s.estimates.UpdateLineItem(r.Context(), ps.ByName("id"), version, body.SlotID, body.ItemID, body.Cost, actor(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	version, ok := versionParam(w, ps)
	if !ok {
		return
	}

	slotID := strings.TrimSpace(r.URL.Query().Get("slotId"))
	itemID := strings.TrimSpace(r.URL.Query().Get("itemId"))
	if slotID == "" || itemID == "" {
		writeError(w, http.StatusBadRequest, "slotId and itemId are required")
		return
	}

	v, err := s.estimates.RemoveLineItem(r.Context(), ps.ByName("id"), version, slotID, itemID, actor(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

type customItemRequest struct {
	SlotID      string  `json:"slotId"`
	Description string  `json:"description"`
	Cost        float64 `json:"cost"`
}

func (s *Server) handleAddCustomItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	version, ok := versionParam(w, ps)
	if !ok {
		return
	}

	var body customItemRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	v, err := s.estimates.AddCustomLineItem(r.Context(), ps.ByName("id"), version, body.SlotID, body.Description, body.Cost, actor(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (s *Server) handleRecalculate(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	version, ok := versionParam(w, ps)
	if !ok {
		return
	}

	v, err := s.estimates.Recalculate(r.Context(), ps.ByName("id"), version, actor(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleExportVersion(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	version, ok := versionParam(w, ps)
	if !ok {
		return
	}

	id := ps.ByName("id")
	v, err := s.estimates.GetVersion(r.Context(), id, version)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	// The workbook still renders when the CMS is unreachable; the header
	// block just stays empty.
	rental, err := s.cms.GetRentalRequest(r.Context(), id)
	if err != nil {
		rental = &models.RentalRequest{ID: id}
	}

	doc := service.BuildDocument(rental, v, s.loc, time.Now())
	data, err := export.WriteVersion(doc)
	if err != nil {
		s.logger.Error().Err(err).Str("rental_request_id", id).Msg("Excel export failed")
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(doc)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

type changeStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleChangeStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body changeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	est, err := s.estimates.ChangeStatus(r.Context(), ps.ByName("id"), body.Status, actor(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, est)
}

func (s *Server) handleAccept(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	est, err := s.estimates.Accept(r.Context(), ps.ByName("id"), actor(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, est)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	est, err := s.estimates.Reject(r.Context(), ps.ByName("id"), actor(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, est)
}

type sendEstimateRequest struct {
	Version    int      `json:"version"`
	Recipients []string `json:"recipients"`
	Message    string   `json:"message"`
}

func (s *Server) handleSendEstimate(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body sendEstimateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	id := ps.ByName("id")
	if err := s.sender.SendEstimate(r.Context(), id, body.Version, body.Recipients, body.Message, actor(r.Context())); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "sent", "version": body.Version})
}

func versionParam(w http.ResponseWriter, ps httprouter.Params) (int, bool) {
	version, err := strconv.Atoi(ps.ByName("version"))
	if err != nil || version < 0 {
		writeError(w, http.StatusBadRequest, "invalid version number")
		return 0, false
	}
	return version, true
}
