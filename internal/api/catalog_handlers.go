package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/hackgods/treatment-booking/internal/availability"
	"github.com/hackgods/treatment-booking/internal/catalog"
)

func listTreatmentNamesHandler(svc *catalog.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names, err := svc.ListNames(r.Context())
		if err != nil {
			handleCatalogError(w, err)
			return
		}

		resp := make([]TreatmentNameResponse, 0, len(names))
		for _, n := range names {
			resp = append(resp, TreatmentNameResponse{ID: n.ID, Name: n.Name})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func listTreatmentsHandler(svc *catalog.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		treatments, err := svc.ListAll(r.Context())
		if err != nil {
			handleCatalogError(w, err)
			return
		}

		resp := make([]TreatmentResponse, 0, len(treatments))
		for _, t := range treatments {
			resp = append(resp, toTreatmentResponse(t))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func upsertTreatmentHandler(svc *catalog.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpsertTreatmentRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}

		t, created, err := svc.Upsert(r.Context(), catalog.Treatment{
			Name:  req.Name,
			Price: req.Price,
			Slots: req.Slots,
			Image: req.Image,
		})
		if err != nil {
			handleCatalogError(w, err)
			return
		}

		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		writeJSON(w, status, UpsertTreatmentResponse{Created: created, Treatment: toTreatmentResponse(*t)})
	}
}

func deleteTreatmentHandler(svc *catalog.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(pathParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_id", "treatment id must be a UUID")
			return
		}

		if err := svc.Remove(r.Context(), id); err != nil {
			handleCatalogError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, DeletedResponse{Deleted: true})
	}
}

func availableHandler(engine *availability.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		options, err := engine.ListAvailable(r.Context(), r.URL.Query().Get("date"))
		if err != nil {
			handleBookingError(w, err)
			return
		}

		resp := make([]AvailabilityResponse, 0, len(options))
		for _, o := range options {
			resp = append(resp, toAvailabilityResponse(o))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
