package invoices

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aliuyar1234/tasktally/internal/access"
	"github.com/aliuyar1234/tasktally/internal/apperrors"
	"github.com/aliuyar1234/tasktally/internal/auth"
	"github.com/aliuyar1234/tasktally/internal/billing"
	"github.com/aliuyar1234/tasktally/internal/models"
	"github.com/aliuyar1234/tasktally/internal/tasks"
	"github.com/aliuyar1234/tasktally/internal/validation"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ReportRequest is the body of an invoice report request
type ReportRequest struct {
	ProjectIDs    []uuid.UUID       `json:"project_ids"`
	Status        models.TaskStatus `json:"status"`
	AssignedToID  *uuid.UUID        `json:"assigned_to_id"`
	From          string            `json:"from"`
	To            string            `json:"to"`
	Currency      string            `json:"currency"`
	InvoiceNumber string            `json:"invoice_number"`
	IssuedOn      string            `json:"issued_on"`
	BillFrom      string            `json:"bill_from"`
	BillTo        string            `json:"bill_to"`
	FromParty     billing.Party     `json:"from_party"`
	ToParty       billing.Party     `json:"to_party"`
}

// toRequest validates the body
func (rr ReportRequest) toRequest() (Request, error) {
	req := Request{
		Filter: tasks.Filter{
			ProjectIDs:   rr.ProjectIDs,
			Status:       rr.Status,
			AssignedToID: rr.AssignedToID,
		},
		InvoiceNumber: strings.TrimSpace(rr.InvoiceNumber),
		Parties: billing.Parties{
			BillFrom: rr.BillFrom,
			BillTo:   rr.BillTo,
			From:     rr.FromParty,
			To:       rr.ToParty,
		},
	}

	if rr.Status != "" && !rr.Status.IsValid() {
		return Request{}, errors.New("invalid status")
	}

	if rr.Currency != "" {
		code, err := validation.NormalizeCurrency(rr.Currency)
		if err != nil {
			return Request{}, err
		}
		req.Currency = code
	}

	var err error
	if req.Filter.From, err = parseDay(rr.From); err != nil {
		return Request{}, errors.New("invalid from date")
	}
	if req.Filter.To, err = parseDay(rr.To); err != nil {
		return Request{}, errors.New("invalid to date")
	}
	if req.Filter.From != nil && req.Filter.To != nil && !req.Filter.From.Before(*req.Filter.To) {
		return Request{}, errors.New("from must be before to")
	}
	if req.IssuedOn, err = parseDay(rr.IssuedOn); err != nil {
		return Request{}, errors.New("invalid issue date")
	}

	return req, nil
}

// HandleReport handles POST /api/v1/orgs/{org_id}/invoices/report
func HandleReport(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, _ := auth.GetActor(ctx)

		orgID, err := uuid.Parse(chi.URLParam(r, "org_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}

		var body ReportRequest
		if !apperrors.DecodeJSON(w, r, &body) {
			return
		}
		req, err := body.toRequest()
		if err != nil {
			apperrors.WriteBadRequest(w, r, err.Error())
			return
		}

		invoice, err := service.Build(ctx, actor, orgID, req)
		if err != nil {
			var denied *access.DeniedError
			var ce *billing.ComputationError
			switch {
			case errors.As(err, &denied):
				apperrors.WriteDenial(w, r, denied)
			case errors.As(err, &ce):
				log.Error().Err(err).Str("org_id", orgID.String()).Msg("Invoice report hit malformed task data")
				apperrors.WriteError(w, r, http.StatusUnprocessableEntity, "computation_error", ce.Error())
			default:
				log.Error().Err(err).Msg("Failed to build invoice report")
				apperrors.WriteInternalError(w, r, "Failed to build invoice report")
			}
			return
		}

		if len(invoice.Parties.Divergent) > 0 {
			log.Warn().
				Strs("fields", invoice.Parties.Divergent).
				Str("org_id", orgID.String()).
				Msg("Invoice free-text parties diverge from structured fields")
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"invoice": invoice,
		})
	}
}

func parseDay(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
