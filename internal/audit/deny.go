package audit

import (
	"net/http"

	"github.com/aliuyar1234/tasktally/internal/access"
	"github.com/aliuyar1234/tasktally/internal/apperrors"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Deny records a refused action in the organization's audit log and writes the 403
func (w *Writer) Deny(rw http.ResponseWriter, r *http.Request, orgID, actorUserID uuid.UUID, denied *access.DeniedError) {
	if err := w.LogAuthorizationDenied(r.Context(), orgID, actorUserID, string(denied.Action), denied.Code()); err != nil {
		log.Error().Err(err).Msg("Failed to log audit event")
	}
	apperrors.WriteDenial(rw, r, denied)
}
