package notifications

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/aliuyar1234/tasktally/internal/apperrors"
	"github.com/aliuyar1234/tasktally/internal/auth"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// HandleList handles GET /api/v1/notifications
func HandleList(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if v, err := strconv.Atoi(raw); err == nil {
				limit = v
			}
		}

		service := NewService(pool)
		items, err := service.List(ctx, userID, r.URL.Query().Get("unread") == "true", limit)
		if err != nil {
			log.Error().Err(err).Msg("Failed to list notifications")
			apperrors.WriteInternalError(w, r, "Failed to list notifications")
			return
		}
		unread, err := service.UnreadCount(ctx, userID)
		if err != nil {
			log.Error().Err(err).Msg("Failed to count notifications")
			apperrors.WriteInternalError(w, r, "Failed to list notifications")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"notifications": items,
			"unread_count":  unread,
		})
	}
}

// HandleMarkRead handles POST /api/v1/notifications/{notification_id}/read
func HandleMarkRead(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		notificationID, err := uuid.Parse(chi.URLParam(r, "notification_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid notification ID")
			return
		}

		n, err := NewService(pool).MarkRead(ctx, userID, notificationID)
		if err != nil {
			if errors.Is(err, ErrNotificationNotFound) {
				apperrors.WriteNotFound(w, r, "Notification not found")
				return
			}
			log.Error().Err(err).Msg("Failed to mark notification read")
			apperrors.WriteInternalError(w, r, "Failed to mark notification read")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"notification": n,
		})
	}
}

// HandleMarkAllRead handles POST /api/v1/notifications/read-all
func HandleMarkAllRead(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		updated, err := NewService(pool).MarkAllRead(ctx, auth.GetUserID(ctx))
		if err != nil {
			log.Error().Err(err).Msg("Failed to mark notifications read")
			apperrors.WriteInternalError(w, r, "Failed to mark notifications read")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"updated": updated,
		})
	}
}
