package club

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"trestle/internal/auth"
)

// RequireMember allows a request through when the caller is a member of
// the club in the URL, or holds a staff role.
func RequireMember(db *gorm.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := auth.UserIDFromContext(r.Context())
			if !ok {
				denyJSON(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			clubID, err := strconv.ParseUint(chi.URLParam(r, "clubID"), 10, 64)
			if err != nil {
				denyJSON(w, http.StatusBadRequest, "invalid club id")
				return
			}

			var u auth.User
			if err := db.WithContext(r.Context()).First(&u, userID).Error; err != nil {
				denyJSON(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if u.IsStaff() {
				next.ServeHTTP(w, r)
				return
			}

			var m Membership
			err = db.WithContext(r.Context()).
				Where("club_id = ? AND user_id = ?", clubID, userID).
				First(&m).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					denyJSON(w, http.StatusForbidden, "not a member of this club")
					return
				}
				denyJSON(w, http.StatusInternalServerError, "internal error")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func denyJSON(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
