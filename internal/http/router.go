package http

import (
	"net/http"

	"trestle/internal/auth"
	"trestle/internal/club"
	"trestle/internal/config"
	"trestle/internal/http/handler"
	mw "trestle/internal/http/middleware"
	"trestle/internal/outbox"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"
)

func NewRouter(cfg config.Config, db *gorm.DB, jwtSvc *auth.JWT, outboxSvc *outbox.Service, clubSvc *club.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	ah := &handler.AuthHandler{DB: db, JWT: jwtSvc}
	r.Post("/auth/register", ah.Register)
	r.Post("/auth/login", ah.Login)

	appH := &handler.ApplicationHandler{DB: db, Svc: clubSvc}
	// prospective members apply without an account
	r.Post("/clubs/{clubID}/applications", appH.Apply)

	clubH := &handler.ClubHandler{DB: db}
	memberH := &handler.MemberHandler{DB: db, Svc: clubSvc}
	towerH := &handler.TowerHandler{DB: db}
	issueH := &handler.IssueHandler{DB: db}
	sessionH := &handler.SessionHandler{DB: db}
	apptH := &handler.AppointmentHandler{DB: db}
	noticeH := &handler.NoticeHandler{DB: db}
	inviteH := &handler.InviteHandler{DB: db, Svc: clubSvc, TTL: cfg.InviteTTL}
	outboxH := &handler.OutboxHandler{Svc: outboxSvc}
	me := &handler.MeHandler{DB: db}

	// everything below needs the api key and a bearer token
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireAPIKey(cfg.APIKey))
		r.Use(auth.RequireAuth(jwtSvc))

		r.Get("/me", me.Me)
		r.Post("/invites/redeem", inviteH.Redeem)

		r.Get("/clubs", clubH.List)
		r.With(auth.RequireStaff(db)).Post("/clubs", clubH.Create)

		r.Route("/clubs/{clubID}", func(r chi.Router) {
			r.Get("/", clubH.Get)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireStaff(db))

				r.Put("/", clubH.Update)
				r.Delete("/", clubH.Delete)

				r.Post("/members", memberH.Add)
				r.Put("/members/{userID}", memberH.AssignSlots)
				r.Delete("/members/{userID}", memberH.Remove)

				r.Post("/towers", towerH.Create)
				r.Put("/towers/{towerID}", towerH.Update)
				r.Delete("/towers/{towerID}", towerH.Delete)

				r.Post("/sessions", sessionH.Create)
				r.Put("/sessions/{sessionID}", sessionH.Update)
				r.Delete("/sessions/{sessionID}", sessionH.Delete)

				r.Post("/notices", noticeH.Create)
				r.Put("/notices/{noticeID}", noticeH.Update)
				r.Post("/notices/{noticeID}/publish", noticeH.Publish)
				r.Delete("/notices/{noticeID}", noticeH.Delete)

				r.Get("/applications", appH.List)
				r.Post("/applications/{appID}/approve", appH.Approve)
				r.Post("/applications/{appID}/reject", appH.Reject)

				r.Post("/invites", inviteH.Create)
				r.Get("/invites", inviteH.List)
				r.Delete("/invites/{inviteID}", inviteH.Delete)
			})

			// member-visible routes
			r.Group(func(r chi.Router) {
				r.Use(club.RequireMember(db))

				r.Get("/members", memberH.List)

				r.Get("/towers", towerH.List)
				r.Get("/towers/{towerID}", towerH.Get)
				r.Post("/towers/{towerID}/reports", towerH.CreateReport)
				r.Get("/towers/{towerID}/reports", towerH.ListReports)

				r.Post("/issues", issueH.Create)
				r.Get("/issues", issueH.List)
				r.Get("/issues/{issueID}", issueH.Get)
				r.Put("/issues/{issueID}", issueH.Update)
				r.Delete("/issues/{issueID}", issueH.Delete)

				r.Get("/sessions", sessionH.List)
				r.Get("/sessions/{sessionID}", sessionH.Get)

				r.Post("/appointments", apptH.Create)
				r.Get("/appointments", apptH.List)
				r.Get("/appointments/{appointmentID}", apptH.Get)
				r.Put("/appointments/{appointmentID}", apptH.Update)
				r.Delete("/appointments/{appointmentID}", apptH.Delete)

				r.Get("/notices", noticeH.List)
				r.Get("/notices/{noticeID}", noticeH.Get)
			})
		})

		r.Route("/outbox", func(r chi.Router) {
			r.Use(auth.RequireStaff(db))

			r.Post("/", outboxH.Create)
			r.Get("/", outboxH.List)
			r.Get("/pending", outboxH.Pending)
			r.Get("/failed", outboxH.Failed)
			r.Get("/stats", outboxH.Stats)
			r.Post("/retry-all", outboxH.RetryAll)

			r.Get("/{messageID}", outboxH.Get)
			r.Put("/{messageID}", outboxH.Update)
			r.Delete("/{messageID}", outboxH.Delete)
			r.Post("/{messageID}/mark-sent", outboxH.MarkSent)
			r.Post("/{messageID}/mark-failed", outboxH.MarkFailed)
			r.Post("/{messageID}/retry", outboxH.Retry)
		})
	})

	return r
}
