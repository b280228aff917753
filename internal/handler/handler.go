package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sysu-ecnc-dev/floor-board/backend/internal/board"
	"github.com/sysu-ecnc-dev/floor-board/backend/internal/config"
	"github.com/sysu-ecnc-dev/floor-board/backend/internal/domain"
	"github.com/sysu-ecnc-dev/floor-board/backend/internal/livequery"
	"github.com/sysu-ecnc-dev/floor-board/backend/internal/repository"
	"github.com/sysu-ecnc-dev/floor-board/backend/internal/roster"
)

type Handler struct {
	validate   *validator.Validate
	config     *config.Config
	repository *repository.Repository
	translator ut.Translator
	store      *livequery.Store
	lifecycle  *board.Lifecycle
	importer   *roster.Importer
	upgrader   websocket.Upgrader

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, repo *repository.Repository, store *livequery.Store, importer *roster.Importer) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}
	if err := registerValidations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:   validate,
		config:     cfg,
		repository: repo,
		translator: trans,
		store:      store,
		lifecycle:  board.NewLifecycle(store, validate),
		importer:   importer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// 开发环境下前端与后端不同源
			CheckOrigin: func(r *http.Request) bool {
				return cfg.Environment != "production" || sameOrigin(r)
			},
		},

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	h.Mux.Handle("/metrics", promhttp.Handler())

	// 认证相关
	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
	})

	// 以下 API 必须要在登录后才允许调用
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.With(h.myInfo).Get("/my-info", h.GetMyInfo)

		r.Route("/workers", func(r chi.Router) {
			r.Get("/", h.GetAllWorkers)
			r.Route("/{workerId}", func(r chi.Router) {
				r.With(h.workerInfo).Get("/", h.GetWorker)
				r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Put("/", h.UpsertWorker)
				r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).With(h.workerInfo).Delete("/", h.DeleteWorker)
			})
		})

		r.Route("/sites/{siteId}", func(r chi.Router) {
			r.Route("/rosters/{date}", func(r chi.Router) {
				r.Get("/", h.GetRoster)
				r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Post("/import", h.ImportRoster)
			})
			r.Route("/floors/{floorId}", func(r chi.Router) {
				r.Get("/assignments", h.GetActiveAssignments)
				r.Post("/assignments", h.OpenAssignment)
				r.Get("/board", h.GetBoardView)
				r.Get("/board/ws", h.ServeBoard)
			})
		})

		r.Route("/assignments/{id}", func(r chi.Router) {
			r.Get("/", h.GetAssignment)
			r.Patch("/", h.RelocateAssignment)
			r.Post("/checkout", h.CloseAssignment)
		})
	})
}
