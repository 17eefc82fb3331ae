package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/phenrril/storeadmin/internal/domain"
	"github.com/phenrril/storeadmin/internal/usecase"
)

type Options struct {
	MaxUploadBytes  int64
	UploadPerMinute int
}

type Server struct {
	mux      *http.ServeMux
	ingest   *usecase.IngestUC
	products *usecase.ProductUC
	clients  *usecase.ClientUC
	orders   *usecase.OrderUC
	counter  domain.Counter

	maxUpload int64
}

func New(ing *usecase.IngestUC, p *usecase.ProductUC, c *usecase.ClientUC, o *usecase.OrderUC, counter domain.Counter, opts Options) http.Handler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	if opts.UploadPerMinute <= 0 {
		opts.UploadPerMinute = 30
	}
	s := &Server{ingest: ing, products: p, clients: c, orders: o, counter: counter, maxUpload: opts.MaxUploadBytes, mux: http.NewServeMux()}
	s.routes()
	return Chain(s.mux,
		PathRateLimit(map[string]int{
			"/upload/excel": opts.UploadPerMinute,
		}),
		Recovery,
		RequestID,
		Logging,
	)
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	s.mux.HandleFunc("POST /upload/excel", s.apiUploadExcel)
	s.mux.HandleFunc("GET /upload/excel/template", s.apiUploadTemplate)

	s.mux.HandleFunc("GET /api/clients", s.apiClients)
	s.mux.HandleFunc("GET /api/products", s.apiProducts)
	s.mux.HandleFunc("GET /api/products/categories", s.apiProductCategories)
	s.mux.HandleFunc("GET /api/orders", s.apiOrders)
	s.mux.HandleFunc("GET /api/orders/{id}", s.apiOrderByID)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok"}
	if s.counter != nil {
		c, err := s.counter.Counts(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("health")
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "db"})
			return
		}
		resp["counts"] = c
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) apiClients(w http.ResponseWriter, r *http.Request) {
	p := pageFrom(r)
	list, total, err := s.clients.List(r.Context(), p)
	if err != nil {
		log.Error().Err(err).Msg("listar clientes")
		http.Error(w, "db", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": list, "total": total, "page": p.Normalize().Page})
}

func (s *Server) apiProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := pageFrom(r)
	f := domain.ProductFilter{
		Category: strings.TrimSpace(q.Get("category")),
		Query:    strings.TrimSpace(q.Get("q")),
		Page:     p.Page,
		PageSize: p.PageSize,
	}
	if sku := strings.TrimSpace(q.Get("sku")); sku != "" {
		prod, err := s.products.GetBySKU(r.Context(), sku)
		if err != nil {
			notFoundOr500(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"product": prod})
		return
	}
	list, total, err := s.products.List(r.Context(), f)
	if err != nil {
		log.Error().Err(err).Msg("listar productos")
		http.Error(w, "db", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": list, "total": total, "page": p.Normalize().Page})
}

func (s *Server) apiProductCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.products.Categories(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("categorias")
		http.Error(w, "db", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": cats})
}

func (s *Server) apiOrders(w http.ResponseWriter, r *http.Request) {
	p := pageFrom(r)
	list, total, err := s.orders.List(r.Context(), p)
	if err != nil {
		log.Error().Err(err).Msg("listar ordenes")
		http.Error(w, "db", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": list, "total": total, "page": p.Normalize().Page})
}

func (s *Server) apiOrderByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "id", http.StatusBadRequest)
		return
	}
	o, err := s.orders.Get(r.Context(), id)
	if err != nil {
		notFoundOr500(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": o})
}

func pageFrom(r *http.Request) domain.Page {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("page_size"))
	return domain.Page{Page: page, PageSize: size}
}

func notFoundOr500(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	log.Error().Err(err).Msg("consulta")
	http.Error(w, "db", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
