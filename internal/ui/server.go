package ui

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zombor/billed/internal/bill"
	"github.com/zombor/billed/internal/session"
	"github.com/zombor/billed/internal/store"
)

// maxUploadSize bounds the new bill form, receipt included
const maxUploadSize = int64(20 << 20)

var errUnreadableForm = errors.New("le formulaire n'a pas pu être lu")

// Receipts reads stored bills and their receipt files
type Receipts interface {
	GetBill(id string) (*bill.Bill, error)
	GetBillFile(id string) ([]byte, string, error)
}

// Server serves the employee pages
type Server struct {
	store    store.Store
	receipts Receipts
	sessions session.Provider
	views    *Views
	metrics  *Metrics
	registry *prometheus.Registry
	mux      *http.ServeMux
	handler  http.Handler
}

// NewServer creates a Server with default mux. receipts, when not nil, serves
// receipt files at their bill.FileURL to the signed-in owner or an admin.
func NewServer(st store.Store, receipts Receipts, sessions session.Provider, views *Views) *Server {
	return NewServerWithMux(st, receipts, sessions, views, http.NewServeMux())
}

// NewServerWithMux creates a Server with a custom mux for testing
func NewServerWithMux(st store.Store, receipts Receipts, sessions session.Provider, views *Views, mux *http.ServeMux) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &Server{
		store:    st,
		receipts: receipts,
		sessions: sessions,
		views:    views,
		metrics:  NewMetrics(registry),
		registry: registry,
		mux:      mux,
	}
	s.registerRoutes()
	s.handler = recoverPanics(logRequests(s.metrics, s.withSession(s.mux)))
	return s
}

// registerRoutes registers the pages, most specific first
func (s *Server) registerRoutes() {
	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticFiles())))
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	if s.receipts != nil {
		s.mux.HandleFunc("GET /api/bills/{id}/file", requireUser(s.handleReceiptFile))
	}

	s.mux.HandleFunc("GET /{$}", s.handleLogin)
	s.mux.HandleFunc("POST /login", s.handlePostLogin)
	s.mux.HandleFunc("GET /logout", s.handleLogout)

	s.mux.HandleFunc("GET /employee/bills/new", requireUser(s.handleClickNewBill))
	s.mux.HandleFunc("GET /employee/bills/receipt", requireUser(s.handleReceipt))
	s.mux.HandleFunc("GET /employee/bills", requireUser(s.handleBills))
	s.mux.HandleFunc("POST /employee/bill/new/file", requireUser(s.handleChangeFile))
	s.mux.HandleFunc("GET /employee/bill/new", requireUser(s.handleNewBill))
	s.mux.HandleFunc("POST /employee/bill/new", requireUser(s.handleSubmitNewBill))

	s.mux.HandleFunc("/", s.handleNotFound)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) deps(w http.ResponseWriter, r *http.Request) Deps {
	return Deps{
		Navigator: redirect(w, r),
		Store:     s.store,
		Session:   sessionFrom(r.Context()),
		Views:     s.views,
		Metrics:   s.metrics,
	}
}

type loginView struct {
	Error string
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if _, ok := session.CurrentUser(sessionFrom(r.Context())); ok {
		http.Redirect(w, r, PathBills, http.StatusSeeOther)
		return
	}
	if err := s.views.Render(w, "login", pageFor(PathLogin, nil, loginView{})); err != nil {
		slog.Error("Error rendering login", "error", err)
	}
}

// handlePostLogin records who is signed in. Credentials are not checked.
func (s *Server) handlePostLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}
	email := strings.TrimSpace(r.PostForm.Get("email"))
	if email == "" || !strings.Contains(email, "@") {
		w.WriteHeader(http.StatusBadRequest)
		if err := s.views.Render(w, "login", pageFor(PathLogin, nil, loginView{Error: "Email invalide"})); err != nil {
			slog.Error("Error rendering login", "error", err)
		}
		return
	}

	userType := session.Employee
	if session.UserType(r.PostForm.Get("type")) == session.Admin {
		userType = session.Admin
	}
	if err := session.SetUser(sessionFrom(r.Context()), session.User{Type: userType, Email: email}); err != nil {
		slog.Error("Error saving session", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	slog.Info("User signed in", "email", email, "type", userType)
	redirect(w, r).Navigate(PathBills)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess := sessionFrom(r.Context()); sess != nil {
		if err := sess.Remove(session.UserKey); err != nil {
			slog.Error("Error clearing session", "error", err)
		}
	}
	redirect(w, r).Navigate(PathLogin)
}

func (s *Server) handleBills(w http.ResponseWriter, r *http.Request) {
	if err := NewBills(s.deps(w, r)).FetchAndRender(r.Context(), w); err != nil {
		slog.Error("Error rendering bills", "error", err)
	}
}

func (s *Server) handleClickNewBill(w http.ResponseWriter, r *http.Request) {
	NewBills(s.deps(w, r)).HandleClickNewBill()
}

// handleReceipt answers an eye icon click with the receipt modal
func (s *Server) handleReceipt(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		http.Error(w, "Missing receipt url", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := NewBills(s.deps(w, r)).HandleClickIconEye(EyeIcon{BillURL: url}, NewHTMLModal(w, s.views)); err != nil {
		slog.Error("Error rendering receipt modal", "error", err)
	}
}

// handleReceiptFile serves a receipt to the employee who filed it, or to an admin
func (s *Server) handleReceiptFile(w http.ResponseWriter, r *http.Request) {
	user, _ := session.CurrentUser(sessionFrom(r.Context()))
	id := r.PathValue("id")

	b, err := s.receipts.GetBill(id)
	if err != nil {
		if !bill.IsNotFound(err) {
			slog.Error("Error reading bill", "id", id, "error", err)
		}
		http.NotFound(w, r)
		return
	}
	if user.Type != session.Admin && b.Email != user.Email {
		slog.Warn("Receipt requested by another employee", "id", id, "email", user.Email)
		http.NotFound(w, r)
		return
	}

	data, contentType, err := s.receipts.GetBillFile(id)
	if err != nil {
		if !bill.IsNotFound(err) {
			slog.Error("Error reading receipt", "id", id, "error", err)
		}
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Write(data)
}

func (s *Server) handleNewBill(w http.ResponseWriter, r *http.Request) {
	if err := NewNewBill(s.deps(w, r)).Render(w, NewBillForm{}, FileState{}, nil); err != nil {
		slog.Error("Error rendering new bill form", "error", err)
	}
}

// parseUpload parses a multipart body and returns its optional receipt
func parseUpload(w http.ResponseWriter, r *http.Request) (*bill.File, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return nil, err
	}
	return bill.FormFile(r, "file")
}

func (s *Server) handleChangeFile(w http.ResponseWriter, r *http.Request) {
	file, err := parseUpload(w, r)
	if err != nil {
		slog.Error("Error reading receipt", "error", err)
		http.Error(w, "Error reading file", http.StatusBadRequest)
		return
	}
	ctrl := NewNewBill(s.deps(w, r))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := ctrl.RenderFile(w, ctrl.HandleChangeFile(r.Context(), file)); err != nil {
		slog.Error("Error rendering file message", "error", err)
	}
}

func (s *Server) handleSubmitNewBill(w http.ResponseWriter, r *http.Request) {
	ctrl := NewNewBill(s.deps(w, r))

	file, err := parseUpload(w, r)
	if err != nil {
		slog.Error("Error parsing new bill form", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		if err := ctrl.Render(w, NewBillForm{}, FileState{}, errUnreadableForm); err != nil {
			slog.Error("Error rendering new bill form", "error", err)
		}
		return
	}

	form := FormFromValues(r.PostForm)
	fileState := ctrl.attach(file)
	if _, err := ctrl.HandleSubmit(r.Context(), form); err != nil {
		var verrs bill.ValidationErrors
		if errors.As(err, &verrs) {
			w.WriteHeader(http.StatusBadRequest)
		} else {
			slog.Error("Error submitting bill", "error", err)
			w.WriteHeader(http.StatusBadGateway)
		}
		if err := ctrl.Render(w, form, fileState, err); err != nil {
			slog.Error("Error rendering new bill form", "error", err)
		}
	}
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNotFound)
	user, _ := session.CurrentUser(sessionFrom(r.Context()))
	page := Page{Title: "Page introuvable", User: user}
	if err := s.views.Render(w, "notfound", page); err != nil {
		slog.Error("Error rendering not found page", "error", err)
	}
}
