package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/example/padel-booking/internal/auth"
	"github.com/example/padel-booking/internal/booking"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templatesFS embed.FS

type Server struct {
	Auth     *auth.Sessions
	Bookings *booking.Service
	Log      *zap.Logger
}

type apiResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) Routes() http.Handler {
	r := httprouter.New()

	r.HandlerFunc(http.MethodGet, "/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	r.GET("/api/slots", s.handleSlots)
	r.POST("/api/add_slot", s.requireCoach(s.handleAddSlot))
	r.DELETE("/api/delete_slot/:id", s.requireCoach(s.handleDeleteSlot))
	r.POST("/api/unbook_slot/:id", s.requireCoach(s.handleUnbookSlot))
	r.POST("/api/book_slot", s.handleBookSlot)

	r.GET("/", s.page("index.html"))
	r.GET("/client", s.page("client.html"))
	r.GET("/coach", s.handleCoachPage)
	r.GET("/coach_login", s.handleLoginPage)
	r.POST("/coach_login", s.handleLoginSubmit)
	r.GET("/logout", s.handleLogout)

	return s.logging(r)
}

// logging tags every request with an id and logs method/path/status.
func (s *Server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		s.Log.Info("request",
			zap.String("request_id", uuid.NewString()),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rw.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) requireCoach(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if !s.Auth.IsCoach(r) {
			s.writeJSON(w, http.StatusForbidden, apiResponse{Success: false, Error: "Unauthorized"})
			return
		}
		next(w, r, ps)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Log.Error("write json response failed", zap.Error(err))
	}
}

func (s *Server) caller(r *http.Request) booking.Caller {
	return booking.Caller{Coach: s.Auth.IsCoach(r)}
}

func (s *Server) handleSlots(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	onlyAvailable := r.URL.Query().Get("only_available") != ""

	events, err := s.Bookings.ListSlots(r.Context(), s.caller(r), onlyAvailable)
	if err != nil {
		s.Log.Error("list slots failed", zap.Error(err))
		// the calendar treats an empty array as "nothing to show"
		s.writeJSON(w, http.StatusOK, []booking.Event{})
		return
	}
	s.writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleAddSlot(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in booking.AddSlotInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.writeJSON(w, http.StatusBadRequest, apiResponse{Success: false, Error: "Invalid request body"})
		return
	}

	if _, err := s.Bookings.AddSlot(r.Context(), s.caller(r), in); err != nil {
		switch {
		case errors.Is(err, booking.ErrUnauthorized):
			s.writeJSON(w, http.StatusForbidden, apiResponse{Success: false, Error: "Unauthorized"})
		case errors.Is(err, booking.ErrInvalidInput):
			s.writeJSON(w, http.StatusBadRequest, apiResponse{Success: false, Error: "Missing fields"})
		default:
			s.writeJSON(w, http.StatusInternalServerError, apiResponse{Success: false})
		}
		return
	}
	s.writeJSON(w, http.StatusOK, apiResponse{Success: true})
}

func (s *Server) handleDeleteSlot(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := strconv.ParseInt(ps.ByName("id"), 10, 64)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, apiResponse{Success: false, Error: "Invalid slot ID"})
		return
	}
	if err := s.Bookings.DeleteSlot(r.Context(), s.caller(r), id); err != nil {
		s.writeJSON(w, http.StatusInternalServerError, apiResponse{Success: false})
		return
	}
	s.writeJSON(w, http.StatusOK, apiResponse{Success: true})
}

func (s *Server) handleUnbookSlot(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := strconv.ParseInt(ps.ByName("id"), 10, 64)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, apiResponse{Success: false, Error: "Invalid slot ID"})
		return
	}
	if err := s.Bookings.UnbookSlot(r.Context(), s.caller(r), id); err != nil {
		s.writeJSON(w, http.StatusInternalServerError, apiResponse{Success: false})
		return
	}
	s.writeJSON(w, http.StatusOK, apiResponse{Success: true})
}

func (s *Server) handleBookSlot(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in booking.BookSlotInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.writeJSON(w, http.StatusBadRequest, apiResponse{Success: false, Error: "Invalid slot ID"})
		return
	}

	booked, err := s.Bookings.BookSlot(r.Context(), in)
	if err != nil {
		if errors.Is(err, booking.ErrInvalidInput) {
			s.writeJSON(w, http.StatusBadRequest, apiResponse{Success: false, Error: "Missing info"})
			return
		}
		s.writeJSON(w, http.StatusInternalServerError, apiResponse{Success: false})
		return
	}
	if !booked {
		// benign race: slot taken or gone, the UI re-polls and picks another
		s.writeJSON(w, http.StatusOK, apiResponse{Success: false, Error: "Slot unavailable"})
		return
	}
	s.writeJSON(w, http.StatusOK, apiResponse{Success: true})
}

type tmplData struct {
	Title string
	Error string
	Coach bool
}

func (s *Server) page(name string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		s.render(w, "templates/"+name, tmplData{Coach: s.Auth.IsCoach(r)})
	}
}

func (s *Server) handleCoachPage(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if !s.Auth.IsCoach(r) {
		http.Redirect(w, r, "/coach_login", http.StatusFound)
		return
	}
	s.render(w, "templates/coach.html", tmplData{Title: "Coach", Coach: true})
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.render(w, "templates/login.html", tmplData{Title: "Coach Login"})
}

func (s *Server) handleLoginSubmit(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !s.Auth.CheckPassword(r.FormValue("password")) {
		s.render(w, "templates/login.html", tmplData{Title: "Coach Login", Error: "Incorrect password."})
		return
	}
	if err := s.Auth.SetCoach(w, r); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/coach", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.Auth.Clear(w)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) render(w http.ResponseWriter, name string, data tmplData) {
	t, err := template.ParseFS(templatesFS,
		"templates/base.html",
		name,
	)
	if err != nil {
		http.Error(w, "template error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.ExecuteTemplate(w, "base", data); err != nil {
		http.Error(w, "render error: "+err.Error(), http.StatusInternalServerError)
	}
}

func Start(ctx context.Context, addr string, h http.Handler, log *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Info("listening", zap.String("addr", addr))
	return srv.ListenAndServe()
}
