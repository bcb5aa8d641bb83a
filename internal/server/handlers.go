package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"rajhholding/internal/services"
)

func (s *Server) listTeams(w http.ResponseWriter, r *http.Request) {
	s.encode(r.Context(), w, http.StatusOK, s.svc.Teams.List(r.Context()))
}

func (s *Server) createTeamMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var p services.CreateTeamMemberPayload
	if err := decode(r, &p); err != nil {
		s.encodeError(ctx, w, err)
		return
	}
	p.Session = s.sessionToken(r)

	member, err := s.svc.Teams.Create(ctx, &p)
	if err != nil {
		s.encodeError(ctx, w, err)
		return
	}
	s.encode(ctx, w, http.StatusCreated, member)
}

func (s *Server) updateTeamMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var p services.UpdateTeamMemberPayload
	if err := decode(r, &p); err != nil {
		s.encodeError(ctx, w, err)
		return
	}
	p.Session = s.sessionToken(r)

	member, err := s.svc.Teams.Update(ctx, &p)
	if err != nil {
		s.encodeError(ctx, w, err)
		return
	}
	s.encode(ctx, w, http.StatusOK, member)
}

func (s *Server) deleteTeamMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	err := s.svc.Teams.Delete(ctx, &services.DeleteTeamMemberPayload{
		Session: s.sessionToken(r),
		ID:      r.URL.Query().Get("id"),
	})
	if err != nil {
		s.encodeError(ctx, w, err)
		return
	}
	s.encode(ctx, w, http.StatusOK, successBody{Success: true})
}

func (s *Server) listContacts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	// unparseable values fall back to the defaults
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	res, err := s.svc.Contacts.List(ctx, &services.ListContactsPayload{
		Session: s.sessionToken(r),
		Page:    page,
		Limit:   limit,
	})
	if err != nil {
		s.encodeError(ctx, w, err)
		return
	}
	s.encode(ctx, w, http.StatusOK, res)
}

func (s *Server) createContact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var p services.CreateContactPayload
	if err := decode(r, &p); err != nil {
		s.encodeError(ctx, w, err)
		return
	}

	submission, err := s.svc.Contacts.Create(ctx, &p)
	if err != nil {
		s.encodeError(ctx, w, err)
		return
	}
	s.encode(ctx, w, http.StatusCreated, submission)
}

func (s *Server) updateContactStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var p services.UpdateContactStatusPayload
	if err := decode(r, &p); err != nil {
		s.encodeError(ctx, w, err)
		return
	}
	p.Session = s.sessionToken(r)

	submission, err := s.svc.Contacts.UpdateStatus(ctx, &p)
	if err != nil {
		s.encodeError(ctx, w, err)
		return
	}
	s.encode(ctx, w, http.StatusOK, submission)
}

func (s *Server) deleteContact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	err := s.svc.Contacts.Delete(ctx, &services.DeleteContactPayload{
		Session: s.sessionToken(r),
		ID:      r.URL.Query().Get("id"),
	})
	if err != nil {
		s.encodeError(ctx, w, err)
		return
	}
	s.encode(ctx, w, http.StatusOK, successBody{Success: true})
}

func (s *Server) checkSession(w http.ResponseWriter, r *http.Request) {
	s.encode(r.Context(), w, http.StatusOK, s.svc.Sessions.Check(r.Context(), s.sessionToken(r)))
}

type loginResponse struct {
	Success bool                 `json:"success"`
	User    services.SessionUser `json:"user"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var p services.LoginPayload
	if err := decode(r, &p); err != nil {
		s.encodeError(ctx, w, err)
		return
	}

	res, err := s.svc.Sessions.Login(ctx, &p)
	if err != nil {
		s.encodeError(ctx, w, err)
		return
	}
	s.setSessionCookie(w, res.Token, res.ExpiresIn)
	s.encode(ctx, w, http.StatusOK, loginResponse{Success: true, User: res.User})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if token := s.sessionToken(r); token != "" {
		s.svc.Sessions.Logout(ctx, token)
	}
	s.clearSessionCookie(w)
	s.encode(ctx, w, http.StatusOK, successBody{Success: true})
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxBytes)

	p := services.UploadPayload{Session: s.sessionToken(r)}
	file, header, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		// left empty, the service reports the missing image
	case err != nil:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.encodeError(ctx, w, services.BadRequest("Image too large"))
			return
		}
		s.encodeError(ctx, w, errInvalidBody)
		return
	default:
		defer file.Close()
		p.Filename = header.Filename
		if p.Data, err = io.ReadAll(file); err != nil {
			s.encodeError(ctx, w, errInvalidBody)
			return
		}
	}

	res, err := s.svc.Uploads.Upload(ctx, &p)
	if err != nil {
		s.encodeError(ctx, w, err)
		return
	}
	s.encode(ctx, w, http.StatusOK, res)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	res, ok := s.svc.Health.Check(r.Context())
	status := http.StatusOK
	if !ok {
		status = http.StatusServiceUnavailable
	}
	s.encode(r.Context(), w, status, res)
}
