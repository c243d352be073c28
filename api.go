package main

import (
	"errors"
	"github.com/CodedInternet/gowalker/onboard"
	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"io/ioutil"
	"net/http"
	"strconv"
)

// Largest command body accepted over HTTP.
const maxCommandBody = 4096

// Status returns the latest loop snapshot.
func Status(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, ENV.Loop.Snapshot())
}

// Command runs one protocol message and answers exactly as the socket would.
func Command(w http.ResponseWriter, r *http.Request) {
	body, err := ioutil.ReadAll(http.MaxBytesReader(w, r.Body, maxCommandBody))
	if err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Write(ENV.Conductor.Handle(r.Context(), body))
}

type offsetsQuery struct{}

func (offsetsQuery) Apply(r *onboard.Robot) (onboard.Reply, error) {
	return onboard.Reply{Data: r.CalibrationOffsets().Document()}, nil
}

// Calibration lists every stored offset keyed by leg.
func Calibration(w http.ResponseWriter, r *http.Request) {
	reply, err := ENV.Loop.Submit(r.Context(), offsetsQuery{})
	if err != nil {
		render.Render(w, r, ErrCommand(err))
		return
	}
	render.JSON(w, r, reply.Data)
}

type OffsetPayload struct {
	Offset *int `json:"offset"`
}

func (p *OffsetPayload) Bind(r *http.Request) error {
	if p.Offset == nil {
		return errors.New("offset is required")
	}
	return nil
}

func calibrate(w http.ResponseWriter, r *http.Request, cmd onboard.CalibrationCommand) {
	reply, err := ENV.Loop.Submit(r.Context(), cmd)
	if err != nil {
		render.Render(w, r, ErrCommand(err))
		return
	}
	render.JSON(w, r, reply.Data)
}

// SetOffset adjusts one joint. The robot has to be in calibration mode.
func SetOffset(w http.ResponseWriter, r *http.Request) {
	leg, err := strconv.Atoi(chi.URLParam(r, "leg"))
	if err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	joint, err := strconv.Atoi(chi.URLParam(r, "joint"))
	if err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	data := &OffsetPayload{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	calibrate(w, r, onboard.CalibrationCommand{
		Action: onboard.CalibrationAdjust,
		Leg:    leg,
		Joint:  joint,
		Offset: *data.Offset,
	})
}

func calibrationAction(action onboard.CalibrationAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		calibrate(w, r, onboard.CalibrationCommand{Action: action})
	}
}

func apiRoutes(r chi.Router) {
	r.Post("/login", Login)

	r.Group(func(r chi.Router) {
		r.Use(ValidateJWT)

		r.Get("/refresh_token", JWTRefresh)
		r.Get("/status", Status)
		r.Post("/command", Command)
		r.Get("/calibration", Calibration)

		r.Group(func(r chi.Router) {
			r.Use(RequireAdmin)

			r.Post("/calibration/start", calibrationAction(onboard.CalibrationStart))
			r.Post("/calibration/save", calibrationAction(onboard.CalibrationSave))
			r.Post("/calibration/exit", calibrationAction(onboard.CalibrationExit))
			r.Put("/calibration/{leg}/{joint}", SetOffset)
		})
	})
}
