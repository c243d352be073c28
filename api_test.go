package main

import (
	"bytes"
	"context"
	"encoding/json"
	"github.com/CodedInternet/gowalker/comms"
	"github.com/CodedInternet/gowalker/onboard"
	"github.com/CodedInternet/gowalker/onboard/calibration"
	"github.com/CodedInternet/gowalker/onboard/errors"
	"github.com/go-chi/chi"
	. "github.com/smartystreets/goconvey/convey"
	"net/http"
	"net/http/httptest"
	"testing"
)

// startRobot runs a simulated hexapod loop behind ENV for the length of a test.
func startRobot(t *testing.T) {
	useTestDb(t)

	cfg := onboard.DefaultConfig()
	hw, err := onboard.OpenHardware(cfg, true)
	if err != nil {
		t.Fatal(err)
	}
	robot, err := onboard.NewRobot(cfg, hw, calibration.NewStormStore(ENV.DB), nil)
	if err != nil {
		t.Fatal(err)
	}
	loop := onboard.NewLoop(robot)
	ENV.Loop = loop
	ENV.Conductor = comms.NewConductor(loop)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
		robot.Close()
	})
}

func apiRequest(method, path, token, body string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Route("/api", apiRoutes)

	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func decodeBody(rr *httptest.ResponseRecorder) (m map[string]interface{}) {
	json.Unmarshal(rr.Body.Bytes(), &m)
	return
}

func TestAPI(t *testing.T) {
	startRobot(t)
	admin, _ := newJWT(&Operator{Email: "admin@walker", Admin: true})
	pilot, _ := newJWT(&Operator{Email: "pilot@walker"})

	Convey("status needs a token", t, func() {
		So(apiRequest("GET", "/api/status", "", "").Code, ShouldEqual, http.StatusUnauthorized)

		rr := apiRequest("GET", "/api/status", pilot, "")
		So(rr.Code, ShouldEqual, http.StatusOK)
		status := decodeBody(rr)
		So(status["chassis"], ShouldEqual, "hex")
		So(status["deployment"], ShouldEqual, "tabular")
	})

	Convey("commands answer like the socket", t, func() {
		rr := apiRequest("POST", "/api/command", pilot, `{"speed": 0.5}`)
		So(rr.Code, ShouldEqual, http.StatusOK)
		So(rr.Body.String(), ShouldEqual, `{"status":"success","message":"Speed updated"}`)

		rr = apiRequest("POST", "/api/command", pilot, `{"speed": 3}`)
		So(decodeBody(rr)["status"], ShouldEqual, "success")
		So(decodeBody(apiRequest("GET", "/api/status", pilot, ""))["speed"], ShouldEqual, 1.0)

		rr = apiRequest("POST", "/api/command", pilot, `{"speedLevel": 7}`)
		So(decodeBody(rr)["status"], ShouldEqual, "error")
	})

	Convey("calibration", t, func() {
		rr := apiRequest("GET", "/api/calibration", pilot, "")
		So(rr.Code, ShouldEqual, http.StatusOK)
		So(len(decodeBody(rr)), ShouldEqual, 6)

		Convey("is admin only", func() {
			So(apiRequest("PUT", "/api/calibration/1/2", pilot, `{"offset": 3}`).Code, ShouldEqual, http.StatusForbidden)
		})

		Convey("needs calibration mode", func() {
			rr := apiRequest("PUT", "/api/calibration/1/2", admin, `{"offset": 3}`)
			So(rr.Code, ShouldEqual, http.StatusConflict)
			So(decodeBody(rr)["code"], ShouldEqual, float64(errors.CodeNotCalibrating))
		})

		Convey("adjusts and saves", func() {
			So(apiRequest("POST", "/api/calibration/start", admin, "").Code, ShouldEqual, http.StatusOK)

			So(apiRequest("PUT", "/api/calibration/1/2", admin, `{}`).Code, ShouldEqual, http.StatusBadRequest)
			So(apiRequest("PUT", "/api/calibration/x/2", admin, `{"offset": 3}`).Code, ShouldEqual, http.StatusBadRequest)
			So(apiRequest("PUT", "/api/calibration/9/2", admin, `{"offset": 3}`).Code, ShouldEqual, http.StatusBadRequest)

			rr := apiRequest("PUT", "/api/calibration/1/2", admin, `{"offset": -7}`)
			So(rr.Code, ShouldEqual, http.StatusOK)
			So(decodeBody(rr)["offset"], ShouldEqual, -7.0)

			So(apiRequest("POST", "/api/calibration/save", admin, "").Code, ShouldEqual, http.StatusOK)
			So(apiRequest("POST", "/api/calibration/exit", admin, "").Code, ShouldEqual, http.StatusOK)

			offsets := decodeBody(apiRequest("GET", "/api/calibration", pilot, ""))
			So(offsets["leg1"], ShouldResemble, []interface{}{0.0, 0.0, -7.0})
		})
	})
}
