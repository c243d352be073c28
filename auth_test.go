package main

import (
	"bytes"
	"encoding/json"
	"github.com/dgrijalva/jwt-go"
	. "github.com/smartystreets/goconvey/convey"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"
)

func useTestDb(t *testing.T) {
	db, err := openDb(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	ENV.DB = db
	t.Cleanup(func() { db.Close() })
}

func TestOperator(t *testing.T) {
	Convey("Methods work as expected", t, func() {
		op := new(Operator)
		Convey("Setting and verify password works correctly with hashes", func() {
			op.SetPassword([]byte("hello123"))
			So(op.Password, ShouldStartWith, "$")

			So(op.VerifyPassword([]byte("hello123")), ShouldBeNil)
			So(op.VerifyPassword([]byte("hello12")), ShouldNotBeNil)
		})

		Convey("Invalid hash returns the correct error code", func() {
			op.Password = "I DON'T WORK"
			So(op.VerifyPassword([]byte("hello123")).Error(), ShouldContainSubstring, "hashedSecret too short")
		})
	})
}

func TestJWT(t *testing.T) {
	protected := ValidateJWT(RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(claimsFrom(r.Context()).Subject))
	})))

	call := func(mutate func(*http.Request)) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/", nil)
		mutate(req)
		rr := httptest.NewRecorder()
		protected.ServeHTTP(rr, req)
		return rr
	}

	Convey("tokens carry the operator", t, func() {
		ts, err := newJWT(&Operator{Email: "admin@walker", Admin: true})
		So(err, ShouldBeNil)

		Convey("from the header", func() {
			rr := call(func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+ts) })
			So(rr.Code, ShouldEqual, http.StatusOK)
			So(rr.Body.String(), ShouldEqual, "admin@walker")
		})

		Convey("from the query string", func() {
			rr := call(func(r *http.Request) { r.URL.RawQuery = "jwt=" + ts })
			So(rr.Code, ShouldEqual, http.StatusOK)
		})

		Convey("from a cookie", func() {
			rr := call(func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "jwt", Value: ts}) })
			So(rr.Code, ShouldEqual, http.StatusOK)
		})
	})

	Convey("bad tokens are refused", t, func() {
		So(call(func(*http.Request) {}).Code, ShouldEqual, http.StatusUnauthorized)
		So(call(func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }).Code, ShouldEqual, http.StatusUnauthorized)

		expired := jwt.NewWithClaims(jwt.SigningMethodHS512, OperatorClaims{
			StandardClaims: jwt.StandardClaims{Subject: "late", ExpiresAt: time.Now().Add(-time.Minute).Unix()},
			Admin:          true,
		})
		ts, _ := expired.SignedString(JWT_HMAC_SECRET)
		rr := call(func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+ts) })
		So(rr.Code, ShouldEqual, http.StatusUnauthorized)
		So(rr.Body.String(), ShouldContainSubstring, "Token has expired")
	})

	Convey("operators without admin cannot pass", t, func() {
		ts, _ := newJWT(&Operator{Email: "pilot@walker"})
		rr := call(func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+ts) })
		So(rr.Code, ShouldEqual, http.StatusForbidden)
	})
}

func TestLogin(t *testing.T) {
	useTestDb(t)

	op := &Operator{
		Email: "login@test.case",
	}
	op.SetPassword([]byte("testing123"))
	if err := ENV.DB.Save(op); err != nil {
		t.Fatal(err)
	}

	login := func(email, password string) *httptest.ResponseRecorder {
		body, _ := json.Marshal(&LoginPayload{Email: email, Password: password})
		req := httptest.NewRequest("POST", "/api/login/", bytes.NewBuffer(body))
		req.Header.Add("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		http.HandlerFunc(Login).ServeHTTP(rr, req)
		return rr
	}

	Convey("Valid request works as expected", t, func() {
		rr := login("login@test.case", "testing123")
		So(rr.Code, ShouldEqual, http.StatusOK)
		So(rr.Body.String(), ShouldContainSubstring, `"token":`)
	})

	Convey("Invalid credentials return error", t, func() {
		Convey("Incorrect username provides 404", func() {
			So(login("login-no@test.case", "testing123").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Incorrect password provides 403", func() {
			So(login("login@test.case", "testing12").Code, ShouldEqual, http.StatusForbidden)
		})

		Convey("Missing email is a bad request", func() {
			So(login("", "testing123").Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}
