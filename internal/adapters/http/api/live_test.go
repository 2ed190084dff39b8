package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/kata/internal/domain/model"
)

func TestHub(t *testing.T) {
	Convey("Given a live hub behind an HTTP server", t, func() {
		hub := NewHub()
		srv := httptest.NewServer(http.HandlerFunc(hub.HandleLive))
		defer srv.Close()
		defer hub.Close()

		wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

		Convey("When a client connects and a result is broadcast", func() {
			conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
			So(err, ShouldBeNil)
			defer conn.Close()

			hub.Broadcast(model.ScoreResult{Final: 0.9, Grade: model.GradePerfect, OK: true})

			Convey("Then the client receives it as JSON", func() {
				_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
				var res model.ScoreResult
				So(conn.ReadJSON(&res), ShouldBeNil)
				So(res.OK, ShouldBeTrue)
				So(res.Grade, ShouldEqual, model.GradePerfect)
			})
		})

		Convey("When a client disconnects", func() {
			conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
			So(err, ShouldBeNil)
			conn.Close()

			Convey("Then broadcasting does not panic and evicts it", func() {
				// The reader goroutine needs a moment to notice the close.
				time.Sleep(50 * time.Millisecond)
				hub.Broadcast(model.ScoreResult{OK: true})
				hub.Broadcast(model.ScoreResult{OK: true})
			})
		})

		Convey("When the hub is closed with clients attached", func() {
			conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
			So(err, ShouldBeNil)
			defer conn.Close()

			hub.Close()

			Convey("Then later broadcasts are harmless", func() {
				hub.Broadcast(model.ScoreResult{OK: true})
			})
		})
	})
}
